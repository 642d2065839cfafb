package execctx

import "errors"

// Sentinel errors for context store operations.
var (
	ErrDuplicateOutput = errors.New("node output already recorded for this execution")
	ErrNilContext      = errors.New("execution context is nil")
)
