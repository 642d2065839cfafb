package queue

import "errors"

// Sentinel errors for queue state transitions (spec.md §4.3).
var (
	ErrUnknownNode      = errors.New("node id not present in this workflow's queue state")
	ErrNotReady         = errors.New("node is not in the ready state")
	ErrAlreadyTerminal  = errors.New("node has already reached a terminal state")
)
