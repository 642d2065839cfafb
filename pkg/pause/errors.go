package pause

import "errors"

var (
	// ErrNoPauseContext is returned by Snapshot when the executor's signals
	// carried no pauseContext to persist.
	ErrNoPauseContext = errors.New("pause signal carried no pauseContext to snapshot")

	// ErrNilSnapshotContext is returned by Resume when the snapshot has no
	// ExecutionContext to restore.
	ErrNilSnapshotContext = errors.New("snapshot carries no execution context to resume from")
)
