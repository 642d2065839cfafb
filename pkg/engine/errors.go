package engine

import "errors"

var (
	// ErrNoSnapshotStore is returned by Resume when the Engine was built
	// without a snapshotstore.Store and therefore has nowhere to look up
	// the execution's last pause snapshot.
	ErrNoSnapshotStore = errors.New("engine: no snapshot store configured")

	// ErrUnknownExecution is returned by Resume when the given
	// execution id has no tracked state (never executed, or already
	// finished and forgotten).
	ErrUnknownExecution = errors.New("engine: no tracked state for execution id")
)
