package snapshotstore

import "errors"

var (
	// ErrNilSnapshot is returned by Save when given a nil snapshot.
	ErrNilSnapshot = errors.New("snapshotstore: snapshot is nil")

	// ErrNotFound is returned by Latest/List when no snapshot exists for an
	// execution id.
	ErrNotFound = errors.New("snapshotstore: no snapshot found for execution")

	// ErrEmptyExecutionID is returned when an empty execution id is given
	// to any lookup.
	ErrEmptyExecutionID = errors.New("snapshotstore: execution id is required")
)
