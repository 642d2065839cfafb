// Package snapshotstore implements a reference persistence layer for
// spec.md §6.4: an external store, keyed by (executionId, createdAt), for
// the Pause/Resume Controller's snapshots. The engine itself only ever
// needs the latest snapshot per execution id to resume; the full history
// is kept so a checkpoint/failure snapshot earlier in an execution's
// lifetime remains inspectable.
//
// Grounded on the teacher's pkg/storage.InMemoryStore (mutex-guarded map,
// UUID-keyed records) for the in-memory reference, and on
// dshills-langgraph-go's Checkpoint concept (a durable, timestamped,
// replay-capable snapshot of execution state) for the on-disk shape.
package snapshotstore

import (
	"context"

	"github.com/flowcore/workflowengine/pkg/types"
)

// Store persists and retrieves ExecutionSnapshots.
type Store interface {
	// Save appends a new snapshot record for its ExecutionID/CreatedAt.
	Save(ctx context.Context, snapshot *types.ExecutionSnapshot) error

	// Latest returns the most recently created snapshot for executionID.
	// Returns ErrNotFound if none exists.
	Latest(ctx context.Context, executionID string) (*types.ExecutionSnapshot, error)

	// List returns every snapshot recorded for executionID, oldest first.
	List(ctx context.Context, executionID string) ([]*types.ExecutionSnapshot, error)
}
