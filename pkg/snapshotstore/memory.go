package snapshotstore

import (
	"context"
	"sort"
	"sync"

	"github.com/flowcore/workflowengine/pkg/types"
)

// MemoryStore is a single-process, mutex-guarded Store, grounded on the
// teacher's pkg/storage.InMemoryStore pattern applied to snapshots instead
// of workflow definitions.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]*types.ExecutionSnapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]*types.ExecutionSnapshot)}
}

// Save appends snapshot to its execution's history.
func (s *MemoryStore) Save(ctx context.Context, snapshot *types.ExecutionSnapshot) error {
	if snapshot == nil {
		return ErrNilSnapshot
	}
	if snapshot.ExecutionID == "" {
		return ErrEmptyExecutionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ExecutionID] = append(s.snapshots[snapshot.ExecutionID], snapshot)
	return nil
}

// Latest returns the most recently created snapshot for executionID.
func (s *MemoryStore) Latest(ctx context.Context, executionID string) (*types.ExecutionSnapshot, error) {
	if executionID == "" {
		return nil, ErrEmptyExecutionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.snapshots[executionID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	latest := history[0]
	for _, snap := range history[1:] {
		if snap.CreatedAt.After(latest.CreatedAt) {
			latest = snap
		}
	}
	return latest, nil
}

// List returns every snapshot recorded for executionID, oldest first.
func (s *MemoryStore) List(ctx context.Context, executionID string) ([]*types.ExecutionSnapshot, error) {
	if executionID == "" {
		return nil, ErrEmptyExecutionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := append([]*types.ExecutionSnapshot(nil), s.snapshots[executionID]...)
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(history, func(i, j int) bool { return history[i].CreatedAt.Before(history[j].CreatedAt) })
	return history, nil
}
