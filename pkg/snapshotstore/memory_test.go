package snapshotstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowcore/workflowengine/pkg/types"
)

func snapshotAt(executionID string, createdAt time.Time) *types.ExecutionSnapshot {
	return &types.ExecutionSnapshot{
		ExecutionID: executionID,
		WorkflowID:  "wf-1",
		CreatedAt:   createdAt,
		Progress:    50,
	}
}

func TestMemoryStoreSaveAndLatest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1000, 0)

	if err := s.Save(ctx, snapshotAt("exec-1", base)); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := s.Save(ctx, snapshotAt("exec-1", base.Add(time.Minute))); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	latest, err := s.Latest(ctx, "exec-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !latest.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("expected the later snapshot, got %v", latest.CreatedAt)
	}
}

func TestMemoryStoreListOrdersOldestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(2000, 0)

	s.Save(ctx, snapshotAt("exec-2", base.Add(time.Minute)))
	s.Save(ctx, snapshotAt("exec-2", base))

	history, err := s.List(ctx, "exec-2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 || !history[0].CreatedAt.Equal(base) {
		t.Fatalf("expected oldest first, got %+v", history)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Latest(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRejectsNilOrEmpty(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Save(context.Background(), nil); !errors.Is(err, ErrNilSnapshot) {
		t.Fatalf("expected ErrNilSnapshot, got %v", err)
	}
	if err := s.Save(context.Background(), &types.ExecutionSnapshot{}); !errors.Is(err, ErrEmptyExecutionID) {
		t.Fatalf("expected ErrEmptyExecutionID, got %v", err)
	}
}
