// Package pause implements the Pause/Resume Controller (C6): taking a
// serializable ExecutionSnapshot when an executor suspends an execution,
// and reconstructing the Context Store and Queue State from one to
// re-enter the scheduler loop, per spec.md §4.6.
//
// The teacher's pkg/engine/snapshot.go + ExecuteFromSnapshot reconstruct an
// engine and re-run every node from scratch, which only works because the
// teacher's executors are idempotent by convention. This spec requires the
// opposite guarantee — a resumed execution must not re-execute a node that
// had already reached completed before the pause — so Resume rebuilds
// pkg/queue's state directly from the snapshot's node-status buckets
// instead of replaying anything.
package pause

import (
	"sort"

	"github.com/flowcore/workflowengine/pkg/execctx"
	"github.com/flowcore/workflowengine/pkg/queue"
	"github.com/flowcore/workflowengine/pkg/types"
)

// SnapshotParams is the input to Snapshot.
type SnapshotParams struct {
	ExecutionID  string
	WorkflowID   string
	SnapshotType types.SnapshotType
	Context      *types.ExecutionContext
	Queue        *queue.State
	Reserved     float64
	Accrued      float64
	LoopStates   map[string]int
	PauseContext *types.PauseContext
}

// Snapshot captures the current ExecutionContext and queue.State into a
// types.ExecutionSnapshot. For SnapshotType == types.SnapshotPause, params
// must carry a PauseContext (spec.md §4.6 step 2: the paused event carries
// pauseContext merged with the full execution-state snapshot).
func Snapshot(params SnapshotParams) (*types.ExecutionSnapshot, error) {
	if params.SnapshotType == types.SnapshotPause && params.PauseContext == nil {
		return nil, ErrNoPauseContext
	}

	var completed, pending, executing, failed, skipped []string
	for id, st := range params.Queue.Status {
		switch st {
		case types.StatusCompleted:
			completed = append(completed, id)
		case types.StatusExecuting:
			executing = append(executing, id)
		case types.StatusFailed:
			failed = append(failed, id)
		case types.StatusSkipped, types.StatusUnreachable:
			skipped = append(skipped, id)
		default: // pending, ready
			pending = append(pending, id)
		}
	}
	sort.Strings(completed)
	sort.Strings(pending)
	sort.Strings(executing)
	sort.Strings(failed)
	sort.Strings(skipped)

	var firedEdges []string
	for id, fired := range params.Queue.FiredEdges {
		if fired {
			firedEdges = append(firedEdges, id)
		}
	}
	sort.Strings(firedEdges)

	total := len(params.Queue.Status)
	terminal := len(completed) + len(failed) + len(skipped)
	progress := 0
	if total > 0 {
		progress = (terminal * 100) / total
	}

	snap := params.PauseContext
	if snap != nil {
		// Avoid aliasing the caller's PauseContext.Snapshot field into
		// itself when this snapshot is later attached back onto it.
		cp := *snap
		snap = &cp
	}

	return &types.ExecutionSnapshot{
		ExecutionID:    params.ExecutionID,
		WorkflowID:     params.WorkflowID,
		SnapshotType:   params.SnapshotType,
		Progress:       progress,
		Context:        params.Context,
		CompletedNodes: completed,
		PendingNodes:   pending,
		ExecutingNodes: executing,
		FailedNodes:    failed,
		SkippedNodes:   skipped,
		FiredEdges:     firedEdges,
		LoopStates:     params.LoopStates,
		PauseContext:   snap,
		Reserved:       params.Reserved,
		Accrued:        params.Accrued,
	}, nil
}

// Resume reconstructs an ExecutionContext and queue.State from snapshot
// against workflow, merging resumeInputs into the restored context's
// inputs (resumeInputs win on key conflict; spec.md §4.6 resume step 1).
//
// Every node in the snapshot's completedNodes/failedNodes/skippedNodes
// buckets is restored directly to its terminal status so it is never
// re-dispatched. executingNodes — which per spec.md §4.6's ordering
// guarantee should be empty at a real pause boundary, since a batch always
// drains before a pause is honored — are conservatively restored to ready
// so they re-enter dispatch exactly once if present. Anything else starts
// pending and is then resynced against the restored FiredEdges set, which
// recovers nodes that had become ready but were not yet dispatched when
// the pause was taken (the snapshot schema has no separate bucket for
// those).
func Resume(snapshot *types.ExecutionSnapshot, workflow *types.BuiltWorkflow, resumeInputs map[string]any) (*types.ExecutionContext, *queue.State, error) {
	if snapshot.Context == nil {
		return nil, nil, ErrNilSnapshotContext
	}
	ctx := execctx.MergeResumeInputs(snapshot.Context, resumeInputs)

	status := make(map[string]types.NodeStatus, len(workflow.Nodes))
	for id := range workflow.Nodes {
		status[id] = types.StatusPending
	}
	for _, id := range snapshot.CompletedNodes {
		status[id] = types.StatusCompleted
	}
	for _, id := range snapshot.FailedNodes {
		status[id] = types.StatusFailed
	}
	for _, id := range snapshot.SkippedNodes {
		status[id] = types.StatusUnreachable
	}
	for _, id := range snapshot.ExecutingNodes {
		status[id] = types.StatusReady
	}

	fired := make(map[string]bool, len(snapshot.FiredEdges))
	for _, id := range snapshot.FiredEdges {
		fired[id] = true
	}

	qs := &queue.State{Workflow: workflow, Status: status, FiredEdges: fired}
	qs.Resync()

	return ctx, qs, nil
}
