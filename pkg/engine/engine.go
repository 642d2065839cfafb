// Package engine wires the Workflow Builder (pkg/dag), the Scheduler Loop
// (pkg/scheduler, which itself composes the Queue State, Edge Router,
// Pause/Resume Controller, Credit Lifecycle, and Event Emitter), the
// reference NodeExecutor (pkg/executor), and pause-snapshot persistence
// (pkg/snapshotstore) behind a single top-level API: Build, Execute,
// Resume, Cancel. It is the one thing a host program (cmd/server and
// friends) needs to import to run workflows end to end.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/flowcore/workflowengine/pkg/credit"
	"github.com/flowcore/workflowengine/pkg/dag"
	"github.com/flowcore/workflowengine/pkg/events"
	"github.com/flowcore/workflowengine/pkg/execctx"
	"github.com/flowcore/workflowengine/pkg/scheduler"
	"github.com/flowcore/workflowengine/pkg/snapshotstore"
	"github.com/flowcore/workflowengine/pkg/types"
)

// execState is what the Engine remembers about a run between the
// Execute call that paused it and the Resume call that continues it.
// ExecutionSnapshot itself carries Reserved/Accrued amounts but not
// whether credit reservation was active for the run at all, so Resume
// has no way to rederive CreditsActive from the snapshot alone.
type execState struct {
	workflow      *types.BuiltWorkflow
	workspaceID   string
	creditsActive bool
}

// Engine is the facade. The zero value is not usable; construct with New.
type Engine struct {
	builder   *dag.Builder
	scheduler *scheduler.Scheduler
	snapshots snapshotstore.Store

	mu   sync.Mutex
	runs map[string]execState
}

// New constructs an Engine. snapshots may be nil, in which case Execute
// runs are still driven normally but a pause cannot later be resumed
// through this Engine (Resume returns ErrNoSnapshotStore).
func New(builder *dag.Builder, executor scheduler.NodeExecutor, credits credit.Service, emitter *events.Emitter, snapshots snapshotstore.Store) *Engine {
	return &Engine{
		builder:   builder,
		scheduler: scheduler.New(executor, credits, emitter),
		snapshots: snapshots,
		runs:      make(map[string]execState),
	}
}

// Build compiles a node/edge list into an execution-ready workflow graph
// (the Workflow Builder, spec.md §4.2).
func (e *Engine) Build(nodes []types.Node, edges []types.Edge, maxConcurrentNodes int) (*types.BuiltWorkflow, error) {
	return e.builder.Build(nodes, edges, maxConcurrentNodes)
}

// ExecuteParams is the input to Engine.Execute.
type ExecuteParams struct {
	Workflow        *types.BuiltWorkflow
	ExecutionID     string
	WorkflowID      string
	WorkspaceID     string
	UserID          string
	Inputs          map[string]any
	SkipCreditCheck bool
}

// Execute starts a fresh run of workflow. If the run pauses, the
// resulting snapshot is persisted (when a Store was configured) and the
// run's credit-reservation state is remembered for a later Resume. A
// caller that leaves ExecutionID empty gets one generated.
func (e *Engine) Execute(ctx context.Context, params ExecuteParams) (*scheduler.Outcome, error) {
	if params.ExecutionID == "" {
		params.ExecutionID = uuid.NewString()
	}
	execCtx := execctx.CreateContext(params.ExecutionID, params.WorkflowID, params.WorkspaceID, params.UserID, params.Inputs)

	outcome, err := e.scheduler.Execute(ctx, scheduler.ExecuteParams{
		Workflow:        params.Workflow,
		Context:         execCtx,
		WorkspaceID:     params.WorkspaceID,
		SkipCreditCheck: params.SkipCreditCheck,
	})
	if err != nil {
		return nil, err
	}

	creditsActive := !params.SkipCreditCheck && params.WorkspaceID != ""
	if err := e.track(ctx, outcome, params.Workflow, params.WorkspaceID, creditsActive); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// ResumeParams is the input to Engine.Resume.
type ResumeParams struct {
	ExecutionID  string
	ResumeInputs map[string]any
}

// Resume loads the latest snapshot for an execution id, restores its
// scheduler state, and continues the run to completion or the next
// pause.
func (e *Engine) Resume(ctx context.Context, params ResumeParams) (*scheduler.Outcome, error) {
	if e.snapshots == nil {
		return nil, ErrNoSnapshotStore
	}

	e.mu.Lock()
	st, ok := e.runs[params.ExecutionID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExecution, params.ExecutionID)
	}

	snapshot, err := e.snapshots.Latest(ctx, params.ExecutionID)
	if err != nil {
		return nil, fmt.Errorf("engine: load snapshot: %w", err)
	}

	outcome, err := e.scheduler.Resume(ctx, scheduler.ResumeParams{
		Snapshot:      snapshot,
		Workflow:      st.workflow,
		WorkspaceID:   st.workspaceID,
		ResumeInputs:  params.ResumeInputs,
		CreditsActive: st.creditsActive,
	})
	if err != nil {
		return nil, err
	}

	if err := e.track(ctx, outcome, st.workflow, st.workspaceID, st.creditsActive); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// Cancel requests that a currently running execution stop at its next
// safe boundary (spec.md §5).
func (e *Engine) Cancel(executionID string) bool {
	return e.scheduler.Cancel(executionID)
}

// track persists a pause snapshot (if any) and remembers or forgets the
// run's execState depending on whether the outcome is terminal.
func (e *Engine) track(ctx context.Context, outcome *scheduler.Outcome, workflow *types.BuiltWorkflow, workspaceID string, creditsActive bool) error {
	executionID := ""
	if outcome.Snapshot != nil {
		executionID = outcome.Snapshot.ExecutionID
	} else if outcome.Final != nil {
		executionID = outcome.Final.ExecutionID
	}
	if executionID == "" {
		return nil
	}

	e.mu.Lock()
	if outcome.Paused {
		e.runs[executionID] = execState{workflow: workflow, workspaceID: workspaceID, creditsActive: creditsActive}
	} else {
		delete(e.runs, executionID)
	}
	e.mu.Unlock()

	if outcome.Paused && e.snapshots != nil {
		if err := e.snapshots.Save(ctx, outcome.Snapshot); err != nil {
			return fmt.Errorf("engine: save snapshot: %w", err)
		}
	}
	return nil
}
