package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/flowcore/workflowengine/pkg/credit"
	"github.com/flowcore/workflowengine/pkg/dag"
	"github.com/flowcore/workflowengine/pkg/execctx"
	"github.com/flowcore/workflowengine/pkg/events"
	"github.com/flowcore/workflowengine/pkg/types"
)

// fakeExecutor lets each test override behavior per node id; unset nodes
// default to a trivial success echoing the node id.
type fakeExecutor struct {
	mu       sync.Mutex
	handlers map[string]func(types.NodeType, map[string]any, *types.ExecutionContext) types.Result
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{handlers: map[string]func(types.NodeType, map[string]any, *types.ExecutionContext) types.Result{}}
}

func (f *fakeExecutor) on(nodeID string, fn func(types.NodeType, map[string]any, *types.ExecutionContext) types.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[nodeID] = fn
}

func (f *fakeExecutor) ExecuteNode(ctx context.Context, nodeType types.NodeType, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	f.mu.Lock()
	h, ok := f.handlers[meta.NodeID]
	f.mu.Unlock()
	if ok {
		return h(nodeType, config, execCtx), nil
	}
	return types.Result{Success: true, Output: meta.NodeID + "-out"}, nil
}

func buildWorkflow(t *testing.T, nodes []types.Node, edges []types.Edge) *types.BuiltWorkflow {
	t.Helper()
	b := &dag.Builder{}
	wf, err := b.Build(nodes, edges, 10)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return wf
}

func TestExecuteLinearWorkflowSucceeds(t *testing.T) {
	wf := buildWorkflow(t,
		[]types.Node{
			{ID: "trigger", Type: types.NodeTypeInput},
			{ID: "T", Type: types.NodeTypeTransform},
			{ID: "H", Type: types.NodeTypeHTTP},
			{ID: "out", Type: types.NodeTypeOutput, Name: "result"},
		},
		[]types.Edge{
			{ID: "e1", Source: "trigger", Target: "T", HandleType: types.HandleDefault},
			{ID: "e2", Source: "T", Target: "H", HandleType: types.HandleDefault},
			{ID: "e3", Source: "H", Target: "out", HandleType: types.HandleDefault},
		})

	exec := newFakeExecutor()
	sched := New(exec, nil, nil)

	ctx := execctx.CreateContext("exec1", "wf1", "", "", map[string]any{"x": 1})
	outcome, err := sched.Execute(context.Background(), ExecuteParams{Workflow: wf, Context: ctx})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if outcome.Paused {
		t.Fatalf("expected non-paused outcome")
	}
	if !outcome.Final.Success {
		t.Fatalf("expected success, got error %q", outcome.Final.Error)
	}
	if outcome.Final.Outputs["result"] != "out-out" {
		t.Fatalf("expected result output out-out, got %v", outcome.Final.Outputs["result"])
	}
}

func TestExecutePartialFailureStillSucceedsViaOtherBranch(t *testing.T) {
	// trigger -> A (fails) -> out1
	//         -> B (succeeds) -> out2
	wf := buildWorkflow(t,
		[]types.Node{
			{ID: "trigger", Type: types.NodeTypeInput},
			{ID: "A", Type: types.NodeTypeTransform},
			{ID: "B", Type: types.NodeTypeTransform},
			{ID: "out1", Type: types.NodeTypeOutput, Name: "a"},
			{ID: "out2", Type: types.NodeTypeOutput, Name: "b"},
		},
		[]types.Edge{
			{ID: "e1", Source: "trigger", Target: "A", HandleType: types.HandleDefault},
			{ID: "e2", Source: "trigger", Target: "B", HandleType: types.HandleDefault},
			{ID: "e3", Source: "A", Target: "out1", HandleType: types.HandleDefault},
			{ID: "e4", Source: "B", Target: "out2", HandleType: types.HandleDefault},
		})

	exec := newFakeExecutor()
	exec.on("A", func(types.NodeType, map[string]any, *types.ExecutionContext) types.Result {
		return types.Result{Success: false, Error: "boom"}
	})
	sched := New(exec, nil, nil)

	ctx := execctx.CreateContext("exec2", "wf1", "", "", map[string]any{})
	outcome, err := sched.Execute(context.Background(), ExecuteParams{Workflow: wf, Context: ctx})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !outcome.Final.Success {
		t.Fatalf("expected overall success since out2 completed, got error %q", outcome.Final.Error)
	}
	if _, ok := outcome.Final.Outputs["a"]; ok {
		t.Fatalf("expected out1 (dependent on failed A) to be absent from outputs")
	}
	if outcome.Final.Outputs["b"] != "out2-out" {
		t.Fatalf("expected out2 output present, got %v", outcome.Final.Outputs)
	}
}

// TestExecuteLinearMidFailureMatchesLiteralS2 exercises the literal S2
// scenario: same topology as S1 (Trigger -> T -> H -> Output) but H
// fails. Expected per spec: success=false, error="Node H failed",
// accumulated=1 (T only), balance=99, reserved=0, nodeOutputs includes T.
func TestExecuteLinearMidFailureMatchesLiteralS2(t *testing.T) {
	wf := buildWorkflow(t,
		[]types.Node{
			{ID: "trigger", Type: types.NodeTypeInput},
			{ID: "T", Type: types.NodeTypeTransform},
			{ID: "H", Type: types.NodeTypeHTTP},
			{ID: "out", Type: types.NodeTypeOutput, Name: "result"},
		},
		[]types.Edge{
			{ID: "e1", Source: "trigger", Target: "T", HandleType: types.HandleDefault},
			{ID: "e2", Source: "T", Target: "H", HandleType: types.HandleDefault},
			{ID: "e3", Source: "H", Target: "out", HandleType: types.HandleDefault},
		})

	exec := newFakeExecutor()
	exec.on("H", func(types.NodeType, map[string]any, *types.ExecutionContext) types.Result {
		return types.Result{Success: false, Error: "connection refused"}
	})
	svc := credit.NewMemoryService(map[string]float64{"ws1": 100})
	sched := New(exec, svc, nil)

	ctx := execctx.CreateContext("exec-s2", "wf1", "ws1", "", map[string]any{})
	outcome, err := sched.Execute(context.Background(), ExecuteParams{Workflow: wf, Context: ctx, WorkspaceID: "ws1"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if outcome.Final.Success {
		t.Fatalf("expected overall failure since H never completed and no other output node exists")
	}
	if outcome.Final.Error != "Node H failed" {
		t.Fatalf("expected error %q, got %q", "Node H failed", outcome.Final.Error)
	}
	if outcome.Final.AccumulatedCredits != 1 {
		t.Fatalf("expected accumulated credits 1 (T only), got %v", outcome.Final.AccumulatedCredits)
	}
	if _, ok := outcome.Final.NodeOutputs["T"]; !ok {
		t.Fatalf("expected nodeOutputs to include T, got %v", outcome.Final.NodeOutputs)
	}
	balance, reserved := svc.Balance("ws1")
	if balance != 99 {
		t.Fatalf("expected balance 99 after finalize, got %v", balance)
	}
	if reserved != 0 {
		t.Fatalf("expected reservation fully released, got %v", reserved)
	}
}

func TestExecutePauseThenResumeCompletes(t *testing.T) {
	wf := buildWorkflow(t,
		[]types.Node{
			{ID: "trigger", Type: types.NodeTypeInput},
			{ID: "W", Type: types.NodeTypeWaitForUser},
			{ID: "out", Type: types.NodeTypeOutput, Name: "result"},
		},
		[]types.Edge{
			{ID: "e1", Source: "trigger", Target: "W", HandleType: types.HandleDefault},
			{ID: "e2", Source: "W", Target: "out", HandleType: types.HandleDefault},
		})

	exec := newFakeExecutor()
	exec.on("W", func(types.NodeType, map[string]any, *types.ExecutionContext) types.Result {
		return types.Result{
			Success: true,
			Output:  "awaiting-approval",
			Signals: types.Signals{Pause: true, PauseContext: &types.PauseContext{
				Reason: "manual review", NodeID: "W", ResumeTrigger: "approval",
			}},
		}
	})
	sink := &events.MemorySink{}
	sched := New(exec, nil, events.NewEmitter(sink))

	ctx := execctx.CreateContext("exec3", "wf1", "", "", map[string]any{})
	outcome, err := sched.Execute(context.Background(), ExecuteParams{Workflow: wf, Context: ctx})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !outcome.Paused {
		t.Fatalf("expected paused outcome")
	}
	if outcome.Snapshot.Context.NodeOutputs["W"] != "awaiting-approval" {
		t.Fatalf("expected W's output captured in snapshot context")
	}

	resumed, err := sched.Resume(context.Background(), ResumeParams{
		Snapshot: outcome.Snapshot, Workflow: wf, ResumeInputs: map[string]any{"approval": "yes"},
	})
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Paused {
		t.Fatalf("expected resumed execution to complete, not pause again")
	}
	if !resumed.Final.Success {
		t.Fatalf("expected resumed success, got error %q", resumed.Final.Error)
	}
	if resumed.Final.Outputs["result"] != "out-out" {
		t.Fatalf("expected out node to dispatch exactly once on resume, got %v", resumed.Final.Outputs)
	}

	var names []string
	for _, e := range sink.Events() {
		names = append(names, string(e.Event))
	}
	if names[0] != string(events.EventExecutionStarted) {
		t.Fatalf("expected started first, got %v", names)
	}
	foundPaused := false
	for _, n := range names {
		if n == string(events.EventExecutionPaused) {
			foundPaused = true
		}
	}
	if !foundPaused {
		t.Fatalf("expected a paused event in the stream, got %v", names)
	}
}

func TestCancelDrainsWithoutDispatchingRemainingNodes(t *testing.T) {
	wf := buildWorkflow(t,
		[]types.Node{
			{ID: "trigger", Type: types.NodeTypeInput},
			{ID: "A", Type: types.NodeTypeTransform},
			{ID: "B", Type: types.NodeTypeTransform},
			{ID: "out", Type: types.NodeTypeOutput, Name: "result"},
		},
		[]types.Edge{
			{ID: "e1", Source: "trigger", Target: "A", HandleType: types.HandleDefault},
			{ID: "e2", Source: "A", Target: "B", HandleType: types.HandleDefault},
			{ID: "e3", Source: "B", Target: "out", HandleType: types.HandleDefault},
		})

	exec := newFakeExecutor()
	var sched *Scheduler
	bDispatched := false
	exec.on("A", func(types.NodeType, map[string]any, *types.ExecutionContext) types.Result {
		sched.Cancel("exec-cancel")
		return types.Result{Success: true, Output: "a-out"}
	})
	exec.on("B", func(types.NodeType, map[string]any, *types.ExecutionContext) types.Result {
		bDispatched = true
		return types.Result{Success: true, Output: "b-out"}
	})
	sched = New(exec, nil, nil)

	ctx := execctx.CreateContext("exec-cancel", "wf1", "", "", map[string]any{})
	outcome, err := sched.Execute(context.Background(), ExecuteParams{Workflow: wf, Context: ctx})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if bDispatched {
		t.Fatalf("expected B to never dispatch after cancellation")
	}
	if outcome.Final.Success {
		t.Fatalf("expected cancelled execution to report failure")
	}
	if outcome.Final.Error != "cancelled" {
		t.Fatalf("expected error 'cancelled', got %q", outcome.Final.Error)
	}
}

func TestExecuteReservesAndFinalizesCredits(t *testing.T) {
	wf := buildWorkflow(t,
		[]types.Node{
			{ID: "trigger", Type: types.NodeTypeInput},
			{ID: "T", Type: types.NodeTypeTransform},
			{ID: "out", Type: types.NodeTypeOutput, Name: "result"},
		},
		[]types.Edge{
			{ID: "e1", Source: "trigger", Target: "T", HandleType: types.HandleDefault},
			{ID: "e2", Source: "T", Target: "out", HandleType: types.HandleDefault},
		})

	exec := newFakeExecutor()
	svc := credit.NewMemoryService(map[string]float64{"ws1": 100})
	sched := New(exec, svc, nil)

	ctx := execctx.CreateContext("exec4", "wf1", "ws1", "", map[string]any{})
	outcome, err := sched.Execute(context.Background(), ExecuteParams{Workflow: wf, Context: ctx, WorkspaceID: "ws1"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !outcome.Final.Success {
		t.Fatalf("expected success, got error %q", outcome.Final.Error)
	}
	if outcome.Final.AccumulatedCredits != 1 { // one transform node at default cost 1
		t.Fatalf("expected accumulated credits 1, got %v", outcome.Final.AccumulatedCredits)
	}
	balance, reserved := svc.Balance("ws1")
	if balance != 99 {
		t.Fatalf("expected balance 99 after finalize, got %v", balance)
	}
	if reserved != 0 {
		t.Fatalf("expected reservation fully released, got %v", reserved)
	}
}

func TestExecuteDeniesInsufficientCredits(t *testing.T) {
	wf := buildWorkflow(t,
		[]types.Node{
			{ID: "trigger", Type: types.NodeTypeInput},
			{ID: "L", Type: types.NodeTypeLLM},
			{ID: "out", Type: types.NodeTypeOutput, Name: "result"},
		},
		[]types.Edge{
			{ID: "e1", Source: "trigger", Target: "L", HandleType: types.HandleDefault},
			{ID: "e2", Source: "L", Target: "out", HandleType: types.HandleDefault},
		})

	exec := newFakeExecutor()
	svc := credit.NewMemoryService(map[string]float64{"ws1": 1})
	sched := New(exec, svc, nil)

	ctx := execctx.CreateContext("exec5", "wf1", "ws1", "", map[string]any{})
	outcome, err := sched.Execute(context.Background(), ExecuteParams{Workflow: wf, Context: ctx, WorkspaceID: "ws1"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if outcome.Final.Success {
		t.Fatalf("expected denied execution to fail before dispatch")
	}
	if outcome.Final.Error != ErrInsufficientCredits.Error() {
		t.Fatalf("expected ErrInsufficientCredits, got %q", outcome.Final.Error)
	}
}
