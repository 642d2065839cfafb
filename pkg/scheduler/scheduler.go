// Package scheduler implements the Scheduler Loop (C4): the central
// control loop that drives the Queue State (C3) against the external
// executor contract, routes completions through the Edge Router (via
// pkg/queue), diverts to the Pause/Resume Controller (C6) on a pause
// signal, accrues and finalizes credits (C7), and emits the ordered event
// stream (C8), per spec.md §4.4.
//
// Grounded on the teacher's parallel_executor.go executeLevel: a
// semaphore-free worker pool (bounded here by the ready set's own cap
// budget rather than a channel semaphore, since getReadyNodes already
// respects maxConcurrentNodes) plus a sync.WaitGroup batch-drain barrier,
// generalized from "one static depth-level at a time" to "whatever the
// Queue State's ready set contains this tick" — because here, unlike the
// teacher's pure depth-ordered DAG, what's ready also depends on which
// edges actually fired (conditional/switch routing), not just static
// dependency counts.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flowcore/workflowengine/pkg/credit"
	"github.com/flowcore/workflowengine/pkg/events"
	"github.com/flowcore/workflowengine/pkg/execctx"
	"github.com/flowcore/workflowengine/pkg/pause"
	"github.com/flowcore/workflowengine/pkg/queue"
	"github.com/flowcore/workflowengine/pkg/types"
)

// NodeExecutor is the external contract the Scheduler Loop dispatches
// every ready node through (spec.md §6.1). The scheduler interprets
// nothing about node-type-specific behavior beyond Result.Signals.
type NodeExecutor interface {
	ExecuteNode(ctx context.Context, nodeType types.NodeType, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error)
}

// Outcome is what one Execute/Resume call returns: either the execution
// paused (Snapshot set) or ran to a terminal state (Final set).
type Outcome struct {
	Paused   bool
	Snapshot *types.ExecutionSnapshot
	Final    *types.FinalResult
}

// ExecuteParams is the input to Scheduler.Execute.
type ExecuteParams struct {
	Workflow        *types.BuiltWorkflow
	Context         *types.ExecutionContext
	WorkspaceID     string
	SkipCreditCheck bool
}

// ResumeParams is the input to Scheduler.Resume.
type ResumeParams struct {
	Snapshot      *types.ExecutionSnapshot
	Workflow      *types.BuiltWorkflow
	WorkspaceID   string
	ResumeInputs  map[string]any
	CreditsActive bool // whether the original Execute reserved credits for this run
}

// Scheduler drives one execution at a time per call but is safe for
// concurrent use across independent executions (spec.md §5: executions
// share no mutable engine state besides the credit balance, which the
// Credit Lifecycle serializes on its own).
type Scheduler struct {
	Executor NodeExecutor
	Credits  credit.Service
	Events   *events.Emitter

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New constructs a Scheduler. emitter may be nil when the caller doesn't
// need an event stream (e.g. in tests); Execute/Resume treat it as a no-op
// sink in that case.
func New(executor NodeExecutor, credits credit.Service, emitter *events.Emitter) *Scheduler {
	return &Scheduler{
		Executor: executor,
		Credits:  credits,
		Events:   emitter,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Cancel marks executionID as cancelled (spec.md §5): once the in-flight
// batch drains, remaining pending/ready nodes transition to a terminal
// state without dispatch and credits are finalized with actual =
// accumulated so far. Returns false if no execution with that id is
// currently running under this Scheduler.
func (s *Scheduler) Cancel(executionID string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[executionID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

func (s *Scheduler) unregister(executionID string) {
	s.mu.Lock()
	delete(s.cancels, executionID)
	s.mu.Unlock()
}

// Execute builds a fresh QueueState from workflow, runs the pre-flight
// credit reservation (spec.md §4.7 phase 1, unless skipped or no
// workspace is supplied), and drives the scheduler loop to completion or
// pause.
func (s *Scheduler) Execute(ctx context.Context, params ExecuteParams) (*Outcome, error) {
	executionID := params.Context.Metadata.ExecutionID
	workflow := params.Workflow

	runCtx, cancel := s.deriveRunContext(ctx, executionID)
	defer func() { cancel(); s.unregister(executionID) }()

	s.emit(runCtx, executionID, events.EventExecutionStarted, nil)

	creditsActive := !params.SkipCreditCheck && params.WorkspaceID != ""
	var reserved float64
	if creditsActive {
		estimate, err := s.Credits.Estimate(workflow)
		if err != nil {
			return s.preflightFail(runCtx, executionID, params.Context, fmt.Sprintf("credit estimate failed: %v", err))
		}
		reserved = credit.Reservation(estimate.TotalCredits)

		allowed, err := s.Credits.ShouldAllowExecution(runCtx, credit.ShouldAllowExecutionParams{
			WorkspaceID: params.WorkspaceID, EstimatedCredits: reserved,
		})
		if err != nil {
			return s.preflightFail(runCtx, executionID, params.Context, fmt.Sprintf("credit pre-check failed: %v", err))
		}
		if !allowed {
			return s.preflightFail(runCtx, executionID, params.Context, ErrInsufficientCredits.Error())
		}

		ok, err := s.Credits.ReserveCredits(runCtx, credit.ReserveCreditsParams{
			WorkspaceID: params.WorkspaceID, EstimatedCredits: reserved,
		})
		if err != nil {
			return s.preflightFail(runCtx, executionID, params.Context, fmt.Sprintf("credit reservation failed: %v", err))
		}
		if !ok {
			return s.preflightFail(runCtx, executionID, params.Context, ErrInsufficientCredits.Error())
		}
	}

	qs := queue.Initialize(workflow)
	return s.runLoop(runCtx, runParams{
		executionID: executionID, workspaceID: params.WorkspaceID, workflow: workflow,
		execCtx: params.Context, queue: qs, reserved: reserved, creditsActive: creditsActive,
	})
}

// Resume restores an ExecutionContext and QueueState from a snapshot
// (pkg/pause) and re-enters the scheduler loop (spec.md §4.6 resume
// protocol).
func (s *Scheduler) Resume(ctx context.Context, params ResumeParams) (*Outcome, error) {
	execCtx, qs, err := pause.Resume(params.Snapshot, params.Workflow, params.ResumeInputs)
	if err != nil {
		return nil, err
	}
	executionID := params.Snapshot.ExecutionID

	runCtx, cancel := s.deriveRunContext(ctx, executionID)
	defer func() { cancel(); s.unregister(executionID) }()

	return s.runLoop(runCtx, runParams{
		executionID: executionID, workspaceID: params.WorkspaceID, workflow: params.Workflow,
		execCtx: execCtx, queue: qs, reserved: params.Snapshot.Reserved,
		accrued: params.Snapshot.Accrued, creditsActive: params.CreditsActive,
	})
}

func (s *Scheduler) deriveRunContext(parent context.Context, executionID string) (context.Context, context.CancelFunc) {
	runCtx, cancelRun := context.WithCancel(parent)
	s.mu.Lock()
	s.cancels[executionID] = cancelRun
	s.mu.Unlock()
	return runCtx, cancelRun
}

// runParams bundles one scheduler-loop invocation's mutable state so it
// can be threaded through the dispatch/post-processing helpers without a
// long positional argument list.
type runParams struct {
	executionID   string
	workspaceID   string
	workflow      *types.BuiltWorkflow
	execCtx       *types.ExecutionContext
	queue         *queue.State
	reserved      float64
	accrued       float64
	creditsActive bool
}

// dispatchResult is one node's outcome from a single dispatch batch.
type dispatchResult struct {
	nodeID string
	result types.Result
	err    error
}

func (s *Scheduler) runLoop(ctx context.Context, p runParams) (*Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return s.cancelled(p)
		default:
		}

		if p.queue.IsExecutionComplete() {
			break
		}
		ready := p.queue.ReadyNodes(p.workflow.MaxConcurrentNodes)
		if len(ready) == 0 {
			break // nothing ready and nothing executing: stuck or done
		}
		if err := p.queue.MarkExecuting(ready); err != nil {
			return nil, err
		}

		results := s.dispatchBatch(ctx, p, ready)

		for _, dr := range results {
			outcome, err := s.applyResult(ctx, &p, dr)
			if err != nil {
				return nil, err
			}
			if outcome != nil {
				return outcome, nil
			}
		}
	}

	return s.finish(ctx, p)
}

// dispatchBatch runs every ready node's ExecuteNode call concurrently and
// waits for the whole batch to drain before returning (spec.md §5: the
// scheduler waits for each batch to drain before re-evaluating the ready
// set).
func (s *Scheduler) dispatchBatch(ctx context.Context, p runParams, ready []string) []dispatchResult {
	results := make([]dispatchResult, len(ready))
	flat := execctx.GetExecutionContext(p.execCtx)

	var wg sync.WaitGroup
	for i, nodeID := range ready {
		wg.Add(1)
		go func(i int, nodeID string) {
			defer wg.Done()
			node := p.workflow.Nodes[nodeID]
			config, _ := execctx.InterpolateValue(node.Config, flat).(map[string]any)
			meta := types.ExecMeta{ExecutionID: p.executionID, NodeID: nodeID, NodeName: node.Name, Type: node.Type, Workflow: p.workflow}

			s.emit(ctx, p.executionID, events.EventToolCallStarted, map[string]any{"nodeId": nodeID, "nodeType": string(node.Type)})
			result, err := s.Executor.ExecuteNode(ctx, node.Type, config, p.execCtx, meta)
			s.emit(ctx, p.executionID, events.EventToolCallCompleted, map[string]any{"nodeId": nodeID, "success": result.Success})

			results[i] = dispatchResult{nodeID: nodeID, result: result, err: err}
		}(i, nodeID)
	}
	wg.Wait()
	return results
}

// applyResult folds one dispatch outcome into the execution context and
// queue state. A non-nil Outcome signals the loop to return immediately
// (pause). Node-level transport errors are treated as node failures, not
// aborted executions, so independent parallel branches can still succeed
// (spec.md §7 NodeExecutionError).
func (s *Scheduler) applyResult(ctx context.Context, p *runParams, dr dispatchResult) (*Outcome, error) {
	if dr.err != nil {
		return nil, p.queue.MarkFailed(dr.nodeID, dr.err.Error())
	}

	if dr.result.Signals.Pause {
		if err := s.recordCompletion(p, dr); err != nil {
			return nil, err
		}
		p.accrued += s.accrueCredits(p.workflow.Nodes[dr.nodeID].Type, dr.result)
		outcome, err := s.pauseExecution(ctx, *p, dr.result.Signals.PauseContext)
		return outcome, err
	}

	if !dr.result.Success {
		return nil, p.queue.MarkFailed(dr.nodeID, dr.result.Error)
	}

	if err := s.recordCompletion(p, dr); err != nil {
		return nil, err
	}
	p.accrued += s.accrueCredits(p.workflow.Nodes[dr.nodeID].Type, dr.result)
	return nil, nil
}

// recordCompletion stores dr's output into the context and advances the
// queue, in that order, so the Edge Router sees a nodeOutputs map that
// already includes this node's own output.
func (s *Scheduler) recordCompletion(p *runParams, dr dispatchResult) error {
	next, err := execctx.StoreNodeOutput(p.execCtx, dr.nodeID, dr.result.Output)
	if err != nil {
		return err
	}
	p.execCtx = next
	_, err = p.queue.MarkCompleted(dr.nodeID, dr.result.Output, p.execCtx.NodeOutputs, p.execCtx.Variables, p.execCtx.Inputs)
	return err
}

func (s *Scheduler) accrueCredits(nodeType types.NodeType, result types.Result) float64 {
	if s.Credits == nil {
		return 0
	}
	if result.Signals.CreditCost != nil {
		return *result.Signals.CreditCost
	}
	if nodeType == types.NodeTypeLLM && result.Signals.TokenUsage != nil {
		tu := result.Signals.TokenUsage
		return s.Credits.CalculateLLMCredits(credit.LLMCreditsParams{
			Model: tu.Model, InputTokens: tu.PromptTokens, OutputTokens: tu.CompletionTokens,
		})
	}
	return s.Credits.CalculateNodeCredits(nodeType)
}

func (s *Scheduler) pauseExecution(ctx context.Context, p runParams, pauseCtx *types.PauseContext) (*Outcome, error) {
	if pauseCtx == nil {
		pauseCtx = &types.PauseContext{}
	}
	snap, err := pause.Snapshot(pause.SnapshotParams{
		ExecutionID:  p.executionID,
		WorkflowID:   p.execCtx.Metadata.WorkflowID,
		SnapshotType: types.SnapshotPause,
		Context:      p.execCtx,
		Queue:        p.queue,
		Reserved:     p.reserved,
		Accrued:      p.accrued,
		PauseContext: pauseCtx,
	})
	if err != nil {
		return nil, err
	}
	pauseCtx.Snapshot = snap

	s.emit(ctx, p.executionID, events.EventExecutionPaused, map[string]any{"nodeId": pauseCtx.NodeID, "reason": pauseCtx.Reason})
	return &Outcome{Paused: true, Snapshot: snap}, nil
}

func (s *Scheduler) finish(ctx context.Context, p runParams) (*Outcome, error) {
	if p.creditsActive {
		if err := s.Credits.FinalizeCredits(ctx, credit.FinalizeCreditsParams{
			WorkspaceID: p.workspaceID, ReservedAmount: p.reserved, ActualAmount: p.accrued,
			OperationType: "workflow_execution", OperationID: p.executionID,
		}); err != nil {
			return nil, err
		}
	}

	success, errMsg := evaluateOutcome(p.workflow, p.queue)
	eventType := events.EventExecutionCompleted
	if !success {
		eventType = events.EventExecutionFailed
	}
	s.emit(ctx, p.executionID, eventType, map[string]any{"success": success})

	return &Outcome{Final: &types.FinalResult{
		ExecutionID:        p.executionID,
		Success:            success,
		Error:              errMsg,
		AccumulatedCredits: p.accrued,
		Outputs:            execctx.BuildFinalOutputs(p.execCtx, outputNodes(p.workflow)),
		NodeOutputs:        p.execCtx.NodeOutputs,
	}}, nil
}

// cancelled drains the queue without dispatch and finalizes credits with
// actual = accumulated so far (spec.md §5, §7 Cancelled).
func (s *Scheduler) cancelled(p runParams) (*Outcome, error) {
	p.queue.SkipRemaining()

	bg := context.Background()
	if p.creditsActive {
		if err := s.Credits.FinalizeCredits(bg, credit.FinalizeCreditsParams{
			WorkspaceID: p.workspaceID, ReservedAmount: p.reserved, ActualAmount: p.accrued,
			OperationType: "workflow_execution", OperationID: p.executionID,
		}); err != nil {
			return nil, err
		}
	}
	s.emit(bg, p.executionID, events.EventExecutionFailed, map[string]any{"error": "cancelled"})

	return &Outcome{Final: &types.FinalResult{
		ExecutionID:        p.executionID,
		Success:            false,
		Error:              "cancelled",
		AccumulatedCredits: p.accrued,
		Outputs:            execctx.BuildFinalOutputs(p.execCtx, outputNodes(p.workflow)),
		NodeOutputs:        p.execCtx.NodeOutputs,
	}}, nil
}

func (s *Scheduler) preflightFail(ctx context.Context, executionID string, execCtx *types.ExecutionContext, errMsg string) (*Outcome, error) {
	s.emit(ctx, executionID, events.EventExecutionFailed, map[string]any{"error": errMsg})
	return &Outcome{Final: &types.FinalResult{
		ExecutionID: executionID,
		Success:     false,
		Error:       errMsg,
		Outputs:     map[string]any{},
		NodeOutputs: execCtx.NodeOutputs,
	}}, nil
}

func (s *Scheduler) emit(ctx context.Context, executionID string, eventType events.EventType, data any) {
	if s.Events == nil {
		return
	}
	_ = s.Events.Emit(ctx, "workflow", executionID, eventType, data)
}

// evaluateOutcome reports the terminal success flag and, on failure, an
// error message. Per spec.md §7: an execution whose only failure is in a
// non-critical branch may still succeed if at least one output node
// completed.
func evaluateOutcome(workflow *types.BuiltWorkflow, qs *queue.State) (bool, string) {
	for id := range workflow.OutputNodeIDs {
		if qs.Status[id] == types.StatusCompleted {
			return true, ""
		}
	}

	var failedIDs []string
	for id, st := range qs.Status {
		if st == types.StatusFailed {
			failedIDs = append(failedIDs, id)
		}
	}
	sort.Strings(failedIDs)
	if len(failedIDs) == 0 {
		return false, "execution produced no output"
	}
	if len(failedIDs) == 1 {
		return false, fmt.Sprintf("Node %s failed", failedIDs[0])
	}
	return false, fmt.Sprintf("no output node completed; failed nodes: %s", strings.Join(failedIDs, ", "))
}

func outputNodes(workflow *types.BuiltWorkflow) map[string]*types.Node {
	out := make(map[string]*types.Node, len(workflow.OutputNodeIDs))
	for id := range workflow.OutputNodeIDs {
		out[id] = workflow.Nodes[id]
	}
	return out
}
