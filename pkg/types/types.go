// Package types provides shared type definitions for the workflow execution
// engine. All core data structures used across packages are defined here to
// avoid circular dependencies between the builder, scheduler, and executor
// packages.
package types

import (
	"context"
	"time"
)

// ============================================================================
// Context Keys
// ============================================================================

type contextKey string

const (
	// ContextKeyExecutionID is the context key for the unique execution ID.
	ContextKeyExecutionID contextKey = "execution_id"

	// ContextKeyWorkflowID is the context key for the workflow ID.
	ContextKeyWorkflowID contextKey = "workflow_id"
)

// GetExecutionID extracts the execution ID from context.
// Returns empty string if not found in context.
func GetExecutionID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyExecutionID).(string); ok {
		return id
	}
	return ""
}

// GetWorkflowID extracts the workflow ID from context.
// Returns empty string if not found in context.
func GetWorkflowID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyWorkflowID).(string); ok {
		return id
	}
	return ""
}

// ============================================================================
// Node types
// ============================================================================

// NodeType is the closed set of node roles the engine understands at the
// scheduling level. Node-specific behavior beyond dispatch lives in the
// external ExecuteNode contract.
type NodeType string

const (
	NodeTypeInput          NodeType = "input"
	NodeTypeOutput         NodeType = "output"
	NodeTypeLLM            NodeType = "llm"
	NodeTypeHTTP           NodeType = "http"
	NodeTypeTransform      NodeType = "transform"
	NodeTypeConditional    NodeType = "conditional"
	NodeTypeSwitch         NodeType = "switch"
	NodeTypeLoop           NodeType = "loop"
	NodeTypeWaitForUser    NodeType = "waitForUser"
	NodeTypeDatabase       NodeType = "database"
	NodeTypeVision         NodeType = "vision"
	NodeTypeFileOperations NodeType = "fileOperations"
	NodeTypeAgent          NodeType = "agent"
)

// IsValid reports whether t belongs to the closed set of node types.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeInput, NodeTypeOutput, NodeTypeLLM, NodeTypeHTTP, NodeTypeTransform,
		NodeTypeConditional, NodeTypeSwitch, NodeTypeLoop, NodeTypeWaitForUser,
		NodeTypeDatabase, NodeTypeVision, NodeTypeFileOperations, NodeTypeAgent:
		return true
	}
	return false
}

// HandleType labels an edge with the condition under which it fires.
type HandleType string

const (
	HandleDefault  HandleType = "default"
	HandleTrue     HandleType = "true"
	HandleFalse    HandleType = "false"
	HandleFallback HandleType = "fallback"
)

// CasePrefix precedes the matched value on a switch case handle, e.g. "case-image".
const CasePrefix = "case-"

// IsCase reports whether h is a "case-<value>" handle and returns the value.
func (h HandleType) IsCase() (value string, ok bool) {
	s := string(h)
	if len(s) > len(CasePrefix) && s[:len(CasePrefix)] == CasePrefix {
		return s[len(CasePrefix):], true
	}
	return "", false
}

// Node is a unit of work in a workflow graph.
type Node struct {
	ID   string         `json:"id"`
	Type NodeType       `json:"type"`
	Name string         `json:"name"`
	Config map[string]any `json:"config"`

	// Depth and Dependencies/Dependents are computed by the Workflow Builder
	// (pkg/dag) and are not set on a raw definition.
	Depth        int      `json:"depth"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// Edge is a typed connection between two nodes.
type Edge struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	Target        string     `json:"target"`
	SourceHandle  string     `json:"sourceHandle,omitempty"`
	TargetHandle  string     `json:"targetHandle,omitempty"`
	HandleType    HandleType `json:"handleType"`
}

// LoopContext records the bookkeeping the Builder derives for a `loop` node.
type LoopContext struct {
	LoopNodeID    string   `json:"loopNodeId"`
	BodyNodeIDs   []string `json:"bodyNodeIds"`
	MaxIterations int      `json:"maxIterations"`
	IterationVar  string   `json:"iterationVar"`
}

// BuiltWorkflow is the execution-ready graph produced by the Workflow Builder.
type BuiltWorkflow struct {
	Nodes              map[string]*Node       `json:"nodes"`
	Edges              map[string]*Edge       `json:"edges"`
	ExecutionLevels    [][]string             `json:"executionLevels"`
	TriggerNodeID      string                 `json:"triggerNodeId"`
	OutputNodeIDs      map[string]bool        `json:"outputNodeIds"`
	LoopContexts       map[string]*LoopContext `json:"loopContexts"`
	MaxConcurrentNodes int                    `json:"maxConcurrentNodes"`
}

// OutgoingEdges returns every edge whose Source is nodeID. It walks the
// Edges map, so the order of the result is not defined.
func (w *BuiltWorkflow) OutgoingEdges(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range w.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns every edge whose Target is nodeID.
func (w *BuiltWorkflow) IncomingEdges(nodeID string) []*Edge {
	var in []*Edge
	for _, e := range w.Edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// ============================================================================
// Execution context
// ============================================================================

// ExecutionMetadata carries identifying information for one run.
type ExecutionMetadata struct {
	ExecutionID string    `json:"executionId"`
	WorkflowID  string    `json:"workflowId"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
}

// ExecutionContext is the live, copy-on-write data carrier for one execution.
// Every mutator in pkg/execctx returns a new *ExecutionContext rather than
// mutating the receiver in place.
type ExecutionContext struct {
	Inputs      map[string]any `json:"inputs"`
	NodeOutputs map[string]any `json:"nodeOutputs"`
	Variables   map[string]any `json:"variables"`
	Metadata    ExecutionMetadata `json:"metadata"`
}

// ============================================================================
// Node status / queue state
// ============================================================================

// NodeStatus is a node's lifecycle state within one execution's queue.
type NodeStatus string

const (
	StatusPending     NodeStatus = "pending"
	StatusReady       NodeStatus = "ready"
	StatusExecuting   NodeStatus = "executing"
	StatusCompleted   NodeStatus = "completed"
	StatusFailed      NodeStatus = "failed"
	StatusSkipped     NodeStatus = "skipped"
	StatusUnreachable NodeStatus = "unreachable"
)

// ============================================================================
// Executor contract
// ============================================================================

// PauseContext is what the Pause/Resume Controller persists when an executor
// suspends an execution.
type PauseContext struct {
	Reason        string         `json:"reason"`
	NodeID        string         `json:"nodeId"`
	PausedAt      int64          `json:"pausedAt"` // monotonic tick, not wall clock
	ResumeTrigger string         `json:"resumeTrigger"`
	TimeoutMs     *int64         `json:"timeoutMs,omitempty"`
	PreservedData map[string]any `json:"preservedData,omitempty"`

	// Snapshot is the full execution-state snapshot taken at pause time.
	Snapshot *ExecutionSnapshot `json:"snapshot,omitempty"`
}

// TokenUsage reports LLM token counts for credit accrual.
type TokenUsage struct {
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	Model            string `json:"model,omitempty"`
}

// Signals carries out-of-band instructions from an executor back to the
// scheduler: a pause request and/or a cost hint for credit accrual.
type Signals struct {
	Pause        bool          `json:"pause,omitempty"`
	PauseContext *PauseContext `json:"pauseContext,omitempty"`
	CreditCost   *float64      `json:"creditCost,omitempty"`
	TokenUsage   *TokenUsage   `json:"tokenUsage,omitempty"`
}

// Result is what ExecuteNode returns for one node dispatch.
type Result struct {
	Success bool    `json:"success"`
	Output  any     `json:"output"`
	Error   string  `json:"error,omitempty"`
	Signals Signals `json:"signals,omitempty"`
}

// ExecMeta is passed to ExecuteNode for logging/telemetry correlation.
// Workflow is populated by the Scheduler Loop and gives structural
// executors (loop, conditional, switch) read-only access to the graph
// they're embedded in without the executor package depending on the
// scheduler; it is nil in contexts that dispatch a node in isolation
// (unit tests, plugin-side handlers).
type ExecMeta struct {
	ExecutionID string
	NodeID      string
	NodeName    string
	Type        NodeType
	Workflow    *BuiltWorkflow
}

// ============================================================================
// Credit ledger
// ============================================================================

// LedgerEntryKind identifies the kind of a CreditLedgerEntry.
type LedgerEntryKind string

const (
	LedgerKindReserve  LedgerEntryKind = "reserve"
	LedgerKindRelease  LedgerEntryKind = "release"
	LedgerKindFinalize LedgerEntryKind = "finalize"
)

// CreditLedgerEntry is a transactional audit row for one credit operation.
type CreditLedgerEntry struct {
	Kind          LedgerEntryKind `json:"kind"`
	Amount        float64         `json:"amount"`
	ActualAmount  *float64        `json:"actualAmount,omitempty"`
	OperationType string          `json:"operationType"`
	OperationID   string          `json:"operationId"`
	WorkspaceID   string          `json:"workspaceId"`
	Timestamp     time.Time       `json:"timestamp"`
}

// ============================================================================
// Snapshots
// ============================================================================

// SnapshotType classifies why a snapshot was taken.
type SnapshotType string

const (
	SnapshotCheckpoint SnapshotType = "checkpoint"
	SnapshotPause      SnapshotType = "pause"
	SnapshotFailure    SnapshotType = "failure"
	SnapshotFinal      SnapshotType = "final"
)

// ExecutionSnapshot is a serializable record of an execution at a point in
// time: the execution context plus the queue state, sufficient for the
// Pause/Resume Controller to reconstruct the scheduler loop exactly.
type ExecutionSnapshot struct {
	ExecutionID     string                `json:"executionId"`
	WorkflowID      string                `json:"workflowId"`
	SnapshotType    SnapshotType          `json:"snapshotType"`
	CreatedAt       time.Time             `json:"createdAt"`
	Progress        int                   `json:"progress"`
	Context         *ExecutionContext     `json:"context"`
	CompletedNodes  []string              `json:"completedNodes"`
	PendingNodes    []string              `json:"pendingNodes"`
	ExecutingNodes  []string              `json:"executingNodes"`
	FailedNodes     []string              `json:"failedNodes"`
	SkippedNodes    []string              `json:"skippedNodes"`
	FiredEdges      []string              `json:"firedEdges"`
	LoopStates      map[string]int        `json:"loopStates,omitempty"`
	PauseContext    *PauseContext         `json:"pauseContext,omitempty"`
	Reserved        float64               `json:"reserved"`
	Accrued         float64               `json:"accrued"`
}

// ============================================================================
// Final result
// ============================================================================

// FinalResult is the terminal, user-visible outcome of an execution.
type FinalResult struct {
	ExecutionID       string         `json:"executionId"`
	Success           bool           `json:"success"`
	Error             string         `json:"error,omitempty"`
	FinalMessage      string         `json:"finalMessage,omitempty"`
	Iterations        int            `json:"iterations,omitempty"`
	AccumulatedCredits float64       `json:"accumulatedCredits"`
	Outputs           map[string]any `json:"outputs"`
	NodeOutputs       map[string]any `json:"nodeOutputs"`
	Paused            bool           `json:"paused,omitempty"`
}
