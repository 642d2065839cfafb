// Package credit implements the Credit Lifecycle (C7): pre-flight
// estimation and reservation, per-node accrual, and finalization, per
// spec.md §4.7 and the external contract in §6.2.
//
// The Service interface matches spec.md §6.2 exactly so that the engine
// treats billing as a true external collaborator (SPEC_FULL.md non-goal:
// billing backend integration). Two reference implementations are
// provided: MemoryService for embedding/tests, and RedisService for a
// shared, multi-process balance.
package credit

import (
	"context"
	"math"
	"sort"

	"github.com/flowcore/workflowengine/pkg/types"
)

// GraceOverdraftRatio is the default shortfall tolerance below which
// shouldAllowExecution still permits a reservation (spec.md §4.7).
const GraceOverdraftRatio = 0.10

// ReservationMultiplier is applied to a workflow's static estimate to
// compute the credits actually held during execution (spec.md §4.7).
const ReservationMultiplier = 1.2

// defaultNodeCost is the node-type default accrual used when an executor
// reports no token usage or explicit creditCost override (spec.md §4.7).
var defaultNodeCost = map[types.NodeType]float64{
	types.NodeTypeInput:     0,
	types.NodeTypeOutput:    0,
	types.NodeTypeTransform: 1,
	types.NodeTypeHTTP:      2,
	types.NodeTypeLLM:       10,
}

// EstimateBreakdown is one line of a workflow's pre-flight cost estimate.
type EstimateBreakdown struct {
	NodeID   string         `json:"nodeId"`
	NodeType types.NodeType `json:"nodeType"`
	Credits  float64        `json:"credits"`
}

// Estimate is the result of a pre-flight workflow cost projection.
type Estimate struct {
	TotalCredits float64             `json:"totalCredits"`
	Breakdown    []EstimateBreakdown `json:"breakdown"`
	Confidence   float64             `json:"confidence"`
}

// ShouldAllowExecutionParams is the input to Service.ShouldAllowExecution.
type ShouldAllowExecutionParams struct {
	WorkspaceID       string
	EstimatedCredits  float64
}

// ReserveCreditsParams is the input to Service.ReserveCredits.
type ReserveCreditsParams struct {
	WorkspaceID      string
	EstimatedCredits float64
}

// ReleaseCreditsParams is the input to Service.ReleaseCredits.
type ReleaseCreditsParams struct {
	WorkspaceID string
	Amount      float64
}

// FinalizeCreditsParams is the input to Service.FinalizeCredits.
type FinalizeCreditsParams struct {
	WorkspaceID     string
	UserID          string
	ReservedAmount  float64
	ActualAmount    float64
	OperationType   string
	OperationID     string
}

// LLMCreditsParams is the input to Service.CalculateLLMCredits.
type LLMCreditsParams struct {
	Model        string
	InputTokens  int
	OutputTokens int
}

// Service is the credit service contract consumed by the engine
// (spec.md §6.2). Every mutating method must be atomic with respect to
// concurrent calls for the same workspace.
type Service interface {
	Estimate(workflow *types.BuiltWorkflow) (Estimate, error)
	ShouldAllowExecution(ctx context.Context, params ShouldAllowExecutionParams) (bool, error)
	ReserveCredits(ctx context.Context, params ReserveCreditsParams) (bool, error)
	ReleaseCredits(ctx context.Context, params ReleaseCreditsParams) error
	FinalizeCredits(ctx context.Context, params FinalizeCreditsParams) error
	CalculateLLMCredits(params LLMCreditsParams) float64
	CalculateNodeCredits(nodeType types.NodeType) float64
}

// EstimateWorkflow computes the static pre-flight estimate for workflow
// using the shared node-type cost table. Both reference Service
// implementations delegate Estimate to this so the projection logic isn't
// duplicated per backend.
func EstimateWorkflow(workflow *types.BuiltWorkflow, calcNodeCredits func(types.NodeType) float64) Estimate {
	breakdown := make([]EstimateBreakdown, 0, len(workflow.Nodes))
	var total float64
	hasLLM := false
	for _, id := range sortedNodeIDs(workflow) {
		n := workflow.Nodes[id]
		cost := calcNodeCredits(n.Type)
		breakdown = append(breakdown, EstimateBreakdown{NodeID: n.ID, NodeType: n.Type, Credits: cost})
		total += cost
		if n.Type == types.NodeTypeLLM {
			hasLLM = true
		}
	}
	confidence := 1.0
	if hasLLM {
		// LLM nodes accrue by actual token usage at runtime, so a static
		// estimate built from the flat default is necessarily loose.
		confidence = 0.7
	}
	return Estimate{TotalCredits: total, Breakdown: breakdown, Confidence: confidence}
}

// Reservation returns ceil(estimate * ReservationMultiplier).
func Reservation(estimate float64) float64 {
	return math.Ceil(estimate * ReservationMultiplier)
}

func sortedNodeIDs(workflow *types.BuiltWorkflow) []string {
	ids := make([]string, 0, len(workflow.Nodes))
	for id := range workflow.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
