package credit

import (
	"context"
	"testing"

	"github.com/flowcore/workflowengine/pkg/dag"
	"github.com/flowcore/workflowengine/pkg/types"
)

func buildLinearWorkflow(t *testing.T) *types.BuiltWorkflow {
	t.Helper()
	nodes := []types.Node{
		{ID: "trigger", Type: types.NodeTypeInput},
		{ID: "T", Type: types.NodeTypeTransform},
		{ID: "H", Type: types.NodeTypeHTTP},
		{ID: "out", Type: types.NodeTypeOutput},
	}
	edges := []types.Edge{
		{ID: "e1", Source: "trigger", Target: "T", HandleType: types.HandleDefault},
		{ID: "e2", Source: "T", Target: "H", HandleType: types.HandleDefault},
		{ID: "e3", Source: "H", Target: "out", HandleType: types.HandleDefault},
	}
	b := &dag.Builder{}
	wf, err := b.Build(nodes, edges, 10)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return wf
}

func TestEstimateS1LinearWorkflow(t *testing.T) {
	wf := buildLinearWorkflow(t)
	svc := NewMemoryService(map[string]float64{"ws1": 100})

	estimate, err := svc.Estimate(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if estimate.TotalCredits != 3 {
		t.Fatalf("expected total estimate 3 (1 transform + 2 http), got %v", estimate.TotalCredits)
	}
	if Reservation(estimate.TotalCredits) != 4 {
		t.Fatalf("expected reservation ceil(3*1.2)=4, got %v", Reservation(estimate.TotalCredits))
	}
}

func TestS1LinearSuccessLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService(map[string]float64{"ws1": 100})

	ok, err := svc.ShouldAllowExecution(ctx, ShouldAllowExecutionParams{WorkspaceID: "ws1", EstimatedCredits: 4})
	if err != nil || !ok {
		t.Fatalf("expected allowed, got ok=%v err=%v", ok, err)
	}
	ok, err = svc.ReserveCredits(ctx, ReserveCreditsParams{WorkspaceID: "ws1", EstimatedCredits: 4})
	if err != nil || !ok {
		t.Fatalf("expected reserve to succeed, got ok=%v err=%v", ok, err)
	}

	accrued := svc.CalculateNodeCredits(types.NodeTypeTransform) + svc.CalculateNodeCredits(types.NodeTypeHTTP)
	if accrued != 3 {
		t.Fatalf("expected accrued 3, got %v", accrued)
	}

	if err := svc.FinalizeCredits(ctx, FinalizeCreditsParams{
		WorkspaceID:    "ws1",
		ReservedAmount: 4,
		ActualAmount:   accrued,
	}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	balance, reserved := svc.Balance("ws1")
	if balance != 97 {
		t.Fatalf("expected final balance 97, got %v", balance)
	}
	if reserved != 0 {
		t.Fatalf("expected reserved fully released, got %v", reserved)
	}
}

func TestS2MidFailureAccruesOnlyCompletedNodes(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService(map[string]float64{"ws1": 100})

	if _, err := svc.ReserveCredits(ctx, ReserveCreditsParams{WorkspaceID: "ws1", EstimatedCredits: 4}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	accrued := svc.CalculateNodeCredits(types.NodeTypeTransform) // only T completed before H failed

	if err := svc.FinalizeCredits(ctx, FinalizeCreditsParams{
		WorkspaceID:    "ws1",
		ReservedAmount: 4,
		ActualAmount:   accrued,
	}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	balance, reserved := svc.Balance("ws1")
	if balance != 99 {
		t.Fatalf("expected final balance 99, got %v", balance)
	}
	if reserved != 0 {
		t.Fatalf("expected reserved fully released, got %v", reserved)
	}
}

func TestS6InsufficientCreditsDeniesReservation(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService(map[string]float64{"ws1": 10})

	ok, err := svc.ShouldAllowExecution(ctx, ShouldAllowExecutionParams{WorkspaceID: "ws1", EstimatedCredits: 72})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected shouldAllowExecution to deny a 72-credit reservation against a 10-credit balance")
	}
}

func TestReserveCreditsGraceOverdraft(t *testing.T) {
	ctx := context.Background()
	// balance 95, reservation 100: shortfall 5, which is 5% of 100 < 10% grace.
	svc := NewMemoryService(map[string]float64{"ws1": 95})

	ok, err := svc.ReserveCredits(ctx, ReserveCreditsParams{WorkspaceID: "ws1", EstimatedCredits: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected grace overdraft to allow a 5%% shortfall reservation")
	}
}

func TestCalculateLLMCredits(t *testing.T) {
	svc := NewMemoryService(nil)
	got := svc.CalculateLLMCredits(LLMCreditsParams{InputTokens: 150, OutputTokens: 250})
	if got != 4 { // ceil(400/100) = 4
		t.Fatalf("expected 4, got %v", got)
	}
}
