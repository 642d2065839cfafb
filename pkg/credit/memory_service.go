package credit

import (
	"context"
	"math"
	"sync"

	"github.com/flowcore/workflowengine/pkg/types"
)

// MemoryService is a single-process, mutex-guarded Service implementation
// for tests and for embedding the engine without external billing state.
// Grounded on the teacher's pkg/state.Manager mutex-guarded map pattern,
// generalized from user variables to per-workspace balance/reserved
// ledgers.
type MemoryService struct {
	mu                  sync.Mutex
	balance             map[string]float64
	reserved            map[string]float64
	graceOverdraftRatio float64
}

// NewMemoryService constructs a MemoryService with the given starting
// per-workspace balances and the default grace overdraft ratio.
func NewMemoryService(initialBalances map[string]float64) *MemoryService {
	balance := make(map[string]float64, len(initialBalances))
	for k, v := range initialBalances {
		balance[k] = v
	}
	return &MemoryService{
		balance:             balance,
		reserved:            make(map[string]float64),
		graceOverdraftRatio: GraceOverdraftRatio,
	}
}

// Balance returns the current balance and outstanding reservation for
// workspaceID, for diagnostics and test assertions.
func (s *MemoryService) Balance(workspaceID string) (balance, reserved float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance[workspaceID], s.reserved[workspaceID]
}

// Estimate implements Service.
func (s *MemoryService) Estimate(workflow *types.BuiltWorkflow) (Estimate, error) {
	return EstimateWorkflow(workflow, s.CalculateNodeCredits), nil
}

// ShouldAllowExecution implements Service: allows when the available
// balance covers the reservation, or the shortfall is strictly under the
// grace overdraft ratio of the reservation.
func (s *MemoryService) ShouldAllowExecution(ctx context.Context, params ShouldAllowExecutionParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allows(params.WorkspaceID, params.EstimatedCredits), nil
}

func (s *MemoryService) allows(workspaceID string, estimated float64) bool {
	available := s.balance[workspaceID] - s.reserved[workspaceID]
	if available >= estimated {
		return true
	}
	shortfall := estimated - available
	return shortfall < estimated*s.graceOverdraftRatio
}

// ReserveCredits implements Service: re-checks allowance atomically under
// lock (closing the race window between a caller's ShouldAllowExecution
// pre-check and this call) and, if allowed, debits reserved by the
// requested amount.
func (s *MemoryService) ReserveCredits(ctx context.Context, params ReserveCreditsParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.allows(params.WorkspaceID, params.EstimatedCredits) {
		return false, nil
	}
	s.reserved[params.WorkspaceID] += params.EstimatedCredits
	return true, nil
}

// ReleaseCredits implements Service.
func (s *MemoryService) ReleaseCredits(ctx context.Context, params ReleaseCreditsParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved[params.WorkspaceID] -= params.Amount
	if s.reserved[params.WorkspaceID] < 0 {
		s.reserved[params.WorkspaceID] = 0
	}
	return nil
}

// FinalizeCredits implements Service: releases the residual reservation
// and debits the actual amount from balance, atomically.
func (s *MemoryService) FinalizeCredits(ctx context.Context, params FinalizeCreditsParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved[params.WorkspaceID] -= params.ReservedAmount
	if s.reserved[params.WorkspaceID] < 0 {
		s.reserved[params.WorkspaceID] = 0
	}
	s.balance[params.WorkspaceID] -= params.ActualAmount
	return nil
}

// CalculateLLMCredits implements Service: ceil((inputTokens+outputTokens)/100).
func (s *MemoryService) CalculateLLMCredits(params LLMCreditsParams) float64 {
	return math.Ceil(float64(params.InputTokens+params.OutputTokens) / 100)
}

// CalculateNodeCredits implements Service, returning the node-type default
// accrual (spec.md §4.7). Node types with no explicit default accrue 1
// credit, the transform-node baseline, since they still represent one unit
// of engine-dispatched work.
func (s *MemoryService) CalculateNodeCredits(nodeType types.NodeType) float64 {
	if cost, ok := defaultNodeCost[nodeType]; ok {
		return cost
	}
	return 1
}
