// Package queue implements the Queue State (C3): per-node lifecycle
// tracking, the ready-set computation, and failure-propagation to
// unreachable descendants, per spec.md §4.3.
//
// Grounded on the teacher's pkg/state.Manager mutex-guarded map pattern
// (generalized here from variables/accumulators to per-node NodeStatus),
// consulting pkg/router for the fired-edge decision on each completion.
package queue

import (
	"sort"

	"github.com/flowcore/workflowengine/pkg/router"
	"github.com/flowcore/workflowengine/pkg/types"
)

// State is the live queue for one execution: every node's NodeStatus plus
// the set of edges that have fired so far.
type State struct {
	Workflow    *types.BuiltWorkflow
	Status      map[string]types.NodeStatus
	FiredEdges  map[string]bool
}

// Initialize sets the trigger to ready and every other node to pending
// (spec.md §4.3).
func Initialize(workflow *types.BuiltWorkflow) *State {
	status := make(map[string]types.NodeStatus, len(workflow.Nodes))
	for id := range workflow.Nodes {
		status[id] = types.StatusPending
	}
	status[workflow.TriggerNodeID] = types.StatusReady
	return &State{
		Workflow:   workflow,
		Status:     status,
		FiredEdges: make(map[string]bool),
	}
}

// ReadyNodes returns up to cap-|executing| ready node ids, ordered
// deterministically by (depth asc, id asc).
func (s *State) ReadyNodes(cap int) []string {
	executing := s.countStatus(types.StatusExecuting)
	budget := cap - executing
	if budget <= 0 {
		return nil
	}

	var ready []string
	for id, st := range s.Status {
		if st == types.StatusReady {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		ni, nj := s.Workflow.Nodes[ready[i]], s.Workflow.Nodes[ready[j]]
		if ni.Depth != nj.Depth {
			return ni.Depth < nj.Depth
		}
		return ready[i] < ready[j]
	})

	if len(ready) > budget {
		ready = ready[:budget]
	}
	return ready
}

// MarkExecuting transitions ids from ready to executing.
func (s *State) MarkExecuting(ids []string) error {
	for _, id := range ids {
		if s.Status[id] != types.StatusReady {
			return ErrNotReady
		}
	}
	for _, id := range ids {
		s.Status[id] = types.StatusExecuting
	}
	return nil
}

// MarkCompleted sets nodeID to completed, asks the Edge Router which
// outgoing edges fire given output, and promotes/unreaches every dependent
// whose dependencies are now all resolved. Returns the ids newly promoted
// to ready.
func (s *State) MarkCompleted(nodeID string, output any, nodeOutputs, variables, inputs map[string]any) ([]string, error) {
	node, ok := s.Workflow.Nodes[nodeID]
	if !ok {
		return nil, ErrUnknownNode
	}
	s.Status[nodeID] = types.StatusCompleted

	outgoing := s.Workflow.OutgoingEdges(nodeID)
	fired, err := router.Route(node, outgoing, output, nodeOutputs, variables, inputs)
	if err != nil {
		return nil, err
	}
	for _, e := range fired {
		s.FiredEdges[e.ID] = true
	}

	var newlyReady []string
	for _, dependentID := range node.Dependents {
		if s.resolveReadiness(dependentID) {
			newlyReady = append(newlyReady, dependentID)
		}
	}
	return newlyReady, nil
}

// resolveReadiness promotes nodeID to ready if all its dependencies are
// resolved and at least one incoming edge fired, or to unreachable if all
// dependencies are resolved but none fired. Returns true iff it was
// promoted to ready.
func (s *State) resolveReadiness(nodeID string) bool {
	if s.Status[nodeID] != types.StatusPending {
		return false
	}
	node := s.Workflow.Nodes[nodeID]
	for _, dep := range node.Dependencies {
		if !isTerminal(s.Status[dep]) {
			return false
		}
	}

	anyFired := false
	for _, e := range s.Workflow.IncomingEdges(nodeID) {
		if s.FiredEdges[e.ID] {
			anyFired = true
			break
		}
	}
	if anyFired {
		s.Status[nodeID] = types.StatusReady
		return true
	}
	s.Status[nodeID] = types.StatusUnreachable
	return false
}

// MarkFailed sets nodeID to failed and marks every strict descendant (one
// with no surviving path to the trigger that bypasses nodeID) unreachable.
// Descendants with an alternate completed predecessor remain eligible
// (spec.md §4.3).
func (s *State) MarkFailed(nodeID string, message string) error {
	if _, ok := s.Workflow.Nodes[nodeID]; !ok {
		return ErrUnknownNode
	}
	s.Status[nodeID] = types.StatusFailed

	reachable := s.reachableFromTriggerExcluding(nodeID)
	for id, st := range s.Status {
		if id == nodeID {
			continue
		}
		if st == types.StatusPending || st == types.StatusReady || st == types.StatusExecuting {
			if !reachable[id] {
				s.Status[id] = types.StatusUnreachable
			}
		}
	}
	return nil
}

func (s *State) reachableFromTriggerExcluding(blocked string) map[string]bool {
	reachable := map[string]bool{}
	trigger := s.Workflow.TriggerNodeID
	if trigger == blocked {
		return reachable
	}
	reachable[trigger] = true
	queue := []string{trigger}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range s.Workflow.OutgoingEdges(current) {
			if e.Target == blocked || reachable[e.Target] {
				continue
			}
			reachable[e.Target] = true
			queue = append(queue, e.Target)
		}
	}
	return reachable
}

// SkipRemaining transitions every pending or ready node directly to
// skipped, bypassing edge evaluation and dependency checks. Used by
// external cancellation (spec.md §5): once the in-flight batch has
// drained, remaining work is abandoned rather than dispatched. Returns the
// skipped ids.
func (s *State) SkipRemaining() []string {
	var skipped []string
	for id, st := range s.Status {
		if st == types.StatusPending || st == types.StatusReady {
			s.Status[id] = types.StatusSkipped
			skipped = append(skipped, id)
		}
	}
	sort.Strings(skipped)
	return skipped
}

// Resync re-evaluates every pending node's readiness against the current
// FiredEdges set and returns the ids promoted to ready. Used by the
// Pause/Resume Controller after reconstructing a State from a snapshot,
// whose completed/pending/executing/failed/skipped buckets don't carry a
// distinct "ready but not yet dispatched" bucket of their own.
func (s *State) Resync() []string {
	var promoted []string
	for id, st := range s.Status {
		if st != types.StatusPending {
			continue
		}
		if s.resolveReadiness(id) {
			promoted = append(promoted, id)
		}
	}
	sort.Strings(promoted)
	return promoted
}

// IsExecutionComplete reports whether no node remains pending, ready, or
// executing.
func (s *State) IsExecutionComplete() bool {
	for _, st := range s.Status {
		if st == types.StatusPending || st == types.StatusReady || st == types.StatusExecuting {
			return false
		}
	}
	return true
}

func (s *State) countStatus(target types.NodeStatus) int {
	n := 0
	for _, st := range s.Status {
		if st == target {
			n++
		}
	}
	return n
}

func isTerminal(st types.NodeStatus) bool {
	switch st {
	case types.StatusCompleted, types.StatusFailed, types.StatusSkipped, types.StatusUnreachable:
		return true
	}
	return false
}
