// Package dag implements the Workflow Builder (C2): it validates a raw
// workflow definition and turns it into a types.BuiltWorkflow ready for the
// Scheduler Loop.
//
// The acyclicity check and depth/executionLevels derivation are grounded on
// the teacher engine's pkg/graph.TopologicalSort (Kahn's algorithm with a
// ring-buffer queue) and parallel_executor.go's computeExecutionLevels
// (level-BFS), generalized here to first strip out loop-closing back edges
// so that bounded `loop` nodes don't register as illegal cycles.
package dag

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/flowcore/workflowengine/pkg/types"
)

const defaultMaxIterations = 10

// Builder validates and compiles raw workflow definitions. Its zero value is
// ready to use; Schemas is optional per-node-type config validation.
type Builder struct {
	// Schemas, when set, validates each node's Config against a JSON schema
	// keyed by NodeType. A NodeType absent from the map is unconstrained.
	Schemas map[types.NodeType]*gojsonschema.Schema
}

// Build validates nodes/edges per spec.md §4.2 and returns a compiled
// types.BuiltWorkflow. maxConcurrentNodes <= 0 falls back to 10 (spec.md §3).
func (b *Builder) Build(nodes []types.Node, edges []types.Edge, maxConcurrentNodes int) (*types.BuiltWorkflow, error) {
	if maxConcurrentNodes <= 0 {
		maxConcurrentNodes = 10
	}

	nodeMap := make(map[string]*types.Node, len(nodes))
	for i := range nodes {
		n := nodes[i]
		nodeMap[n.ID] = &n
	}

	edgeMap := make(map[string]*types.Edge, len(edges))
	for i := range edges {
		e := edges[i]
		if _, ok := nodeMap[e.Source]; !ok {
			return nil, fmt.Errorf("%w: edge %q source %q", ErrUnknownNodeReference, e.ID, e.Source)
		}
		if _, ok := nodeMap[e.Target]; !ok {
			return nil, fmt.Errorf("%w: edge %q target %q", ErrUnknownNodeReference, e.ID, e.Target)
		}
		edgeMap[e.ID] = &e
	}

	triggerID, err := findTrigger(nodeMap)
	if err != nil {
		return nil, err
	}

	if err := b.validateConfigs(nodeMap); err != nil {
		return nil, err
	}

	adjacency := buildAdjacency(edges)

	loopBackEdges, loopContexts, err := detectLoops(nodeMap, adjacency, triggerID)
	if err != nil {
		return nil, err
	}

	effectiveAdjacency := withoutEdges(adjacency, loopBackEdges)

	depth, order, err := computeDepths(nodeMap, effectiveAdjacency)
	if err != nil {
		return nil, err
	}
	for id, d := range depth {
		n := nodeMap[id]
		n.Depth = d
	}

	outputNodeIDs := make(map[string]bool)
	for id, n := range nodeMap {
		if n.Type == types.NodeTypeOutput {
			outputNodeIDs[id] = true
		}
	}
	if err := checkReachability(triggerID, outputNodeIDs, adjacency); err != nil {
		return nil, err
	}

	assignDependencies(nodeMap, effectiveAdjacency)

	executionLevels := groupByDepth(order, depth)

	return &types.BuiltWorkflow{
		Nodes:              nodeMap,
		Edges:              edgeMap,
		ExecutionLevels:    executionLevels,
		TriggerNodeID:      triggerID,
		OutputNodeIDs:       outputNodeIDs,
		LoopContexts:       loopContexts,
		MaxConcurrentNodes: maxConcurrentNodes,
	}, nil
}

func findTrigger(nodeMap map[string]*types.Node) (string, error) {
	var triggerID string
	count := 0
	ids := sortedKeys(nodeMap)
	for _, id := range ids {
		if nodeMap[id].Type == types.NodeTypeInput {
			count++
			triggerID = id
		}
	}
	if count != 1 {
		return "", fmt.Errorf("%w: found %d input-typed nodes", ErrMissingOrAmbiguousTrigger, count)
	}
	return triggerID, nil
}

func (b *Builder) validateConfigs(nodeMap map[string]*types.Node) error {
	if len(b.Schemas) == 0 {
		return nil
	}
	for _, id := range sortedKeys(nodeMap) {
		n := nodeMap[id]
		schema, ok := b.Schemas[n.Type]
		if !ok || schema == nil {
			continue
		}
		cfgBytes, err := json.Marshal(n.Config)
		if err != nil {
			return fmt.Errorf("%w: node %q: %v", ErrInvalidNodeConfig, n.ID, err)
		}
		result, err := schema.Validate(gojsonschema.NewBytesLoader(cfgBytes))
		if err != nil {
			return fmt.Errorf("%w: node %q: %v", ErrInvalidNodeConfig, n.ID, err)
		}
		if !result.Valid() {
			return fmt.Errorf("%w: node %q: %v", ErrInvalidNodeConfig, n.ID, result.Errors())
		}
	}
	return nil
}

// buildAdjacency returns source -> outgoing edges, each node's edges sorted
// by target id for deterministic traversal.
func buildAdjacency(edges []types.Edge) map[string][]types.Edge {
	adjacency := make(map[string][]types.Edge)
	for _, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], e)
	}
	for src := range adjacency {
		list := adjacency[src]
		sort.Slice(list, func(i, j int) bool { return list[i].Target < list[j].Target })
		adjacency[src] = list
	}
	return adjacency
}

func withoutEdges(adjacency map[string][]types.Edge, exclude map[string]bool) map[string][]types.Edge {
	out := make(map[string][]types.Edge, len(adjacency))
	for src, list := range adjacency {
		kept := make([]types.Edge, 0, len(list))
		for _, e := range list {
			if !exclude[e.ID] {
				kept = append(kept, e)
			}
		}
		out[src] = kept
	}
	return out
}

// detectLoops walks the graph via DFS looking for back edges. A back edge
// that closes onto a `loop`-typed node is legal: the nodes on the DFS stack
// between the loop node and the closing node become that loop's body
// (spec.md §3, §4.2). Any other back edge is a genuine illegal cycle.
func detectLoops(nodeMap map[string]*types.Node, adjacency map[string][]types.Edge, triggerID string) (map[string]bool, map[string]*types.LoopContext, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodeMap))
	var stack []string
	stackPos := make(map[string]int, len(nodeMap))
	loopBackEdges := make(map[string]bool)
	loopContexts := make(map[string]*types.LoopContext)

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		stackPos[id] = len(stack)
		stack = append(stack, id)

		for _, e := range adjacency[id] {
			switch color[e.Target] {
			case white:
				if err := visit(e.Target); err != nil {
					return err
				}
			case gray:
				loopNode := nodeMap[e.Target]
				if loopNode == nil || loopNode.Type != types.NodeTypeLoop {
					return fmt.Errorf("%w: edge %q closes a cycle at non-loop node %q", ErrCyclicWorkflow, e.ID, e.Target)
				}
				loopBackEdges[e.ID] = true
				body := append([]string(nil), stack[stackPos[e.Target]+1:]...)
				lc, ok := loopContexts[e.Target]
				if !ok {
					maxIter := defaultMaxIterations
					if v, ok := loopNode.Config["maxIterations"]; ok {
						if f, ok := toInt(v); ok {
							maxIter = f
						}
					}
					iterationVar, _ := loopNode.Config["iterationVar"].(string)
					lc = &types.LoopContext{
						LoopNodeID:    e.Target,
						MaxIterations: maxIter,
						IterationVar:  iterationVar,
					}
					loopContexts[e.Target] = lc
				}
				lc.BodyNodeIDs = mergeUnique(lc.BodyNodeIDs, body)
			case black:
				// cross/forward edge into an already-finished subtree; fine.
			}
		}

		stack = stack[:len(stack)-1]
		delete(stackPos, id)
		color[id] = black
		return nil
	}

	// Start from the trigger so a loop node is entered before its body.
	for _, id := range append([]string{triggerID}, sortedKeys(nodeMap)...) {
		if color[id] == white {
			if err := visit(id); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, lc := range loopContexts {
		sort.Strings(lc.BodyNodeIDs)
	}
	return loopBackEdges, loopContexts, nil
}

// computeDepths runs Kahn's algorithm over the loop-back-edge-free graph,
// assigning depth(node) = 1 + max(depth(dependency)), trigger depth 0. If
// fewer than len(nodeMap) nodes are processed, a non-loop cycle survived.
func computeDepths(nodeMap map[string]*types.Node, adjacency map[string][]types.Edge) (map[string]int, []string, error) {
	inDegree := make(map[string]int, len(nodeMap))
	for id := range nodeMap {
		inDegree[id] = 0
	}
	for _, list := range adjacency {
		for _, e := range list {
			inDegree[e.Target]++
		}
	}

	depth := make(map[string]int, len(nodeMap))
	var queue []string
	for _, id := range sortedKeys(nodeMap) {
		if inDegree[id] == 0 {
			depth[id] = 0
			queue = append(queue, id)
		}
	}

	var order []string
	for len(queue) > 0 {
		sort.Strings(queue)
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, e := range adjacency[current] {
			if d := depth[current] + 1; d > depth[e.Target] {
				depth[e.Target] = d
			}
			inDegree[e.Target]--
			if inDegree[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}

	if len(order) != len(nodeMap) {
		return nil, nil, ErrCyclicWorkflow
	}
	return depth, order, nil
}

func checkReachability(triggerID string, outputNodeIDs map[string]bool, adjacency map[string][]types.Edge) error {
	visited := map[string]bool{triggerID: true}
	queue := []string{triggerID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range adjacency[current] {
			if !visited[e.Target] {
				visited[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}
	for _, id := range sortedBoolKeys(outputNodeIDs) {
		if !visited[id] {
			return fmt.Errorf("%w: %q", ErrUnreachableOutput, id)
		}
	}
	return nil
}

func assignDependencies(nodeMap map[string]*types.Node, adjacency map[string][]types.Edge) {
	for _, list := range adjacency {
		for _, e := range list {
			src, tgt := nodeMap[e.Source], nodeMap[e.Target]
			tgt.Dependencies = append(tgt.Dependencies, src.ID)
			src.Dependents = append(src.Dependents, tgt.ID)
		}
	}
	for _, n := range nodeMap {
		sort.Strings(n.Dependencies)
		sort.Strings(n.Dependents)
	}
}

func groupByDepth(order []string, depth map[string]int) [][]string {
	maxDepth := 0
	for _, d := range depth {
		if d > maxDepth {
			maxDepth = d
		}
	}
	levels := make([][]string, maxDepth+1)
	for _, id := range order {
		d := depth[id]
		levels[d] = append(levels[d], id)
	}
	for _, level := range levels {
		sort.Strings(level)
	}
	return levels
}

func sortedKeys(nodeMap map[string]*types.Node) []string {
	keys := make([]string, 0, len(nodeMap))
	for id := range nodeMap {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func sortedBoolKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func mergeUnique(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range additions {
		if !seen[id] {
			seen[id] = true
			existing = append(existing, id)
		}
	}
	return existing
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
