// Package router implements the Edge Router (C5): given a just-completed
// node and its outgoing edges, decides which edges fire per spec.md §4.5.
//
// Conditional/switch predicate and selector evaluation is grounded on the
// teacher's SwitchExecutor case-matching (pkg/executor/switch.go) and
// Engine.isConditionSatisfied (pkg/engine/engine.go), generalized from
// sniffing well-known fields on a result map to evaluating the node's own
// `condition`/`selector` expr-lang expression against the full execution
// context, and from an implicit "first truthy field wins" rule to the
// spec's explicit HandleType enum on Edge.
package router

import (
	"fmt"
	"sort"

	"github.com/flowcore/workflowengine/pkg/expression"
	"github.com/flowcore/workflowengine/pkg/types"
)

// Route decides which of outgoing fire, given that node just completed with
// the given output. nodeOutputs/variables/inputs are the flattened execution
// context, used to build the expr-lang environment for conditional/switch
// expressions.
//
// Handle-family resolution (spec.md §4.5, §9 tie-breaking):
//   - fallback: fires, suppressing the node's normal handle family, when
//     output carries no content (see hasNoContent). If no fallback edge is
//     declared, the node's normal family is evaluated as usual.
//   - conditional nodes only ever fire true/false edges.
//   - switch nodes only ever fire case-<v>/default edges; case edges are
//     tried in ascending edge-id order (the workflow's declaration order,
//     since ids are assigned in declaration sequence) and the first match
//     wins; remaining case edges do not fire.
//   - every other node type fires its default edges.
func Route(node *types.Node, outgoing []*types.Edge, output any, nodeOutputs, variables, inputs map[string]any) ([]*types.Edge, error) {
	sorted := append([]*types.Edge(nil), outgoing...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if hasNoContent(output) {
		if fallback := byHandle(sorted, types.HandleFallback); len(fallback) > 0 {
			return fallback, nil
		}
	}

	evalCtx := &expression.Context{
		NodeResults: nodeOutputs,
		Variables:   variables,
		ContextVars: inputs,
	}

	switch node.Type {
	case types.NodeTypeConditional:
		return routeConditional(node, sorted, output, evalCtx)
	case types.NodeTypeSwitch:
		return routeSwitch(node, sorted, output, evalCtx)
	default:
		return byHandle(sorted, types.HandleDefault), nil
	}
}

func routeConditional(node *types.Node, sorted []*types.Edge, output any, ctx *expression.Context) ([]*types.Edge, error) {
	condition, _ := node.Config["condition"].(string)
	if condition == "" {
		return nil, fmt.Errorf("%w: node %q", ErrMissingConditionalExpression, node.ID)
	}
	predicate, err := expression.Evaluate(condition, output, ctx)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", node.ID, err)
	}
	handle := types.HandleFalse
	if predicate {
		handle = types.HandleTrue
	}
	return byHandle(sorted, handle), nil
}

func routeSwitch(node *types.Node, sorted []*types.Edge, output any, ctx *expression.Context) ([]*types.Edge, error) {
	selector, _ := node.Config["selector"].(string)
	if selector == "" {
		return nil, fmt.Errorf("%w: node %q", ErrMissingSwitchSelector, node.ID)
	}
	value, err := expression.EvaluateExpression(selector, output, ctx)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", node.ID, err)
	}
	selected := fmt.Sprintf("%v", value)

	for _, e := range sorted {
		if v, ok := e.HandleType.IsCase(); ok && v == selected {
			return []*types.Edge{e}, nil
		}
	}
	return byHandle(sorted, types.HandleDefault), nil
}

func byHandle(edges []*types.Edge, handle types.HandleType) []*types.Edge {
	var out []*types.Edge
	for _, e := range edges {
		if e.HandleType == handle {
			out = append(out, e)
		}
	}
	return out
}

// hasNoContent reports whether output represents "no content" under the
// generic node-agnostic rule: nil, an empty string, or an empty map/slice.
// Executors that need a stronger notion of failure should route through
// Result.Success (handled upstream by the Scheduler/Queue as markFailed,
// not as a fallback edge).
func hasNoContent(output any) bool {
	switch v := output.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
