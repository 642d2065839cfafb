package executor

import (
	"sort"

	"github.com/flowcore/workflowengine/pkg/types"
)

// primaryInput returns the dispatched node's first dependency output (by
// ascending dependency id, for determinism), or nil if the node has no
// recorded dependencies or no Workflow was supplied in meta (e.g. a
// handler invoked directly in a unit test).
func primaryInput(execCtx *types.ExecutionContext, meta types.ExecMeta) any {
	if meta.Workflow == nil {
		return nil
	}
	node, ok := meta.Workflow.Nodes[meta.NodeID]
	if !ok || len(node.Dependencies) == 0 {
		return nil
	}
	deps := append([]string(nil), node.Dependencies...)
	sort.Strings(deps)
	return execCtx.NodeOutputs[deps[0]]
}

// flatten exposes the three maps expression.Context needs, for handlers
// that evaluate expr-lang expressions.
func flatten(execCtx *types.ExecutionContext) (nodeOutputs, variables, inputs map[string]any) {
	return execCtx.NodeOutputs, execCtx.Variables, execCtx.Inputs
}
