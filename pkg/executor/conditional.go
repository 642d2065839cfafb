package executor

import (
	"context"

	"github.com/flowcore/workflowengine/pkg/types"
)

// ConditionalHandler executes `conditional` nodes. Unlike the teacher's
// ConditionExecutor (which evaluated its own condition and returned a
// condition_met flag), branch selection here is the Edge Router's job
// (pkg/router, evaluating node.Config["condition"] against this node's
// output) — so the handler's only responsibility is to produce the value
// that condition is evaluated against: the node's primary input, passed
// through unchanged.
func ConditionalHandler(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	return types.Result{Success: true, Output: primaryInput(execCtx, meta)}, nil
}
