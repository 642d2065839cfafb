package executor

import (
	"context"

	"github.com/flowcore/workflowengine/pkg/types"
)

// SwitchHandler executes `switch` nodes. As with ConditionalHandler, the
// Edge Router (not this handler) evaluates node.Config["selector"] against
// the node's output to decide which case-<value>/default edge fires
// (generalized from the teacher's SwitchExecutor, which matched cases
// itself); this handler passes the primary input through unchanged.
func SwitchHandler(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	return types.Result{Success: true, Output: primaryInput(execCtx, meta)}, nil
}
