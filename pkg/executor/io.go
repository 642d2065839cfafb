package executor

import (
	"context"

	"github.com/flowcore/workflowengine/pkg/types"
)

// InputHandler is the reference executor for the `input` node type: the
// workflow's trigger node has no dependencies to read from, so its output
// is the execution's own supplied Inputs map (optionally narrowed to a
// single key via config["key"]).
func InputHandler(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	if key, ok := config["key"].(string); ok && key != "" {
		return types.Result{Success: true, Output: execCtx.Inputs[key]}, nil
	}
	return types.Result{Success: true, Output: execCtx.Inputs}, nil
}

// OutputHandler is the reference executor for the `output` node type: a
// pure passthrough of its upstream dependency's output, matching the
// Builder's OutputNodeIDs convention of collecting named terminal nodes
// into FinalResult.Outputs.
func OutputHandler(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	return types.Result{Success: true, Output: primaryInput(execCtx, meta)}, nil
}
