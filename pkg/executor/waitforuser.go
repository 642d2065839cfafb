package executor

import (
	"context"

	"github.com/flowcore/workflowengine/pkg/types"
)

// WaitForUserHandler executes `waitForUser` nodes: it always signals pause
// (spec.md §4.6), carrying the node's own primary input through as the
// value the resumed node eventually records, plus whatever the node's
// config declares about how resume is expected to arrive.
func WaitForUserHandler(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	reason, _ := config["reason"].(string)
	if reason == "" {
		reason = "waiting for user input"
	}
	resumeTrigger, _ := config["resumeTrigger"].(string)

	var timeoutMs *int64
	if raw, ok := config["timeoutMs"]; ok {
		switch v := raw.(type) {
		case int64:
			timeoutMs = &v
		case int:
			t := int64(v)
			timeoutMs = &t
		case float64:
			t := int64(v)
			timeoutMs = &t
		}
	}

	preserved := map[string]any{"input": primaryInput(execCtx, meta)}

	return types.Result{
		Success: true,
		Output:  preserved["input"],
		Signals: types.Signals{
			Pause: true,
			PauseContext: &types.PauseContext{
				Reason:        reason,
				NodeID:        meta.NodeID,
				ResumeTrigger: resumeTrigger,
				TimeoutMs:     timeoutMs,
				PreservedData: preserved,
			},
		},
	}, nil
}
