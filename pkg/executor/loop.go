package executor

import (
	"context"
	"fmt"

	"github.com/flowcore/workflowengine/pkg/execctx"
	"github.com/flowcore/workflowengine/pkg/expression"
	"github.com/flowcore/workflowengine/pkg/types"
)

const defaultLoopMaxIterations = 100

// NewLoopHandler builds the `loop` reference handler. dispatch is how it
// re-enters node execution for each body node, every iteration — normally
// the owning Registry's own ExecuteNode, so body nodes can themselves be
// any registered type (including a nested loop).
//
// The teacher's own WhileLoopExecutor/ForEachExecutor are explicit stubs
// ("a full implementation would execute a sub-workflow on each iteration" —
// control_whileloop.go) that only count iterations. This handler completes
// that: it walks BuiltWorkflow.LoopContexts[nodeId].BodyNodeIDs and
// dispatches each body node for real, once per iteration, recording every
// iteration's body outputs under "<bodyNodeId>#<iterationIndex>" in a
// working context private to the loop node's own dispatch (spec.md §9) —
// not the shared execution context the Scheduler advances, since a single
// ExecuteNode call only ever contributes one output for its own node id.
func NewLoopHandler(dispatch Dispatcher) HandlerFunc {
	return func(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
		if meta.Workflow == nil {
			return types.Result{}, ErrMissingLoopContext
		}
		loopCtx, ok := meta.Workflow.LoopContexts[meta.NodeID]
		if !ok || loopCtx == nil {
			return types.Result{}, fmt.Errorf("%w: node %q", ErrMissingLoopContext, meta.NodeID)
		}

		maxIter := loopCtx.MaxIterations
		if maxIter <= 0 {
			maxIter = defaultLoopMaxIterations
		}

		input := primaryInput(execCtx, meta)
		items, isCollection := input.([]any)

		whileExpr, _ := config["while"].(string)

		working := execCtx
		outputs := make(map[string]any)
		var lastOutput any
		iterations := 0

		for iterations < maxIter {
			if isCollection && iterations >= len(items) {
				break
			}

			var item any
			if isCollection {
				item = items[iterations]
			} else {
				item = input
			}

			if loopCtx.IterationVar != "" {
				var err error
				working, err = execctx.SetVariable(working, loopCtx.IterationVar, item)
				if err != nil {
					return types.Result{}, err
				}
			}

			for _, bodyID := range loopCtx.BodyNodeIDs {
				bodyNode, ok := meta.Workflow.Nodes[bodyID]
				if !ok {
					continue
				}
				bodyMeta := types.ExecMeta{ExecutionID: meta.ExecutionID, NodeID: bodyID, NodeName: bodyNode.Name, Workflow: meta.Workflow}
				result, err := dispatch(ctx, bodyNode.Type, bodyNode.Config, working, bodyMeta)
				if err != nil {
					return types.Result{}, fmt.Errorf("loop %q iteration %d, body %q: %w", meta.NodeID, iterations, bodyID, err)
				}
				if !result.Success {
					return types.Result{Success: false, Error: result.Error}, nil
				}
				key := fmt.Sprintf("%s#%d", bodyID, iterations)
				outputs[key] = result.Output
				lastOutput = result.Output

				working, err = storeQuiet(working, bodyID, result.Output)
				if err != nil {
					return types.Result{}, err
				}
			}

			iterations++

			if whileExpr != "" {
				nodeOutputs, variables, inputs := flatten(working)
				evalCtx := &expression.Context{NodeResults: nodeOutputs, Variables: variables, ContextVars: inputs}
				cont, err := expression.Evaluate(whileExpr, lastOutput, evalCtx)
				if err != nil {
					return types.Result{}, fmt.Errorf("loop %q while-condition: %w", meta.NodeID, err)
				}
				if !cont {
					break
				}
			} else if !isCollection {
				// No collection and no while-condition: a single pass is all
				// that's well-defined.
				break
			}
		}

		return types.Result{Success: true, Output: map[string]any{
			"iterations": iterations,
			"outputs":    outputs,
			"final":      lastOutput,
		}}, nil
	}
}

// storeQuiet records a body node's output in the loop's private working
// context, per-iteration duplicates included (a body node id is written
// once per iteration, so the shared execctx.StoreNodeOutput write-once
// rule would wrongly reject the second iteration onward; this stores
// under the private working context, which is discarded at the end of the
// loop dispatch, not threaded back into the shared execution context).
func storeQuiet(ctx *types.ExecutionContext, nodeID string, value any) (*types.ExecutionContext, error) {
	next := &types.ExecutionContext{
		Inputs:      ctx.Inputs,
		NodeOutputs: make(map[string]any, len(ctx.NodeOutputs)+1),
		Variables:   ctx.Variables,
		Metadata:    ctx.Metadata,
	}
	for k, v := range ctx.NodeOutputs {
		next.NodeOutputs[k] = v
	}
	next.NodeOutputs[nodeID] = value
	return next, nil
}
