// Package execctx implements the Context Store (C1): an immutable-snapshot,
// copy-on-write map of node outputs, inputs, and user variables for one
// workflow execution, plus template substitution over it.
//
// Every mutator returns a new *types.ExecutionContext rather than mutating
// its receiver. This mirrors the teacher engine's own snapshot discipline
// (pkg/state.Manager's mutex-guarded maps, generalized here to a pure,
// lock-free value type) and is what makes pause serialization and resume
// replay trivially correct: a snapshot is just a value, never a moving
// target another goroutine could be writing to.
package execctx

import (
	"time"

	"github.com/flowcore/workflowengine/pkg/types"
)

// CreateContext returns a fresh execution context with inputs populated and
// empty nodeOutputs/variables.
func CreateContext(executionID, workflowID, workspaceID, userID string, inputs map[string]any) *types.ExecutionContext {
	if inputs == nil {
		inputs = map[string]any{}
	}
	return &types.ExecutionContext{
		Inputs:      inputs,
		NodeOutputs: map[string]any{},
		Variables:   map[string]any{},
		Metadata: types.ExecutionMetadata{
			ExecutionID: executionID,
			WorkflowID:  workflowID,
			WorkspaceID: workspaceID,
			UserID:      userID,
			StartedAt:   time.Now(),
		},
	}
}

// StoreNodeOutput returns a new context snapshot with nodeId -> value
// recorded. Returns ErrDuplicateOutput if nodeId was already written in ctx —
// within one execution a node output is write-once (spec.md §3).
func StoreNodeOutput(ctx *types.ExecutionContext, nodeID string, value any) (*types.ExecutionContext, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if _, exists := ctx.NodeOutputs[nodeID]; exists {
		return nil, ErrDuplicateOutput
	}
	next := shallowCopy(ctx)
	next.NodeOutputs[nodeID] = value
	return next, nil
}

// SetVariable returns a snapshot with the named variable updated.
func SetVariable(ctx *types.ExecutionContext, name string, value any) (*types.ExecutionContext, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	next := shallowCopy(ctx)
	next.Variables[name] = value
	return next, nil
}

// GetExecutionContext materializes a flat mapping suitable for template
// substitution, merging nodeOutputs, inputs, and variables in that priority
// order (nodeOutputs wins on key collision, matching the testable property
// in spec.md §8.7: nodeOutputs[A] before inputs[A]).
func GetExecutionContext(ctx *types.ExecutionContext) map[string]any {
	flat := make(map[string]any, len(ctx.Inputs)+len(ctx.NodeOutputs)+len(ctx.Variables))
	for k, v := range ctx.Variables {
		flat[k] = v
	}
	for k, v := range ctx.Inputs {
		flat[k] = v
	}
	for k, v := range ctx.NodeOutputs {
		flat[k] = v
	}
	return flat
}

// BuildFinalOutputs returns, for each output node, its recorded output keyed
// by that node's configured name. A node that never executed (unreachable)
// is omitted.
func BuildFinalOutputs(ctx *types.ExecutionContext, outputNodes map[string]*types.Node) map[string]any {
	out := make(map[string]any)
	for id, node := range outputNodes {
		value, ok := ctx.NodeOutputs[id]
		if !ok {
			continue
		}
		key := node.Name
		if key == "" {
			key = id
		}
		out[key] = value
	}
	return out
}

func shallowCopy(ctx *types.ExecutionContext) *types.ExecutionContext {
	next := &types.ExecutionContext{
		Inputs:      make(map[string]any, len(ctx.Inputs)),
		NodeOutputs: make(map[string]any, len(ctx.NodeOutputs)+1),
		Variables:   make(map[string]any, len(ctx.Variables)),
		Metadata:    ctx.Metadata,
	}
	for k, v := range ctx.Inputs {
		next.Inputs[k] = v
	}
	for k, v := range ctx.NodeOutputs {
		next.NodeOutputs[k] = v
	}
	for k, v := range ctx.Variables {
		next.Variables[k] = v
	}
	return next
}

// MergeResumeInputs merges resumeInputs into ctx.Inputs, with resumeInputs
// taking precedence on key conflict (spec.md §4.6 resume protocol).
func MergeResumeInputs(ctx *types.ExecutionContext, resumeInputs map[string]any) *types.ExecutionContext {
	next := shallowCopy(ctx)
	for k, v := range resumeInputs {
		next.Inputs[k] = v
	}
	return next
}
