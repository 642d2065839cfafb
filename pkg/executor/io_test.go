package executor

import (
	"context"
	"testing"

	"github.com/flowcore/workflowengine/pkg/types"
)

func TestInputHandlerReturnsFullInputsByDefault(t *testing.T) {
	execCtx := &types.ExecutionContext{Inputs: map[string]any{"a": 1, "b": 2}}
	result, err := InputHandler(context.Background(), nil, execCtx, types.ExecMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, ok := result.Output.(map[string]any)
	if !ok || out["a"] != 1 || out["b"] != 2 {
		t.Fatalf("unexpected output: %+v", result.Output)
	}
}

func TestInputHandlerNarrowsToKey(t *testing.T) {
	execCtx := &types.ExecutionContext{Inputs: map[string]any{"a": 1, "b": 2}}
	result, err := InputHandler(context.Background(), map[string]any{"key": "b"}, execCtx, types.ExecMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != 2 {
		t.Fatalf("expected 2, got %v", result.Output)
	}
}

func TestOutputHandlerPassesThroughDependency(t *testing.T) {
	workflow := &types.BuiltWorkflow{Nodes: map[string]*types.Node{
		"done": {ID: "done", Dependencies: []string{"t"}},
	}}
	execCtx := &types.ExecutionContext{NodeOutputs: map[string]any{"t": "final value"}}
	meta := types.ExecMeta{NodeID: "done", Workflow: workflow}

	result, err := OutputHandler(context.Background(), nil, execCtx, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != "final value" {
		t.Fatalf("expected passthrough output, got %v", result.Output)
	}
}
