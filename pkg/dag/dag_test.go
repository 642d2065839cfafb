package dag

import (
	"errors"
	"testing"

	"github.com/flowcore/workflowengine/pkg/types"
)

func edge(id, src, tgt string, handle types.HandleType) types.Edge {
	return types.Edge{ID: id, Source: src, Target: tgt, HandleType: handle}
}

func TestBuildLinearWorkflow(t *testing.T) {
	nodes := []types.Node{
		{ID: "trigger", Type: types.NodeTypeInput},
		{ID: "T", Type: types.NodeTypeTransform},
		{ID: "H", Type: types.NodeTypeHTTP},
		{ID: "out", Type: types.NodeTypeOutput, Name: "result"},
	}
	edges := []types.Edge{
		edge("e1", "trigger", "T", types.HandleDefault),
		edge("e2", "T", "H", types.HandleDefault),
		edge("e3", "H", "out", types.HandleDefault),
	}

	b := &Builder{}
	built, err := b.Build(nodes, edges, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if built.TriggerNodeID != "trigger" {
		t.Fatalf("trigger = %q", built.TriggerNodeID)
	}
	if built.MaxConcurrentNodes != 10 {
		t.Fatalf("expected default maxConcurrentNodes=10, got %d", built.MaxConcurrentNodes)
	}
	if built.Nodes["out"].Depth != 3 {
		t.Fatalf("expected out depth 3, got %d", built.Nodes["out"].Depth)
	}
	if !built.OutputNodeIDs["out"] {
		t.Fatalf("expected out registered as output node")
	}
	if len(built.ExecutionLevels) != 4 {
		t.Fatalf("expected 4 execution levels, got %d", len(built.ExecutionLevels))
	}
}

func TestBuildUnknownNodeReference(t *testing.T) {
	nodes := []types.Node{{ID: "trigger", Type: types.NodeTypeInput}}
	edges := []types.Edge{edge("e1", "trigger", "ghost", types.HandleDefault)}

	b := &Builder{}
	_, err := b.Build(nodes, edges, 0)
	if !errors.Is(err, ErrUnknownNodeReference) {
		t.Fatalf("expected ErrUnknownNodeReference, got %v", err)
	}
}

func TestBuildMissingTrigger(t *testing.T) {
	nodes := []types.Node{{ID: "out", Type: types.NodeTypeOutput}}
	b := &Builder{}
	_, err := b.Build(nodes, nil, 0)
	if !errors.Is(err, ErrMissingOrAmbiguousTrigger) {
		t.Fatalf("expected ErrMissingOrAmbiguousTrigger, got %v", err)
	}
}

func TestBuildAmbiguousTrigger(t *testing.T) {
	nodes := []types.Node{
		{ID: "in1", Type: types.NodeTypeInput},
		{ID: "in2", Type: types.NodeTypeInput},
	}
	b := &Builder{}
	_, err := b.Build(nodes, nil, 0)
	if !errors.Is(err, ErrMissingOrAmbiguousTrigger) {
		t.Fatalf("expected ErrMissingOrAmbiguousTrigger, got %v", err)
	}
}

func TestBuildUnreachableOutput(t *testing.T) {
	nodes := []types.Node{
		{ID: "trigger", Type: types.NodeTypeInput},
		{ID: "reachable", Type: types.NodeTypeOutput},
		{ID: "orphan", Type: types.NodeTypeOutput},
	}
	edges := []types.Edge{edge("e1", "trigger", "reachable", types.HandleDefault)}

	b := &Builder{}
	_, err := b.Build(nodes, edges, 0)
	if !errors.Is(err, ErrUnreachableOutput) {
		t.Fatalf("expected ErrUnreachableOutput, got %v", err)
	}
}

func TestBuildRejectsNonLoopCycle(t *testing.T) {
	nodes := []types.Node{
		{ID: "trigger", Type: types.NodeTypeInput},
		{ID: "A", Type: types.NodeTypeTransform},
		{ID: "B", Type: types.NodeTypeTransform},
	}
	edges := []types.Edge{
		edge("e1", "trigger", "A", types.HandleDefault),
		edge("e2", "A", "B", types.HandleDefault),
		edge("e3", "B", "A", types.HandleDefault),
	}

	b := &Builder{}
	_, err := b.Build(nodes, edges, 0)
	if !errors.Is(err, ErrCyclicWorkflow) {
		t.Fatalf("expected ErrCyclicWorkflow, got %v", err)
	}
}

func TestBuildAllowsLoopBackEdge(t *testing.T) {
	nodes := []types.Node{
		{ID: "trigger", Type: types.NodeTypeInput},
		{ID: "loop1", Type: types.NodeTypeLoop, Config: map[string]any{"maxIterations": 5, "iterationVar": "i"}},
		{ID: "body1", Type: types.NodeTypeTransform},
		{ID: "out", Type: types.NodeTypeOutput},
	}
	edges := []types.Edge{
		edge("e1", "trigger", "loop1", types.HandleDefault),
		edge("e2", "loop1", "body1", types.HandleDefault),
		edge("e3", "body1", "loop1", types.HandleDefault),
		edge("e4", "loop1", "out", types.HandleFallback),
	}

	b := &Builder{}
	built, err := b.Build(nodes, edges, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lc, ok := built.LoopContexts["loop1"]
	if !ok {
		t.Fatalf("expected loopContexts entry for loop1")
	}
	if lc.MaxIterations != 5 || lc.IterationVar != "i" {
		t.Fatalf("unexpected loop context: %+v", lc)
	}
	if len(lc.BodyNodeIDs) != 1 || lc.BodyNodeIDs[0] != "body1" {
		t.Fatalf("unexpected body node ids: %v", lc.BodyNodeIDs)
	}
}

func TestBuildDependenciesAndDependents(t *testing.T) {
	nodes := []types.Node{
		{ID: "trigger", Type: types.NodeTypeInput},
		{ID: "A", Type: types.NodeTypeTransform},
		{ID: "B", Type: types.NodeTypeTransform},
		{ID: "out", Type: types.NodeTypeOutput},
	}
	edges := []types.Edge{
		edge("e1", "trigger", "A", types.HandleDefault),
		edge("e2", "trigger", "B", types.HandleDefault),
		edge("e3", "A", "out", types.HandleDefault),
		edge("e4", "B", "out", types.HandleDefault),
	}

	b := &Builder{}
	built, err := b.Build(nodes, edges, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(built.Nodes["out"].Dependencies) != 2 {
		t.Fatalf("expected out to depend on A and B, got %v", built.Nodes["out"].Dependencies)
	}
	if len(built.Nodes["trigger"].Dependents) != 2 {
		t.Fatalf("expected trigger to enable A and B, got %v", built.Nodes["trigger"].Dependents)
	}
}
