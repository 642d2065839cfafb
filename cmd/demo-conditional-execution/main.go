// Command demo-conditional-execution builds a few small workflows at
// runtime and executes them through pkg/engine to show conditional and
// switch edge routing in action: which branch fires, and which sibling
// nodes never run.
package main

import (
	"context"
	"fmt"

	"github.com/flowcore/workflowengine/pkg/credit"
	"github.com/flowcore/workflowengine/pkg/dag"
	"github.com/flowcore/workflowengine/pkg/engine"
	"github.com/flowcore/workflowengine/pkg/events"
	"github.com/flowcore/workflowengine/pkg/executor"
	"github.com/flowcore/workflowengine/pkg/snapshotstore"
	"github.com/flowcore/workflowengine/pkg/types"
)

func newDemoEngine() *engine.Engine {
	return engine.New(
		&dag.Builder{},
		executor.NewReferenceRegistry(),
		credit.NewMemoryService(nil),
		events.NewEmitter(),
		snapshotstore.NewMemoryStore(),
	)
}

func main() {
	fmt.Println("=================================================")
	fmt.Println("Conditional Execution Demo")
	fmt.Println("=================================================")
	fmt.Println()

	demoAgeBasedRouting()
	demoSwitchRouting()
}

// demoAgeBasedRouting: a conditional node routes to a "profile_api" +
// "sports_api" chain when age >= 18, or to "education_api" otherwise.
func demoAgeBasedRouting() {
	fmt.Println("DEMO 1: Age-Based API Routing")
	fmt.Println("------------------------------")
	fmt.Println("If age >= 18: profile_api -> sports_api. Otherwise: education_api.")
	fmt.Println()

	for _, age := range []float64{25, 15} {
		fmt.Printf("age = %.0f:\n", age)

		nodes := []types.Node{
			{ID: "start", Type: types.NodeTypeInput, Config: map[string]any{"key": "age"}},
			{ID: "age_check", Type: types.NodeTypeConditional, Config: map[string]any{
				"condition": "input >= 18",
			}},
			{ID: "profile_api", Type: types.NodeTypeTransform, Config: map[string]any{
				"expression": `"fetched user profile"`,
			}},
			{ID: "sports_api", Type: types.NodeTypeTransform, Config: map[string]any{
				"expression": `"registered for sports"`,
			}},
			{ID: "education_api", Type: types.NodeTypeTransform, Config: map[string]any{
				"expression": `"registered for education"`,
			}},
			{ID: "done", Type: types.NodeTypeOutput},
		}
		edges := []types.Edge{
			{ID: "e1", Source: "start", Target: "age_check", HandleType: types.HandleDefault},
			{ID: "e2", Source: "age_check", Target: "profile_api", HandleType: types.HandleTrue},
			{ID: "e3", Source: "profile_api", Target: "sports_api", HandleType: types.HandleDefault},
			{ID: "e4", Source: "age_check", Target: "education_api", HandleType: types.HandleFalse},
			{ID: "e5", Source: "sports_api", Target: "done", HandleType: types.HandleDefault},
			{ID: "e6", Source: "education_api", Target: "done", HandleType: types.HandleDefault},
		}

		runAndReport(nodes, edges, map[string]any{"age": age}, []string{"profile_api", "sports_api", "education_api"})
	}
	fmt.Println()
}

// demoSwitchRouting: a switch node picks one of several status-code
// handlers based on an expr-lang selector evaluated against its input.
func demoSwitchRouting() {
	fmt.Println("DEMO 2: HTTP Status Code Routing with Switch")
	fmt.Println("---------------------------------------------")
	fmt.Println()

	for _, code := range []float64{200, 404, 999} {
		fmt.Printf("status_code = %.0f:\n", code)

		nodes := []types.Node{
			{ID: "start", Type: types.NodeTypeInput, Config: map[string]any{"key": "code"}},
			{ID: "router", Type: types.NodeTypeSwitch, Config: map[string]any{
				"selector": `input >= 500 ? "error" : string(input)`,
			}},
			{ID: "success_handler", Type: types.NodeTypeTransform, Config: map[string]any{
				"expression": `"processed successful response"`,
			}},
			{ID: "not_found_handler", Type: types.NodeTypeTransform, Config: map[string]any{
				"expression": `"handled not found"`,
			}},
			{ID: "error_handler", Type: types.NodeTypeTransform, Config: map[string]any{
				"expression": `"logged server error"`,
			}},
			{ID: "other_handler", Type: types.NodeTypeTransform, Config: map[string]any{
				"expression": `"other status code"`,
			}},
			{ID: "done", Type: types.NodeTypeOutput},
		}
		edges := []types.Edge{
			{ID: "e1", Source: "start", Target: "router", HandleType: types.HandleDefault},
			{ID: "e2", Source: "router", Target: "success_handler", HandleType: "case-200"},
			{ID: "e3", Source: "router", Target: "not_found_handler", HandleType: "case-404"},
			{ID: "e4", Source: "router", Target: "error_handler", HandleType: "case-error"},
			{ID: "e5", Source: "router", Target: "other_handler", HandleType: types.HandleDefault},
			{ID: "e6", Source: "success_handler", Target: "done", HandleType: types.HandleDefault},
			{ID: "e7", Source: "not_found_handler", Target: "done", HandleType: types.HandleDefault},
			{ID: "e8", Source: "error_handler", Target: "done", HandleType: types.HandleDefault},
			{ID: "e9", Source: "other_handler", Target: "done", HandleType: types.HandleDefault},
		}

		runAndReport(nodes, edges, map[string]any{"code": code},
			[]string{"success_handler", "not_found_handler", "error_handler", "other_handler"})
	}
	fmt.Println()
}

func runAndReport(nodes []types.Node, edges []types.Edge, inputs map[string]any, branchNodes []string) {
	eng := newDemoEngine()

	workflow, err := eng.Build(nodes, edges, 10)
	if err != nil {
		fmt.Printf("  build error: %v\n", err)
		return
	}

	outcome, err := eng.Execute(context.Background(), engine.ExecuteParams{
		Workflow:        workflow,
		ExecutionID:     fmt.Sprintf("demo-%p", nodes),
		WorkflowID:      "demo",
		Inputs:          inputs,
		SkipCreditCheck: true,
	})
	if err != nil {
		fmt.Printf("  execution error: %v\n", err)
		return
	}
	if outcome.Final == nil {
		fmt.Printf("  unexpected non-terminal outcome: %+v\n", outcome)
		return
	}

	for _, nodeID := range branchNodes {
		if output, ran := outcome.Final.NodeOutputs[nodeID]; ran {
			fmt.Printf("    ran:     %-18s -> %v\n", nodeID, output)
		} else {
			fmt.Printf("    skipped: %s\n", nodeID)
		}
	}
	fmt.Println()
}
