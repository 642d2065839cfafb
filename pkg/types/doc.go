// Package types provides shared type definitions for the workflow execution engine.
//
// # Overview
//
// This package contains the core data structures used across the engine's
// other packages: the raw Node/Edge workflow definition, the compiled
// BuiltWorkflow the Scheduler Loop drives, the copy-on-write
// ExecutionContext, and the serializable ExecutionSnapshot/FinalResult
// shapes. Keeping them in one dependency-free package lets the builder,
// scheduler, router, and executor packages all share them without
// importing each other.
//
// # Node Types
//
// NodeType is a closed set: input, output, llm, http, transform,
// conditional, switch, loop, waitForUser, database, vision,
// fileOperations, agent. A Node's behavior-specific settings live in its
// Config map, validated at build time against an optional per-type JSON
// schema (pkg/dag.Builder.Schemas).
//
// # Usage Example
//
//	nodes := []types.Node{
//	    {ID: "start", Type: types.NodeTypeInput},
//	    {ID: "check", Type: types.NodeTypeConditional, Config: map[string]any{
//	        "condition": "input.age >= 18",
//	    }},
//	}
//	edges := []types.Edge{
//	    {ID: "e1", Source: "start", Target: "check", HandleType: types.HandleDefault},
//	}
//
// # Thread Safety
//
// The types defined in this package are not thread-safe for mutation.
// ExecutionContext is designed for copy-on-write use (see pkg/execctx);
// concurrent access to any other mutable value here must be coordinated
// by the caller.
package types
