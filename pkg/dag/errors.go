package dag

import "errors"

// Sentinel errors for Workflow Builder validation (spec.md §4.2).
var (
	ErrUnknownNodeReference      = errors.New("edge references a node id that does not exist")
	ErrMissingOrAmbiguousTrigger = errors.New("workflow must have exactly one input-typed trigger node")
	ErrUnreachableOutput         = errors.New("output node is not reachable from the trigger")
	ErrCyclicWorkflow            = errors.New("workflow contains a cycle not attributable to a loop node")
	ErrInvalidNodeConfig         = errors.New("node config failed schema validation")
)
