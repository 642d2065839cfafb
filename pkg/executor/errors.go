package executor

import "errors"

var (
	// ErrAlreadyRegistered is returned by Register when a handler for the
	// node type is already present in the registry.
	ErrAlreadyRegistered = errors.New("executor: handler already registered for node type")

	// ErrNoHandler is returned by ExecuteNode when no handler (and no
	// fallback plugin executor) is registered for a node type.
	ErrNoHandler = errors.New("executor: no handler registered for node type")

	// ErrMissingInput is returned by a reference handler that needs at
	// least one node output/input value to operate on.
	ErrMissingInput = errors.New("executor: node requires at least one input")

	// ErrMissingTransformExpression is returned by the transform handler
	// when neither "expression" nor a recognized built-in "operation" is
	// configured.
	ErrMissingTransformExpression = errors.New("executor: transform node missing expression or operation")

	// ErrUnsupportedTransformOperation is returned when config["operation"]
	// names something other than the built-in set.
	ErrUnsupportedTransformOperation = errors.New("executor: unsupported transform operation")

	// ErrMissingLoopContext is returned by the loop handler when the
	// workflow (via ExecMeta.Workflow) has no LoopContext recorded for the
	// dispatched node id.
	ErrMissingLoopContext = errors.New("executor: no loop context recorded for this node")

	// ErrNoPluginCommand is returned by the PluginExecutor when no plugin
	// binary is configured for a node type it's asked to dispatch.
	ErrNoPluginCommand = errors.New("executor: no plugin command configured for node type")

	// ErrMissingHTTPURL is returned by the http handler when config["url"]
	// is absent or empty.
	ErrMissingHTTPURL = errors.New("executor: http node missing url")

	// ErrHTTPClientNotFound is returned when config["client"] names a UID
	// that is not registered in the HTTPExecutor's client registry.
	ErrHTTPClientNotFound = errors.New("executor: http node references unknown client")
)
