// Package executor provides reference NodeExecutor implementations: a
// thread-safe type-keyed Registry (the Scheduler Loop's NodeExecutor
// contract), reference handlers for the structural node types the engine's
// own tests exercise directly (transform, conditional, switch, waitForUser,
// loop), and a PluginExecutor that proxies the remaining, genuinely
// external node types (llm, http, database, vision, fileOperations, agent)
// to out-of-process plugins over hashicorp/go-plugin.
//
// Grounded on the teacher's pkg/executor/registry.go Strategy-pattern
// registry, generalized from the teacher's own ExecutionContext-interface
// handlers to the spec's stateless (config, *ExecutionContext, ExecMeta) ->
// Result call shape.
package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flowcore/workflowengine/pkg/httpclient"
	"github.com/flowcore/workflowengine/pkg/types"
)

// HandlerFunc is the shape every reference executor implements. It mirrors
// scheduler.NodeExecutor.ExecuteNode's signature minus the node type
// (already known from registration), so it composes as the per-type
// function a Registry dispatches to.
type HandlerFunc func(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error)

// Dispatcher is the shape a structural handler (loop) needs to re-enter
// node execution for a body subgraph, without depending on the scheduler
// package. A *Registry satisfies it via ExecuteNode.
type Dispatcher func(ctx context.Context, nodeType types.NodeType, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error)

// Registry is a thread-safe NodeType -> HandlerFunc lookup table. It
// satisfies scheduler.NodeExecutor via ExecuteNode, so it can be passed
// directly to scheduler.New.
type Registry struct {
	mu       sync.RWMutex
	handlers map[types.NodeType]HandlerFunc
	fallback HandlerFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[types.NodeType]HandlerFunc)}
}

// Register adds a handler for nodeType. Returns ErrAlreadyRegistered if one
// is already present.
func (r *Registry) Register(nodeType types.NodeType, handler HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[nodeType]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, nodeType)
	}
	r.handlers[nodeType] = handler
	return nil
}

// MustRegister registers a handler and panics on error. Used at
// initialization, where registration must succeed.
func (r *Registry) MustRegister(nodeType types.NodeType, handler HandlerFunc) {
	if err := r.Register(nodeType, handler); err != nil {
		panic(err)
	}
}

// SetFallback installs a handler consulted for any node type with no
// directly registered handler — the engine wires a PluginExecutor here for
// the node types it proxies out-of-process.
func (r *Registry) SetFallback(handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = handler
}

// ExecuteNode implements scheduler.NodeExecutor: it looks up nodeType's
// handler and invokes it, falling back to the installed fallback handler
// (if any) when no direct registration exists.
func (r *Registry) ExecuteNode(ctx context.Context, nodeType types.NodeType, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	r.mu.RLock()
	handler, exists := r.handlers[nodeType]
	fallback := r.fallback
	r.mu.RUnlock()

	if exists {
		return handler(ctx, config, execCtx, meta)
	}
	if fallback != nil {
		return fallback(ctx, config, execCtx, meta)
	}
	return types.Result{}, fmt.Errorf("%w: %s", ErrNoHandler, nodeType)
}

// ListRegisteredTypes returns every directly-registered node type, sorted.
func (r *Registry) ListRegisteredTypes() []types.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.NodeType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewReferenceRegistry builds a Registry with every structural reference
// handler (input, output, transform, conditional, switch, waitForUser,
// loop) registered. The caller is still responsible for installing a
// fallback (typically a PluginExecutor) for the externally-delegated node
// types (llm, database, vision, fileOperations, agent) and for registering
// an `http` handler (see NewReferenceRegistryWithHTTP).
func NewReferenceRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(types.NodeTypeInput, InputHandler)
	r.MustRegister(types.NodeTypeOutput, OutputHandler)
	r.MustRegister(types.NodeTypeTransform, TransformHandler)
	r.MustRegister(types.NodeTypeConditional, ConditionalHandler)
	r.MustRegister(types.NodeTypeSwitch, SwitchHandler)
	r.MustRegister(types.NodeTypeWaitForUser, WaitForUserHandler)
	r.MustRegister(types.NodeTypeLoop, NewLoopHandler(r.ExecuteNode))
	return r
}

// NewReferenceRegistryWithHTTP builds on NewReferenceRegistry, additionally
// registering a concrete `http` handler backed by pkg/httpclient/pkg/security
// instead of leaving it to the PluginExecutor fallback. clients lets the
// caller pre-register named clients (auth, per-host timeouts) that node
// configs can reference by UID; security sets the SSRF posture applied to
// requests that don't name one.
func NewReferenceRegistryWithHTTP(clients *httpclient.Registry, security httpclient.SecurityConfig) (*Registry, error) {
	r := NewReferenceRegistry()
	httpExec, err := NewHTTPExecutor(clients, security)
	if err != nil {
		return nil, err
	}
	r.MustRegister(types.NodeTypeHTTP, httpExec.Handle)
	return r, nil
}
