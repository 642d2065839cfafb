package executor

import (
	"context"
	"errors"
	"fmt"
	"net/rpc"
	"os/exec"
	"sync"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/flowcore/workflowengine/pkg/types"
)

// Handshake is the handshake magic cookie every node-executor plugin
// process must present, grounded on citadel-agent's
// internal/plugins/node_plugin.go Handshake.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "WORKFLOWENGINE_NODE_PLUGIN",
	MagicCookieValue: "node-executor-v1",
}

// NodePlugin is what an out-of-process node-executor plugin implements.
// One process may serve more than one node type, so Execute is told which
// type is being dispatched.
type NodePlugin interface {
	Execute(ctx context.Context, nodeType string, config map[string]any, inputs map[string]any) (map[string]any, error)
}

type nodePluginRPCServer struct{ Impl NodePlugin }

type executeArgs struct {
	NodeType string
	Config   map[string]any
	Inputs   map[string]any
}

type executeReply struct {
	Outputs map[string]any
	Error   string
}

func (s *nodePluginRPCServer) Execute(args *executeArgs, reply *executeReply) error {
	out, err := s.Impl.Execute(context.Background(), args.NodeType, args.Config, args.Inputs)
	if err != nil {
		reply.Error = err.Error()
		return nil
	}
	reply.Outputs = out
	return nil
}

type nodePluginRPCClient struct{ client *rpc.Client }

func (c *nodePluginRPCClient) Execute(ctx context.Context, nodeType string, config, inputs map[string]any) (map[string]any, error) {
	reply := &executeReply{}
	if err := c.client.Call("Plugin.Execute", &executeArgs{NodeType: nodeType, Config: config, Inputs: inputs}, reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, errors.New(reply.Error)
	}
	return reply.Outputs, nil
}

// nodePluginImpl adapts NodePlugin to go-plugin's net/rpc plugin.Plugin
// interface (grounded on citadel-agent's NodePluginImpl).
type nodePluginImpl struct{ Impl NodePlugin }

func (p *nodePluginImpl) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &nodePluginRPCServer{Impl: p.Impl}, nil
}

func (nodePluginImpl) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &nodePluginRPCClient{client: c}, nil
}

// PluginConfig names the out-of-process binary that serves one or more
// node types.
type PluginConfig struct {
	Command string
	Args    []string
}

// PluginExecutor proxies the node types the engine has no built-in
// behavior for (llm, http, database, vision, fileOperations, agent) to
// out-of-process plugins over hashicorp/go-plugin's net/rpc transport, so
// the engine never links against an LLM SDK, a DB driver, or an OCR
// library directly. One client process is launched lazily per configured
// node type and reused across dispatches.
type PluginExecutor struct {
	mu      sync.Mutex
	configs map[types.NodeType]PluginConfig
	clients map[types.NodeType]*goplugin.Client
	plugins map[types.NodeType]NodePlugin
}

// NewPluginExecutor builds a PluginExecutor from a node-type -> plugin
// command table. An empty/nil configs map is valid; Handle then
// always returns ErrNoPluginCommand.
func NewPluginExecutor(configs map[types.NodeType]PluginConfig) *PluginExecutor {
	return &PluginExecutor{
		configs: configs,
		clients: make(map[types.NodeType]*goplugin.Client),
		plugins: make(map[types.NodeType]NodePlugin),
	}
}

// Handle is HandlerFunc-shaped (using meta.Type to pick the configured
// plugin) so it can be installed as a Registry's fallback via SetFallback.
func (p *PluginExecutor) Handle(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	impl, err := p.dispense(meta.Type)
	if err != nil {
		return types.Result{}, err
	}

	inputs := map[string]any{"input": primaryInput(execCtx, meta)}
	outputs, err := impl.Execute(ctx, string(meta.Type), config, inputs)
	if err != nil {
		return types.Result{Success: false, Error: err.Error()}, nil
	}

	var output any = outputs
	if v, ok := outputs["output"]; ok && len(outputs) == 1 {
		output = v
	}
	return types.Result{Success: true, Output: output}, nil
}

func (p *PluginExecutor) dispense(nodeType types.NodeType) (NodePlugin, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if impl, ok := p.plugins[nodeType]; ok {
		return impl, nil
	}
	cfg, ok := p.configs[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPluginCommand, nodeType)
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          map[string]goplugin.Plugin{"node": &nodePluginImpl{}},
		Cmd:              exec.Command(cfg.Command, cfg.Args...),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense plugin for %s: %w", nodeType, err)
	}
	raw, err := rpcClient.Dispense("node")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense plugin for %s: %w", nodeType, err)
	}
	impl, ok := raw.(NodePlugin)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin for %s does not implement NodePlugin", nodeType)
	}

	p.clients[nodeType] = client
	p.plugins[nodeType] = impl
	return impl, nil
}

// Close terminates every launched plugin process.
func (p *PluginExecutor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.Kill()
	}
	p.clients = make(map[types.NodeType]*goplugin.Client)
	p.plugins = make(map[types.NodeType]NodePlugin)
}
