package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowcore/workflowengine/pkg/events"
	"github.com/flowcore/workflowengine/pkg/types"
)

// Sink implements events.Sink, translating the Event Emitter's ordered
// agent:execution:*/agent:tool:call:* stream into OpenTelemetry spans and
// Provider metrics. Install it alongside any other sinks (events.NewEmitter
// accepts several) to get tracing/metrics for free without the scheduler
// or executor packages depending on pkg/telemetry directly.
//
// State is keyed by executionId (and, for tool calls, executionId+nodeId)
// since a Sink registered on a shared Emitter may be invoked from several
// concurrently-running executions at once.
type Sink struct {
	provider *Provider

	mu            sync.Mutex
	executionSpan map[string]trace.Span
	executionedAt map[string]time.Time
	toolSpan      map[string]trace.Span
	toolStartedAt map[string]time.Time
}

// NewSink constructs a telemetry Sink backed by provider.
func NewSink(provider *Provider) *Sink {
	return &Sink{
		provider:      provider,
		executionSpan: make(map[string]trace.Span),
		executionedAt: make(map[string]time.Time),
		toolSpan:      make(map[string]trace.Span),
		toolStartedAt: make(map[string]time.Time),
	}
}

// Publish implements events.Sink.
func (s *Sink) Publish(ctx context.Context, event events.Event) error {
	switch event.Event {
	case events.EventExecutionStarted:
		s.handleExecutionStarted(ctx, event)
	case events.EventExecutionCompleted, events.EventExecutionFailed:
		s.handleExecutionEnded(ctx, event)
	case events.EventToolCallStarted:
		s.handleToolCallStarted(ctx, event)
	case events.EventToolCallCompleted:
		s.handleToolCallCompleted(ctx, event)
	}
	return nil
}

func (s *Sink) handleExecutionStarted(ctx context.Context, event events.Event) {
	_, span := s.provider.Tracer().Start(ctx, "workflow.execute",
		trace.WithAttributes(attribute.String("execution.id", event.ExecutionID)),
	)

	s.mu.Lock()
	s.executionSpan[event.ExecutionID] = span
	s.executionedAt[event.ExecutionID] = time.Now()
	s.mu.Unlock()
}

func (s *Sink) handleExecutionEnded(ctx context.Context, event events.Event) {
	s.mu.Lock()
	span := s.executionSpan[event.ExecutionID]
	startedAt := s.executionedAt[event.ExecutionID]
	delete(s.executionSpan, event.ExecutionID)
	delete(s.executionedAt, event.ExecutionID)
	s.mu.Unlock()

	var duration time.Duration
	if !startedAt.IsZero() {
		duration = time.Since(startedAt)
	}
	success := event.Event == events.EventExecutionCompleted

	s.provider.RecordWorkflowExecution(ctx, event.ExecutionID, duration, success, toolCallCount(event.Data))

	if span == nil {
		return
	}
	if !success {
		span.SetStatus(codes.Error, errorMessage(event.Data))
	} else {
		span.SetStatus(codes.Ok, "execution completed successfully")
	}
	span.End()
}

func (s *Sink) handleToolCallStarted(ctx context.Context, event events.Event) {
	nodeID, nodeType := nodeFields(event.Data)
	key := event.ExecutionID + ":" + nodeID

	s.mu.Lock()
	parent := s.executionSpan[event.ExecutionID]
	s.mu.Unlock()

	spanCtx := ctx
	if parent != nil {
		spanCtx = trace.ContextWithSpan(ctx, parent)
	}

	_, span := s.provider.Tracer().Start(spanCtx, "node.execute",
		trace.WithAttributes(
			attribute.String("node.id", nodeID),
			attribute.String("node.type", nodeType),
			attribute.String("execution.id", event.ExecutionID),
		),
	)

	s.mu.Lock()
	s.toolSpan[key] = span
	s.toolStartedAt[key] = time.Now()
	s.mu.Unlock()
}

func (s *Sink) handleToolCallCompleted(ctx context.Context, event events.Event) {
	nodeID, _ := nodeFields(event.Data)
	key := event.ExecutionID + ":" + nodeID

	s.mu.Lock()
	span := s.toolSpan[key]
	startedAt := s.toolStartedAt[key]
	delete(s.toolSpan, key)
	delete(s.toolStartedAt, key)
	s.mu.Unlock()

	var duration time.Duration
	if !startedAt.IsZero() {
		duration = time.Since(startedAt)
	}
	success, _ := dataField(event.Data, "success").(bool)

	s.provider.RecordNodeExecution(ctx, nodeID, nodeTypeOf(event.Data), duration, success)

	if span == nil {
		return
	}
	if success {
		span.SetStatus(codes.Ok, "node completed successfully")
	} else {
		span.SetStatus(codes.Error, "node execution failed")
	}
	span.End()
}

func dataField(data any, key string) any {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

func nodeFields(data any) (nodeID, nodeType string) {
	nodeID, _ = dataField(data, "nodeId").(string)
	nodeType, _ = dataField(data, "nodeType").(string)
	return nodeID, nodeType
}

func nodeTypeOf(data any) types.NodeType {
	nodeType, _ := dataField(data, "nodeType").(string)
	return types.NodeType(nodeType)
}

func errorMessage(data any) string {
	msg, _ := dataField(data, "error").(string)
	if msg == "" {
		return "execution failed"
	}
	return msg
}

func toolCallCount(data any) int {
	count, _ := dataField(data, "nodesExecuted").(int)
	return count
}
