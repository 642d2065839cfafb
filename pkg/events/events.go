// Package events implements the Event Emitter (C8): an ordered,
// monotonic-timestamp event stream for one execution, published to one or
// more sinks with at-least-once delivery (spec.md §6.3, §8.4).
//
// Grounded on the teacher's pkg/observer (Observer/Event/EventType), kept in
// the same shape — a typed event struct fanned out to pluggable sinks — but
// generalized from the teacher's six workflow/node lifecycle event types to
// the spec's `agent:execution:*` / `agent:tool:call:*` taxonomy, and from a
// single OnEvent callback to a Sink interface so multiple external
// consumers (log sink, Prometheus counters, a message broker) can subscribe
// independently.
package events

import (
	"context"
	"errors"
	"sync"
)

// EventType is one of the mandatory event names in the execution stream
// (spec.md §8.4).
type EventType string

const (
	EventExecutionStarted   EventType = "agent:execution:started"
	EventToolCallStarted    EventType = "agent:tool:call:started"
	EventToolCallCompleted  EventType = "agent:tool:call:completed"
	EventExecutionPaused    EventType = "agent:execution:paused"
	EventExecutionCompleted EventType = "agent:execution:completed"
	EventExecutionFailed    EventType = "agent:execution:failed"
)

// Event is the wire shape published to a Sink (spec.md §6.3): channel, event
// name, a free-form payload, and a monotonic tick. Timestamp is an
// execution-scoped tick counter, not a wall-clock value, so ordering is
// exact even when two events are emitted within the same clock tick.
type Event struct {
	Channel     string    `json:"channel"`
	Event       EventType `json:"event"`
	ExecutionID string    `json:"executionId"`
	Data        any       `json:"data"`
	Timestamp   int64     `json:"timestamp"`
}

// Sink receives published events. Implementations should be safe to retry:
// consumers may deduplicate by (executionId, event, timestamp).
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Emitter fans an execution's events out to every registered Sink. Once an
// execution has emitted execution:completed or execution:failed, further
// events for it are rejected with ErrAlreadyTerminal; it does not check
// that execution:started comes first.
type Emitter struct {
	mu       sync.Mutex
	sinks    []Sink
	lastTick map[string]int64
	terminal map[string]bool
}

// NewEmitter constructs an Emitter publishing to sinks in registration
// order.
func NewEmitter(sinks ...Sink) *Emitter {
	return &Emitter{
		sinks:    sinks,
		lastTick: make(map[string]int64),
		terminal: make(map[string]bool),
	}
}

// Emit publishes one event for executionID on channel, advancing that
// execution's tick. Returns ErrAlreadyTerminal if the stream already closed
// with a completed/failed event.
func (e *Emitter) Emit(ctx context.Context, channel, executionID string, eventType EventType, data any) error {
	e.mu.Lock()
	if e.terminal[executionID] {
		e.mu.Unlock()
		return ErrAlreadyTerminal
	}
	e.lastTick[executionID]++
	tick := e.lastTick[executionID]
	if eventType == EventExecutionCompleted || eventType == EventExecutionFailed {
		e.terminal[executionID] = true
	}
	e.mu.Unlock()

	event := Event{
		Channel:     channel,
		Event:       eventType,
		ExecutionID: executionID,
		Data:        data,
		Timestamp:   tick,
	}

	var errs []error
	for _, sink := range e.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Emitter) ExecutionStarted(ctx context.Context, channel, executionID string, data any) error {
	return e.Emit(ctx, channel, executionID, EventExecutionStarted, data)
}

func (e *Emitter) ToolCallStarted(ctx context.Context, channel, executionID string, data any) error {
	return e.Emit(ctx, channel, executionID, EventToolCallStarted, data)
}

func (e *Emitter) ToolCallCompleted(ctx context.Context, channel, executionID string, data any) error {
	return e.Emit(ctx, channel, executionID, EventToolCallCompleted, data)
}

func (e *Emitter) ExecutionPaused(ctx context.Context, channel, executionID string, data any) error {
	return e.Emit(ctx, channel, executionID, EventExecutionPaused, data)
}

func (e *Emitter) ExecutionCompleted(ctx context.Context, channel, executionID string, data any) error {
	return e.Emit(ctx, channel, executionID, EventExecutionCompleted, data)
}

func (e *Emitter) ExecutionFailed(ctx context.Context, channel, executionID string, data any) error {
	return e.Emit(ctx, channel, executionID, EventExecutionFailed, data)
}
