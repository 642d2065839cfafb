package events

import (
	"context"
	"sync"
)

// MemorySink collects published events in memory, in publish order. Useful
// for tests and for embedding the engine without a real broker.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Sink.
func (s *MemorySink) Publish(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of every event published so far, in order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
