package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// MockEventHandler records every event it is handed.
type MockEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewMockEventHandler creates a new mock event handler.
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *MockEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle processes an event.
func (h *MockEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of all handled events.
func (h *MockEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// HandledCount returns the number of handled events.
func (h *MockEventHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError sets the error to return from Handle.
func (h *MockEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// RecordingPublisher is a synchronous shared.EventPublisher that keeps
// everything published to it.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

// Publish records events and returns the configured error, if any.
func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

// SetError sets the error to return from Publish.
func (p *RecordingPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Types returns the published event types in order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

// OfType returns the published events with the given type.
func (p *RecordingPublisher) OfType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// TestEvent is a simple domain event for testing.
type TestEvent struct {
	shared.BaseDomainEvent
	Data string
}

// NewTestEvent creates a new test event.
func NewTestEvent(eventType string) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        uuid.New(),
			Type:      eventType,
			Timestamp: time.Now(),
			AggID:     uuid.New(),
			AggType:   "TestAggregate",
		},
		Data: "test-data",
	}
}

// WaitForEventCount waits until the handler has processed at least n events.
func WaitForEventCount(handler *MockEventHandler, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if handler.HandledCount() >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return handler.HandledCount() >= n
}
