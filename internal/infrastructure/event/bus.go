package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus dispatches domain events synchronously to subscribed
// handlers. Services publish after their transaction commits, so a failing
// handler never rolls back stock changes; it is logged and skipped.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	running   atomic.Bool
	failures  atomic.Int64
	published atomic.Int64
}

// NewInMemoryEventBus creates a bus with an empty registry
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
	}
}

// Publish delivers each event to its handlers in registration order
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		b.published.Add(1)
		for _, h := range b.registry.GetHandlers(ev.EventType()) {
			if err := b.dispatch(ctx, h, ev); err != nil {
				b.failures.Add(1)
				b.logger.Error("handler failed to process event",
					zap.String("event_type", ev.EventType()),
					zap.String("event_id", ev.EventID().String()),
					zap.String("aggregate_id", ev.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for handler.EventTypes()
// when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start marks the bus running
func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("handlers", b.registry.Count()))
	return nil
}

// Stop marks the bus stopped
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped",
		zap.Int64("published", b.published.Load()),
		zap.Int64("handler_failures", b.failures.Load()),
	)
	return nil
}

// Failures returns the number of handler errors and panics so far
func (b *InMemoryEventBus) Failures() int64 {
	return b.failures.Load()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
