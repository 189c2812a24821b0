package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Order", uuid.New())}
}

type recordingHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
}

func (h *recordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, ev)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("routes by type and wildcard", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		packed := &recordingHandler{types: []string{trade.EventTypeParcelPacked}}
		all := &recordingHandler{}
		bus.Subscribe(packed)
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx,
			newTestEvent(trade.EventTypeParcelPacked),
			newTestEvent(trade.EventTypeOrderCreated),
			nil,
		))

		assert.Equal(t, 1, packed.count())
		assert.Equal(t, 2, all.count())
	})

	t.Run("explicit types override handler types", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		h := &recordingHandler{types: []string{"A"}}
		bus.Subscribe(h, "B")

		require.NoError(t, bus.Publish(ctx, newTestEvent("A"), newTestEvent("B")))
		assert.Equal(t, 1, h.count())
	})

	t.Run("failing and panicking handlers do not stop delivery", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		bus.Subscribe(&recordingHandler{err: errors.New("down")}, "X")
		bus.Subscribe(&recordingHandler{panics: true}, "X")
		ok := &recordingHandler{}
		bus.Subscribe(ok, "X")

		require.NoError(t, bus.Publish(ctx, newTestEvent("X")))
		assert.Equal(t, 1, ok.count())
		assert.Equal(t, int64(2), bus.Failures())
	})

	t.Run("unsubscribe", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &recordingHandler{types: []string{"A", "B"}}
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(ctx, newTestEvent("A"), newTestEvent("B")))
		assert.Zero(t, h.count())
		assert.Zero(t, bus.registry.Count())
	})
}

func TestInMemoryEventBus_Lifecycle(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(&recordingHandler{types: []string{"A", "B"}})
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.running.Load())
	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.running.Load())
}

func TestHandlerRegistry_Count(t *testing.T) {
	r := NewHandlerRegistry()
	h1 := &recordingHandler{}
	h2 := &recordingHandler{}
	r.Register(h1, "A", "B")
	r.Register(h2)
	assert.Equal(t, 2, r.Count())
	assert.Len(t, r.GetHandlers("A"), 2)
	assert.Len(t, r.GetHandlers("C"), 1)
}

func TestLoggingHandler(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	h := NewLoggingHandler(zap.New(core))
	assert.Empty(t, h.EventTypes())

	wp := &inventory.WarehouseProduct{}
	wp.ID = uuid.New()
	wp.TotalQuantity = 4
	ev := inventory.NewStockDeductedEvent(wp, []inventory.BatchDeduction{{Quantity: 3}, {Quantity: 2}}, nil)

	require.NoError(t, h.Handle(context.Background(), ev))
	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, inventory.EventTypeStockDeducted, fields["event_type"])
	assert.EqualValues(t, 5, fields["quantity"])
	assert.EqualValues(t, 2, fields["batches"])
	assert.EqualValues(t, 4, fields["remaining"])
}
