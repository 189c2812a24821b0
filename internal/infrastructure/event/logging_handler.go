package event

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LoggingHandler writes an audit line for every fulfillment event
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a wildcard audit handler
func NewLoggingHandler(l *zap.Logger) *LoggingHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &LoggingHandler{logger: l.Named("audit")}
}

// EventTypes is empty so the handler sees every event
func (h *LoggingHandler) EventTypes() []string { return nil }

// Handle logs ev with its type-specific fields
func (h *LoggingHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("aggregate_type", ev.AggregateType()),
		zap.String("aggregate_id", ev.AggregateID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
	}
	fields = append(fields, detailFields(ev)...)
	logger.Enrich(ctx, h.logger).Info("domain event", fields...)
	return nil
}

func detailFields(ev shared.DomainEvent) []zap.Field {
	switch e := ev.(type) {
	case *inventory.StockDeductedEvent:
		return []zap.Field{zap.Int("quantity", e.Quantity), zap.Int("batches", len(e.Deductions)), zap.Int("remaining", e.RemainingQuantity)}
	case *inventory.StockTakeEvaluatedEvent:
		return []zap.Field{zap.Int("discrepancies", e.DiscrepancyCount)}
	case *trade.OrderStatusChangedEvent:
		return []zap.Field{zap.String("from", string(e.From)), zap.String("to", string(e.To))}
	case *trade.ParcelStatusChangedEvent:
		return []zap.Field{zap.String("tracking_number", e.TrackingNumber), zap.String("from", string(e.From)), zap.String("to", string(e.To))}
	case *trade.ParcelPackedEvent:
		return []zap.Field{zap.String("order_id", e.OrderID.String()), zap.Int("quantity", e.Quantity)}
	}
	return nil
}

var _ shared.EventHandler = (*LoggingHandler)(nil)
