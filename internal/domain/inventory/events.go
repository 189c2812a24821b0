package inventory

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeWarehouseProduct = "WarehouseProduct"
	AggregateTypeStockTakeSession = "StockTakeSession"
)

// Event type constants
const (
	EventTypeStockDeducted      = "StockDeducted"
	EventTypeStockAdjusted      = "StockAdjusted"
	EventTypeStockReceived      = "StockReceived"
	EventTypeStockTakeStarted   = "StockTakeStarted"
	EventTypeStockTakeEvaluated = "StockTakeEvaluated"
)

// StockDeductedEvent is raised after stock leaves one or more batches
type StockDeductedEvent struct {
	shared.BaseDomainEvent
	WarehouseID        uuid.UUID        `json:"warehouse_id"`
	ProductID          uuid.UUID        `json:"product_id"`
	Quantity           int              `json:"quantity"`
	Deductions         []BatchDeduction `json:"deductions"`
	OrderID            *uuid.UUID       `json:"order_id,omitempty"`
	RemainingQuantity  int              `json:"remaining_quantity"`
	WarehouseProductID uuid.UUID        `json:"warehouse_product_id"`
}

// NewStockDeductedEvent creates a new StockDeductedEvent
func NewStockDeductedEvent(wp *WarehouseProduct, deductions []BatchDeduction, orderID *uuid.UUID) *StockDeductedEvent {
	return &StockDeductedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeStockDeducted, AggregateTypeWarehouseProduct, wp.ID),
		WarehouseProductID: wp.ID,
		WarehouseID:        wp.WarehouseID,
		ProductID:          wp.ProductID,
		Quantity:           TotalDeducted(deductions),
		Deductions:         deductions,
		OrderID:            orderID,
		RemainingQuantity:  wp.TotalQuantity,
	}
}

// StockAdjustedEvent is raised after a manual or reconciling adjustment
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	WarehouseProductID uuid.UUID `json:"warehouse_product_id"`
	BatchItemID        uuid.UUID `json:"batch_item_id"`
	Delta              int       `json:"delta"`
	Actor              string    `json:"actor"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(batch *InventoryBatchItem, delta int, actor string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeWarehouseProduct, batch.WarehouseProductID),
		WarehouseProductID: batch.WarehouseProductID,
		BatchItemID:        batch.ID,
		Delta:              delta,
		Actor:              actor,
	}
}

// StockReceivedEvent is raised when a batch is created or topped up
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	WarehouseProductID uuid.UUID  `json:"warehouse_product_id"`
	BatchItemID        uuid.UUID  `json:"batch_item_id"`
	BatchNumber        string     `json:"batch_number"`
	Quantity           int        `json:"quantity"`
	PurchaseOrderID    *uuid.UUID `json:"purchase_order_id,omitempty"`
}

// NewStockReceivedEvent creates a new StockReceivedEvent
func NewStockReceivedEvent(batch *InventoryBatchItem, quantity int, poID *uuid.UUID) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeStockReceived, AggregateTypeWarehouseProduct, batch.WarehouseProductID),
		WarehouseProductID: batch.WarehouseProductID,
		BatchItemID:        batch.ID,
		BatchNumber:        batch.BatchNumber,
		Quantity:           quantity,
		PurchaseOrderID:    poID,
	}
}

// StockTakeStartedEvent is raised when a counting session opens
type StockTakeStartedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID `json:"warehouse_id"`
	InitiatedBy string    `json:"initiated_by"`
}

// NewStockTakeStartedEvent creates a new StockTakeStartedEvent
func NewStockTakeStartedEvent(s *StockTakeSession) *StockTakeStartedEvent {
	return &StockTakeStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeStarted, AggregateTypeStockTakeSession, s.ID),
		WarehouseID:     s.WarehouseID,
		InitiatedBy:     s.InitiatedBy,
	}
}

// StockTakeEvaluatedEvent is raised when reconciliation finishes
type StockTakeEvaluatedEvent struct {
	shared.BaseDomainEvent
	WarehouseID      uuid.UUID `json:"warehouse_id"`
	EvaluatedBy      string    `json:"evaluated_by"`
	DiscrepancyCount int       `json:"discrepancy_count"`
}

// NewStockTakeEvaluatedEvent creates a new StockTakeEvaluatedEvent
func NewStockTakeEvaluatedEvent(s *StockTakeSession, discrepancyCount int) *StockTakeEvaluatedEvent {
	return &StockTakeEvaluatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeStockTakeEvaluated, AggregateTypeStockTakeSession, s.ID),
		WarehouseID:      s.WarehouseID,
		EvaluatedBy:      s.EvaluatedBy,
		DiscrepancyCount: discrepancyCount,
	}
}
