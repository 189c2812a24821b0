package trade

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeOrder  = "Order"
	AggregateTypeParcel = "Parcel"
)

// Event type constants
const (
	EventTypeOrderCreated        = "OrderCreated"
	EventTypeOrderStatusChanged  = "OrderStatusChanged"
	EventTypeParcelPacked        = "ParcelPacked"
	EventTypeParcelStatusChanged = "ParcelStatusChanged"
)

// OrderCreatedEvent is raised when an order is imported or created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	ERPOrderID  string    `json:"erp_order_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Customer    string    `json:"customer"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		ERPOrderID:      o.ERPOrderID,
		WarehouseID:     o.WarehouseID,
		Customer:        o.Customer,
	}
}

// OrderStatusChangedEvent is raised on every order status change
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	ERPOrderID string      `json:"erp_order_id"`
	From       OrderStatus `json:"from"`
	To         OrderStatus `json:"to"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		ERPOrderID:      o.ERPOrderID,
		From:            from,
		To:              o.Status,
	}
}

// ParcelPackedEvent is raised when a parcel is created by packing
type ParcelPackedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID `json:"order_id"`
	Quantity int       `json:"quantity"`
	PackedBy string    `json:"packed_by"`
}

// NewParcelPackedEvent creates a new ParcelPackedEvent
func NewParcelPackedEvent(p *Parcel) *ParcelPackedEvent {
	return &ParcelPackedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeParcelPacked, AggregateTypeParcel, p.ID),
		OrderID:         p.OrderID,
		Quantity:        p.TotalQuantity(),
		PackedBy:        p.PackedBy,
	}
}

// ParcelStatusChangedEvent is raised when courier tracking moves a parcel
type ParcelStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID    `json:"order_id"`
	TrackingNumber string       `json:"tracking_number"`
	From           ParcelStatus `json:"from"`
	To             ParcelStatus `json:"to"`
}

// NewParcelStatusChangedEvent creates a new ParcelStatusChangedEvent
func NewParcelStatusChangedEvent(p *Parcel, from ParcelStatus) *ParcelStatusChangedEvent {
	return &ParcelStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeParcelStatusChanged, AggregateTypeParcel, p.ID),
		OrderID:         p.OrderID,
		TrackingNumber:  p.TrackingNumber,
		From:            from,
		To:              p.Status,
	}
}
