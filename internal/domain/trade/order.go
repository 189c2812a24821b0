package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderStatus represents the status of a customer order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusPartial   OrderStatus = "PARTIAL"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusBilled    OrderStatus = "BILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusNew, OrderStatusPartial, OrderStatusCompleted,
		OrderStatusBilled, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusBilled || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if target == OrderStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusNew || target == OrderStatusPartial || target == OrderStatusCompleted
	case OrderStatusNew:
		return target == OrderStatusPartial || target == OrderStatusCompleted
	case OrderStatusPartial:
		return target == OrderStatusCompleted
	case OrderStatusCompleted:
		return target == OrderStatusBilled
	}
	return false
}

// OrderItemStatus summarises one demand line
type OrderItemStatus string

const (
	OrderItemStatusPending OrderItemStatus = "PENDING"
	OrderItemStatusPartial OrderItemStatus = "PARTIAL"
	OrderItemStatusPacked  OrderItemStatus = "PACKED"
	OrderItemStatusRemoved OrderItemStatus = "REMOVED"
)

// OrderItem is one demand line of an order
type OrderItem struct {
	shared.BaseEntity
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityOrdered    int             `gorm:"not null"`
	QuantityPacked     int             `gorm:"not null;default:0"`
	QuantityAllocated  int             `gorm:"not null;default:0"`
	QuantityShipped    int             `gorm:"not null;default:0"`
	Status             OrderItemStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	SuggestedBatchID   *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderItemRemoval is an append-only record of quantity taken off an order
// line without deleting it
type OrderItemRemoval struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity    int       `gorm:"not null"`
	Reason      string    `gorm:"type:text"`
	Actor       string    `gorm:"type:varchar(100)"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemRemoval) TableName() string {
	return "order_item_removals"
}

// Order is a customer order and the aggregate root for its lines, removal
// log and parcels
type Order struct {
	shared.BaseAggregateRoot
	ERPOrderID       string      `gorm:"type:varchar(100);not null;uniqueIndex"`
	WarehouseID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	Customer         string      `gorm:"type:varchar(255);not null"`
	IsCold           bool        `gorm:"not null;default:false"`
	Status           OrderStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	InventoryUpdated bool        `gorm:"not null;default:false"`
	CompletedAt      *time.Time
	BilledAt         *time.Time
	CancelledAt      *time.Time
	CancelReason     string             `gorm:"type:text"`
	Items            []OrderItem        `gorm:"foreignKey:OrderID;references:ID"`
	Removals         []OrderItemRemoval `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a DRAFT order
func NewOrder(erpOrderID string, warehouseID uuid.UUID, customer string, isCold bool) (*Order, error) {
	erpOrderID = strings.TrimSpace(erpOrderID)
	if erpOrderID == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_ID", "ERP order ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if strings.TrimSpace(customer) == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer cannot be empty")
	}
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ERPOrderID:        erpOrderID,
		WarehouseID:       warehouseID,
		Customer:          strings.TrimSpace(customer),
		IsCold:            isCold,
		Status:            OrderStatusDraft,
	}
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// AddItem appends a demand line. Lines can only be added before packing starts.
func (o *Order) AddItem(productID, warehouseProductID uuid.UUID, quantity int) (*OrderItem, error) {
	if o.Status != OrderStatusDraft && o.Status != OrderStatusNew {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add items to an order in %s status", o.Status))
	}
	if productID == uuid.Nil || warehouseProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product and warehouse product are required")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Ordered quantity must be positive")
	}
	item := OrderItem{
		BaseEntity:         shared.NewBaseEntity(),
		OrderID:            o.ID,
		ProductID:          productID,
		WarehouseProductID: warehouseProductID,
		QuantityOrdered:    quantity,
		Status:             OrderItemStatusPending,
	}
	o.Items = append(o.Items, item)
	o.Touch()
	return &o.Items[len(o.Items)-1], nil
}

// GetItem returns the line with the given ID, or nil
func (o *Order) GetItem(itemID uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// RemovedQuantity sums the removal log for a line
func (o *Order) RemovedQuantity(itemID uuid.UUID) int {
	total := 0
	for _, r := range o.Removals {
		if r.OrderItemID == itemID {
			total += r.Quantity
		}
	}
	return total
}

// EffectiveOrdered is the ordered quantity net of removals
func (o *Order) EffectiveOrdered(item *OrderItem) int {
	return item.QuantityOrdered - o.RemovedQuantity(item.ID)
}

// Balance is what is still left to pack on a line
func (o *Order) Balance(item *OrderItem) int {
	return o.EffectiveOrdered(item) - item.QuantityPacked
}

// Confirm moves a DRAFT order to NEW
func (o *Order) Confirm() error {
	if o.Status != OrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm order in %s status", o.Status))
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot confirm order without items")
	}
	o.setStatus(OrderStatusNew)
	return nil
}

// CanPack reports whether packing is allowed in the current status
func (o *Order) CanPack() bool {
	switch o.Status {
	case OrderStatusDraft, OrderStatusNew, OrderStatusPartial:
		return true
	}
	return false
}

// RecordRemoval appends to the removal log. The quantity cannot exceed what
// is still unpacked on the line.
func (o *Order) RecordRemoval(itemID uuid.UUID, quantity int, reason, actor string) (*OrderItemRemoval, error) {
	if o.Status.IsTerminal() || o.Status == OrderStatusCompleted {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot remove items from an order in %s status", o.Status))
	}
	item := o.GetItem(itemID)
	if item == nil {
		return nil, shared.NewDomainError("ITEM_NOT_FOUND", fmt.Sprintf("Order item %s not found", itemID))
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Removed quantity must be positive")
	}
	if balance := o.Balance(item); quantity > balance {
		return nil, shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Cannot remove %d from item %s, only %d unpacked", quantity, itemID, balance))
	}
	removal := OrderItemRemoval{
		ID:          uuid.New(),
		OrderID:     o.ID,
		OrderItemID: itemID,
		Quantity:    quantity,
		Reason:      reason,
		Actor:       actor,
		CreatedAt:   time.Now(),
	}
	o.Removals = append(o.Removals, removal)
	o.refreshItemStatus(item)
	return &o.Removals[len(o.Removals)-1], nil
}

// RecordPacked books packed quantity on a line and remembers the batch used
func (o *Order) RecordPacked(itemID uuid.UUID, quantity int, batchID uuid.UUID) error {
	item := o.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", fmt.Sprintf("Order item %s not found", itemID))
	}
	item.QuantityPacked += quantity
	if item.QuantityAllocated < item.QuantityPacked {
		item.QuantityAllocated = item.QuantityPacked
	}
	id := batchID
	item.SuggestedBatchID = &id
	item.Touch()
	o.refreshItemStatus(item)
	return nil
}

// RecordSuggestion stores the suggested batch and allocation for a line
func (o *Order) RecordSuggestion(itemID uuid.UUID, batchID *uuid.UUID, allocated int) error {
	item := o.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", fmt.Sprintf("Order item %s not found", itemID))
	}
	item.SuggestedBatchID = batchID
	item.QuantityAllocated = item.QuantityPacked + allocated
	item.Touch()
	return nil
}

// RecordShipped books quantity that has left with the courier
func (o *Order) RecordShipped(itemID uuid.UUID, quantity int) {
	if item := o.GetItem(itemID); item != nil {
		item.QuantityShipped += quantity
		item.Touch()
	}
}

func (o *Order) refreshItemStatus(item *OrderItem) {
	effective := o.EffectiveOrdered(item)
	switch {
	case effective <= 0 && item.QuantityPacked == 0:
		item.Status = OrderItemStatusRemoved
	case item.QuantityPacked >= effective:
		item.Status = OrderItemStatusPacked
	case item.QuantityPacked > 0:
		item.Status = OrderItemStatusPartial
	default:
		item.Status = OrderItemStatusPending
	}
}

// DerivedStatus computes the packing-driven status without applying it.
// Lines whose effective ordered quantity is zero are ignored. Terminal
// statuses and COMPLETED are returned unchanged.
func (o *Order) DerivedStatus() OrderStatus {
	if o.Status.IsTerminal() || o.Status == OrderStatusCompleted {
		return o.Status
	}
	considered, satisfied, anyPacked := 0, 0, false
	for i := range o.Items {
		item := &o.Items[i]
		if item.QuantityPacked > 0 {
			anyPacked = true
		}
		if o.EffectiveOrdered(item) <= 0 {
			continue
		}
		considered++
		if item.QuantityPacked >= o.EffectiveOrdered(item) {
			satisfied++
		}
	}
	switch {
	case considered > 0 && satisfied == considered && anyPacked:
		return OrderStatusCompleted
	case considered == 0 && anyPacked:
		return OrderStatusCompleted
	case anyPacked:
		return OrderStatusPartial
	}
	return o.Status
}

// RecomputeStatus applies DerivedStatus and reports whether the order just
// entered COMPLETED
func (o *Order) RecomputeStatus() (changed bool, enteredCompleted bool) {
	next := o.DerivedStatus()
	if next == o.Status {
		return false, false
	}
	o.setStatus(next)
	return true, next == OrderStatusCompleted
}

// Outstanding returns the unpacked balance per line
func (o *Order) Outstanding() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for i := range o.Items {
		if b := o.Balance(&o.Items[i]); b > 0 {
			out[o.Items[i].ID] = b
		}
	}
	return out
}

// ForceComplete completes an order outside the packing flow
func (o *Order) ForceComplete() error {
	if o.Status == OrderStatusCompleted {
		return nil
	}
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}
	o.setStatus(OrderStatusCompleted)
	return nil
}

// MarkInventoryApplied sets the one-time stock effect guard
func (o *Order) MarkInventoryApplied() {
	o.InventoryUpdated = true
	o.Touch()
}

// MarkBilled moves a COMPLETED order to BILLED
func (o *Order) MarkBilled() error {
	if !o.Status.CanTransitionTo(OrderStatusBilled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot bill order in %s status", o.Status))
	}
	o.setStatus(OrderStatusBilled)
	return nil
}

// Cancel moves the order to CANCELLED. Cancelling an already cancelled
// order is a no-op and reports false.
func (o *Order) Cancel(reason string) (bool, error) {
	if o.Status == OrderStatusCancelled {
		return false, nil
	}
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return false, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	o.CancelReason = reason
	o.setStatus(OrderStatusCancelled)
	return true, nil
}

// MarkInventoryReversed clears the stock effect guard after cancellation
func (o *Order) MarkInventoryReversed() {
	o.InventoryUpdated = false
	o.Touch()
}

func (o *Order) setStatus(next OrderStatus) {
	prev := o.Status
	now := time.Now()
	o.Status = next
	switch next {
	case OrderStatusCompleted:
		o.CompletedAt = &now
	case OrderStatusBilled:
		o.BilledAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
	}
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, prev))
}
