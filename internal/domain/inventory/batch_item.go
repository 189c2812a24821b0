package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PickPriority is the operator-assigned tier a batch is suggested from
type PickPriority string

const (
	PickPriorityDefault   PickPriority = "DEFAULT"
	PickPrioritySecondary PickPriority = "SECONDARY"
	PickPriorityNone      PickPriority = "NONE"
)

// IsValid checks if the priority is a known tier
func (p PickPriority) IsValid() bool {
	switch p {
	case PickPriorityDefault, PickPrioritySecondary, PickPriorityNone:
		return true
	}
	return false
}

// String returns the string representation of PickPriority
func (p PickPriority) String() string {
	return string(p)
}

// ParsePickPriority accepts the tier name or the legacy numeric codes
// ("0" default, "1" secondary). Empty input means no priority.
func ParsePickPriority(s string) (PickPriority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE", "NULL":
		return PickPriorityNone, nil
	case "0", "DEFAULT":
		return PickPriorityDefault, nil
	case "1", "SECONDARY":
		return PickPrioritySecondary, nil
	}
	return "", shared.NewDomainError("INVALID_PICK_PRIORITY", fmt.Sprintf("Unknown pick priority %q", s))
}

// InventoryBatchItem is one unit of stock, unique per
// (warehouse product, batch number, location label).
type InventoryBatchItem struct {
	shared.BaseEntity
	WarehouseProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_item_key,priority:1"`
	WarehouseID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchNumber        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_batch_item_key,priority:2"`
	LocationLabel      string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_batch_item_key,priority:3"`
	Quantity           int             `gorm:"not null;default:0"`
	ExpiryDate         *time.Time      `gorm:"type:date;index"`
	DateReceived       time.Time       `gorm:"type:date;not null"`
	CostPrice          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PickPriority       PickPriority    `gorm:"type:varchar(20);not null;default:'NONE'"`
}

// TableName returns the table name for GORM
func (InventoryBatchItem) TableName() string {
	return "inventory_batch_items"
}

// NewInventoryBatchItem creates a batch under the given warehouse product
func NewInventoryBatchItem(wp *WarehouseProduct, batchNumber, locationLabel string, quantity int, expiry *time.Time, received time.Time, cost decimal.Decimal) (*InventoryBatchItem, error) {
	if wp == nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE_PRODUCT", "Warehouse product is required")
	}
	if quantity < 0 {
		return nil, NewInvalidQuantityError("Batch quantity cannot be negative")
	}
	if cost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Cost price cannot be negative")
	}
	if received.IsZero() {
		received = time.Now()
	}
	var exp *time.Time
	if expiry != nil {
		d := DateOnly(*expiry)
		exp = &d
	}
	return &InventoryBatchItem{
		BaseEntity:         shared.NewBaseEntity(),
		WarehouseProductID: wp.ID,
		WarehouseID:        wp.WarehouseID,
		ProductID:          wp.ProductID,
		BatchNumber:        strings.TrimSpace(batchNumber),
		LocationLabel:      strings.TrimSpace(locationLabel),
		Quantity:           quantity,
		ExpiryDate:         exp,
		DateReceived:       DateOnly(received),
		CostPrice:          cost,
		PickPriority:       PickPriorityNone,
	}, nil
}

// IsExpiredOn reports whether the batch expired before the given day.
// A batch expiring on the day itself is still usable.
func (b *InventoryBatchItem) IsExpiredOn(day time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return DateOnly(*b.ExpiryDate).Before(DateOnly(day))
}

// Deduct removes quantity from the batch. The batch never goes negative.
func (b *InventoryBatchItem) Deduct(quantity int) error {
	if quantity <= 0 {
		return NewInvalidQuantityError("Deduction quantity must be positive")
	}
	if quantity > b.Quantity {
		return NewInsufficientStockError(quantity, b.Quantity)
	}
	b.Quantity -= quantity
	b.Touch()
	return nil
}

// ApplyDelta adds a signed delta to the batch, rejecting results below zero
func (b *InventoryBatchItem) ApplyDelta(delta int) error {
	if delta == 0 {
		return NewInvalidQuantityError("Adjustment delta cannot be zero")
	}
	if b.Quantity+delta < 0 {
		return NewInsufficientStockError(-delta, b.Quantity)
	}
	b.Quantity += delta
	b.Touch()
	return nil
}

// SetPickPriority changes the suggestion tier
func (b *InventoryBatchItem) SetPickPriority(p PickPriority) error {
	if !p.IsValid() {
		return shared.NewDomainError("INVALID_PICK_PRIORITY", fmt.Sprintf("Unknown pick priority %q", p))
	}
	b.PickPriority = p
	b.Touch()
	return nil
}
