package trade

import (
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the receiving progress of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusOpen              PurchaseOrderStatus = "OPEN"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "PARTIALLY_RECEIVED"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "RECEIVED"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "CANCELLED"
)

// CanReceive reports whether goods can still be received
func (s PurchaseOrderStatus) CanReceive() bool {
	return s == PurchaseOrderStatusOpen || s == PurchaseOrderStatusPartiallyReceived
}

// PurchaseOrderLine is one product line of a purchase order
type PurchaseOrderLine struct {
	shared.BaseEntity
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	QuantityOrdered  int             `gorm:"not null"`
	QuantityReceived int             `gorm:"not null;default:0"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}

// Remaining is what is still expected on the line
func (l *PurchaseOrderLine) Remaining() int {
	return l.QuantityOrdered - l.QuantityReceived
}

// PurchaseOrder is a replenishment order to a supplier
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	Number      string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierID  uuid.UUID           `gorm:"type:uuid;not null;index"`
	WarehouseID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status      PurchaseOrderStatus `gorm:"type:varchar(30);not null;default:'OPEN'"`
	CreatedBy   string              `gorm:"type:varchar(100)"`
	ReceivedAt  *time.Time
	Lines       []PurchaseOrderLine `gorm:"foreignKey:PurchaseOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderLineInput describes a requested line
type PurchaseOrderLineInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitCost  decimal.Decimal
}

// NewPurchaseOrder creates an OPEN purchase order with an allocated number
func NewPurchaseOrder(number string, supplierID, warehouseID uuid.UUID, lines []PurchaseOrderLineInput, createdBy string) (*PurchaseOrder, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Purchase order number cannot be empty")
	}
	if supplierID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PURCHASE_ORDER", "Supplier and warehouse are required")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Purchase order requires at least one line")
	}
	po := &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		SupplierID:        supplierID,
		WarehouseID:       warehouseID,
		Status:            PurchaseOrderStatusOpen,
		CreatedBy:         createdBy,
	}
	for _, in := range lines {
		if in.ProductID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
		}
		if in.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
		}
		if in.UnitCost.IsNegative() {
			return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
		}
		po.Lines = append(po.Lines, PurchaseOrderLine{
			BaseEntity:      shared.NewBaseEntity(),
			PurchaseOrderID: po.ID,
			ProductID:       in.ProductID,
			QuantityOrdered: in.Quantity,
			UnitCost:        in.UnitCost,
		})
	}
	return po, nil
}

// GetLine returns the line with the given ID, or nil
func (po *PurchaseOrder) GetLine(lineID uuid.UUID) *PurchaseOrderLine {
	for i := range po.Lines {
		if po.Lines[i].ID == lineID {
			return &po.Lines[i]
		}
	}
	return nil
}

// Receive books received quantity on a line and updates the status
func (po *PurchaseOrder) Receive(lineID uuid.UUID, quantity int) error {
	if !po.Status.CanReceive() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot receive goods on a purchase order in %s status", po.Status))
	}
	line := po.GetLine(lineID)
	if line == nil {
		return shared.NewDomainError("LINE_NOT_FOUND", fmt.Sprintf("Purchase order line %s not found", lineID))
	}
	if quantity <= 0 || quantity > line.Remaining() {
		return shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Received quantity %d must be between 1 and %d", quantity, line.Remaining()))
	}
	line.QuantityReceived += quantity
	line.Touch()

	complete := true
	for i := range po.Lines {
		if po.Lines[i].Remaining() > 0 {
			complete = false
			break
		}
	}
	if complete {
		now := time.Now()
		po.Status = PurchaseOrderStatusReceived
		po.ReceivedAt = &now
	} else {
		po.Status = PurchaseOrderStatusPartiallyReceived
	}
	po.IncrementVersion()
	return nil
}
