package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// ErpStockCheckStatus tracks an ERP comparison run
type ErpStockCheckStatus string

const (
	ErpStockCheckStatusPending   ErpStockCheckStatus = "PENDING"
	ErpStockCheckStatusEvaluated ErpStockCheckStatus = "EVALUATED"
)

// ErpStockCheckItem is the quantity the ERP reports for one warehouse product
type ErpStockCheckItem struct {
	shared.BaseEntity
	CheckID            uuid.UUID `gorm:"type:uuid;not null;index"`
	WarehouseProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	ERPQuantity        int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ErpStockCheckItem) TableName() string {
	return "erp_stock_check_items"
}

// ErpStockCheck compares ERP-reported totals with system totals for a warehouse
type ErpStockCheck struct {
	shared.BaseAggregateRoot
	WarehouseID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status      ErpStockCheckStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Reference   string              `gorm:"type:varchar(255)"`
	UploadedBy  string              `gorm:"type:varchar(100);not null"`
	EvaluatedBy string              `gorm:"type:varchar(100)"`
	EvaluatedAt *time.Time
	Items       []ErpStockCheckItem `gorm:"foreignKey:CheckID;references:ID"`
}

// TableName returns the table name for GORM
func (ErpStockCheck) TableName() string {
	return "erp_stock_checks"
}

// NewErpStockCheck creates a pending check
func NewErpStockCheck(warehouseID uuid.UUID, reference, uploadedBy string) (*ErpStockCheck, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if strings.TrimSpace(uploadedBy) == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Uploader cannot be empty")
	}
	return &ErpStockCheck{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		Status:            ErpStockCheckStatusPending,
		Reference:         reference,
		UploadedBy:        uploadedBy,
	}, nil
}

// AddItem records the ERP quantity for a warehouse product
func (c *ErpStockCheck) AddItem(wpID uuid.UUID, erpQuantity int) (*ErpStockCheckItem, error) {
	if c.Status != ErpStockCheckStatusPending {
		return nil, shared.NewDomainError(CodeInvalidErpCheckTransition, "Cannot add items to an evaluated ERP check")
	}
	if erpQuantity < 0 {
		return nil, NewInvalidQuantityError("ERP quantity cannot be negative")
	}
	item := ErpStockCheckItem{
		BaseEntity:         shared.NewBaseEntity(),
		CheckID:            c.ID,
		WarehouseProductID: wpID,
		ERPQuantity:        erpQuantity,
	}
	c.Items = append(c.Items, item)
	return &c.Items[len(c.Items)-1], nil
}

// MarkEvaluated finishes the check
func (c *ErpStockCheck) MarkEvaluated(actor string, at time.Time) error {
	if c.Status == ErpStockCheckStatusEvaluated {
		return NewDuplicateSessionEvaluationError(c.ID)
	}
	if c.Status != ErpStockCheckStatusPending {
		return shared.NewDomainError(CodeInvalidErpCheckTransition, fmt.Sprintf("Cannot evaluate an ERP check in %s status", c.Status))
	}
	c.Status = ErpStockCheckStatusEvaluated
	c.EvaluatedBy = actor
	c.EvaluatedAt = &at
	c.IncrementVersion()
	return nil
}

// WarehouseProductDiscrepancy is a total-level finding from an ERP check
type WarehouseProductDiscrepancy struct {
	shared.BaseEntity
	CheckID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseProductID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type                DiscrepancyType `gorm:"type:varchar(30);not null"`
	SystemQuantity      int             `gorm:"not null;default:0"`
	ERPQuantity         int             `gorm:"not null;default:0"`
	DiscrepancyQuantity int             `gorm:"not null"`
	Resolution          `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (WarehouseProductDiscrepancy) TableName() string {
	return "warehouse_product_discrepancies"
}

// ReconcileERP compares system totals with ERP quantities keyed only by
// warehouse product, since the ERP has no batch or location detail.
// DiscrepancyQuantity is ERP minus system. Zero quantities on one side with
// no record on the other are not findings.
func ReconcileERP(checkID uuid.UUID, systemTotals map[uuid.UUID]int, items []ErpStockCheckItem) []WarehouseProductDiscrepancy {
	erp := make(map[uuid.UUID]int)
	for _, it := range items {
		erp[it.WarehouseProductID] += it.ERPQuantity
	}

	ids := make(map[uuid.UUID]struct{})
	for id, q := range systemTotals {
		if q > 0 {
			ids[id] = struct{}{}
		}
	}
	for id := range erp {
		ids[id] = struct{}{}
	}
	ordered := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	var result []WarehouseProductDiscrepancy
	for _, id := range ordered {
		sysQty, inSystem := systemTotals[id]
		inSystem = inSystem && sysQty > 0
		erpQty, inERP := erp[id]

		var kind DiscrepancyType
		switch {
		case inSystem && inERP:
			if sysQty == erpQty {
				continue
			}
			kind = DiscrepancyQuantityMismatch
		case inSystem:
			kind = DiscrepancyMissingInCount
		case inERP:
			if erpQty == 0 {
				continue
			}
			// ERP holds stock the system has no record of; sysQty may be a zero total
			sysQty = 0
			kind = DiscrepancyMissingInSystem
		}
		result = append(result, WarehouseProductDiscrepancy{
			BaseEntity:          shared.NewBaseEntity(),
			CheckID:             checkID,
			WarehouseProductID:  id,
			Type:                kind,
			SystemQuantity:      sysQty,
			ERPQuantity:         erpQty,
			DiscrepancyQuantity: erpQty - sysQty,
		})
	}
	return result
}
