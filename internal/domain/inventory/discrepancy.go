package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// DiscrepancyType classifies a reconciliation finding
type DiscrepancyType string

const (
	DiscrepancyMissingInSystem  DiscrepancyType = "MISSING_IN_SYSTEM"
	DiscrepancyMissingInCount   DiscrepancyType = "MISSING_IN_COUNT"
	DiscrepancyQuantityMismatch DiscrepancyType = "QUANTITY_MISMATCH"
	DiscrepancyLocationMismatch DiscrepancyType = "LOCATION_MISMATCH"
	DiscrepancyBatchMismatch    DiscrepancyType = "BATCH_MISMATCH"
)

// IsValid checks if the discrepancy type is known
func (t DiscrepancyType) IsValid() bool {
	switch t {
	case DiscrepancyMissingInSystem, DiscrepancyMissingInCount, DiscrepancyQuantityMismatch,
		DiscrepancyLocationMismatch, DiscrepancyBatchMismatch:
		return true
	}
	return false
}

// String returns the string representation of DiscrepancyType
func (t DiscrepancyType) String() string {
	return string(t)
}

// Resolution is the mutable tail of a discrepancy record
type Resolution struct {
	IsResolved     bool       `gorm:"not null;default:false;index"`
	ResolvedBy     string     `gorm:"type:varchar(100)"`
	ResolvedAt     *time.Time
	ResolutionNote string `gorm:"type:text"`
}

// Resolve marks the discrepancy handled
func (r *Resolution) Resolve(actor, note string, at time.Time) {
	r.IsResolved = true
	r.ResolvedBy = actor
	r.ResolvedAt = &at
	r.ResolutionNote = note
}

// StockDiscrepancy is produced once per finding by a stock-take
// evaluation. Only the resolution fields change afterwards.
type StockDiscrepancy struct {
	shared.BaseEntity
	SessionID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type                 DiscrepancyType `gorm:"type:varchar(30);not null;index"`
	SystemBatchItemID    *uuid.UUID      `gorm:"type:uuid"`
	SystemBatchNumber    string          `gorm:"type:varchar(100)"`
	SystemLocationLabel  string          `gorm:"type:varchar(100)"`
	SystemExpiryDate     *time.Time      `gorm:"type:date"`
	SystemQuantity       int             `gorm:"not null;default:0"`
	CountedBatchNumber   string          `gorm:"type:varchar(100)"`
	CountedLocationLabel string          `gorm:"type:varchar(100)"`
	CountedExpiryDate    *time.Time      `gorm:"type:date"`
	CountedQuantity      int             `gorm:"not null;default:0"`
	DiscrepancyQuantity  int             `gorm:"not null"`
	Resolution           `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (StockDiscrepancy) TableName() string {
	return "stock_discrepancies"
}

// CorrectiveDelta is the batch adjustment that would bring the system in
// line with the count, and the batch it applies to. ok is false when the
// finding has no system batch to adjust.
func (d *StockDiscrepancy) CorrectiveDelta() (batchID uuid.UUID, delta int, ok bool) {
	if d.SystemBatchItemID == nil {
		return uuid.Nil, 0, false
	}
	switch d.Type {
	case DiscrepancyQuantityMismatch, DiscrepancyMissingInCount:
		if d.DiscrepancyQuantity == 0 {
			return uuid.Nil, 0, false
		}
		return *d.SystemBatchItemID, d.DiscrepancyQuantity, true
	}
	return uuid.Nil, 0, false
}
