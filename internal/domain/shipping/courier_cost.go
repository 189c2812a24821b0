package shipping

import (
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CourierCostRecord accumulates everything a courier has billed for one
// tracking number. A parcel is linked only on an exact tracking match.
type CourierCostRecord struct {
	shared.BaseAggregateRoot
	TrackingNumber string             `gorm:"type:varchar(100);not null;uniqueIndex"`
	ParcelID       *uuid.UUID         `gorm:"type:uuid;index"`
	TotalCost      decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	LatestWeight   decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Entries        []CourierCostEntry `gorm:"foreignKey:RecordID;references:ID"`
}

// TableName returns the table name for GORM
func (CourierCostRecord) TableName() string {
	return "courier_cost_records"
}

// CourierCostEntry is one invoice line in the cost history
type CourierCostEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RecordID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceNumber string          `gorm:"type:varchar(100)"`
	BilledCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BilledWeight  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BilledAt      time.Time       `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CourierCostEntry) TableName() string {
	return "courier_cost_entries"
}

// InvoiceLine is what the invoice collaborator supplies per tracking number
type InvoiceLine struct {
	TrackingNumber string
	InvoiceNumber  string
	BilledCost     decimal.Decimal
	BilledWeight   decimal.Decimal
	BilledAt       time.Time
}

// Validate checks an invoice line before it is accumulated
func (l InvoiceLine) Validate() error {
	if strings.TrimSpace(l.TrackingNumber) == "" {
		return shared.NewDomainError("INVALID_TRACKING_NUMBER", "Tracking number cannot be empty")
	}
	if l.BilledCost.IsNegative() && l.InvoiceNumber == "" {
		return shared.NewDomainError("INVALID_COST", "Credit lines must reference an invoice")
	}
	if l.BilledWeight.IsNegative() {
		return shared.NewDomainError("INVALID_WEIGHT", "Billed weight cannot be negative")
	}
	return nil
}

// NewCourierCostRecord starts an empty history for a tracking number
func NewCourierCostRecord(trackingNumber string) *CourierCostRecord {
	return &CourierCostRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TrackingNumber:    strings.TrimSpace(trackingNumber),
		TotalCost:         decimal.Zero,
		LatestWeight:      decimal.Zero,
	}
}

// Accumulate appends an invoice line to the history and returns the new entry.
// Credits (negative cost) reduce the total.
func (r *CourierCostRecord) Accumulate(line InvoiceLine) (*CourierCostEntry, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}
	billedAt := line.BilledAt
	if billedAt.IsZero() {
		billedAt = time.Now()
	}
	entry := CourierCostEntry{
		ID:            uuid.New(),
		RecordID:      r.ID,
		InvoiceNumber: line.InvoiceNumber,
		BilledCost:    line.BilledCost,
		BilledWeight:  line.BilledWeight,
		BilledAt:      billedAt,
		CreatedAt:     time.Now(),
	}
	r.Entries = append(r.Entries, entry)
	r.TotalCost = r.TotalCost.Add(line.BilledCost)
	if line.BilledWeight.IsPositive() {
		r.LatestWeight = line.BilledWeight
	}
	r.IncrementVersion()
	return &r.Entries[len(r.Entries)-1], nil
}

// LinkParcel ties the record to the parcel with the same tracking number
func (r *CourierCostRecord) LinkParcel(parcelID uuid.UUID) bool {
	if r.ParcelID != nil && *r.ParcelID == parcelID {
		return false
	}
	id := parcelID
	r.ParcelID = &id
	r.IncrementVersion()
	return true
}
