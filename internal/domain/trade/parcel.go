package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ParcelStatus tracks a parcel through the courier network
type ParcelStatus string

const (
	ParcelStatusPacked         ParcelStatus = "PACKED"
	ParcelStatusInTransit      ParcelStatus = "IN_TRANSIT"
	ParcelStatusDelivered      ParcelStatus = "DELIVERED"
	ParcelStatusReturned       ParcelStatus = "RETURNED"
	ParcelStatusDeliveryFailed ParcelStatus = "DELIVERY_FAILED"
)

// IsValid checks if the status is a valid ParcelStatus
func (s ParcelStatus) IsValid() bool {
	switch s {
	case ParcelStatusPacked, ParcelStatusInTransit, ParcelStatusDelivered, ParcelStatusReturned, ParcelStatusDeliveryFailed:
		return true
	}
	return false
}

// String returns the string representation of ParcelStatus
func (s ParcelStatus) String() string {
	return string(s)
}

// IsFinal reports whether courier events can no longer change the status
func (s ParcelStatus) IsFinal() bool {
	return s == ParcelStatusDelivered || s == ParcelStatusReturned
}

// CanTransitionTo only lets statuses move forward. A failed delivery can
// still be resolved as delivered or returned.
func (s ParcelStatus) CanTransitionTo(target ParcelStatus) bool {
	switch s {
	case ParcelStatusPacked:
		return target != ParcelStatusPacked
	case ParcelStatusInTransit:
		return target == ParcelStatusDelivered || target == ParcelStatusReturned || target == ParcelStatusDeliveryFailed
	case ParcelStatusDeliveryFailed:
		return target == ParcelStatusDelivered || target == ParcelStatusReturned
	}
	return false
}

// ParcelItem links one order line to the batch it was drawn from
type ParcelItem struct {
	shared.BaseEntity
	ParcelID    uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	BatchItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity    int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ParcelItem) TableName() string {
	return "parcel_items"
}

// Parcel is a physical shipment unit of an order
type Parcel struct {
	shared.BaseAggregateRoot
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	TrackingNumber string          `gorm:"type:varchar(100);index"`
	Status         ParcelStatus    `gorm:"type:varchar(20);not null;default:'PACKED';index"`
	PackedBy       string          `gorm:"type:varchar(100)"`
	ShippingCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BilledWeight   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	FirstTransitAt *time.Time
	LastEventAt    *time.Time
	DeliveredAt    *time.Time
	Items          []ParcelItem `gorm:"foreignKey:ParcelID;references:ID"`
}

// TableName returns the table name for GORM
func (Parcel) TableName() string {
	return "parcels"
}

// NewParcel creates a packed parcel for an order from validated allocations
func NewParcel(order *Order, allocs []PackAllocation, trackingNumber, packedBy string) *Parcel {
	p := &Parcel{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           order.ID,
		TrackingNumber:    strings.TrimSpace(trackingNumber),
		Status:            ParcelStatusPacked,
		PackedBy:          packedBy,
	}
	for _, a := range allocs {
		p.Items = append(p.Items, ParcelItem{
			BaseEntity:  shared.NewBaseEntity(),
			ParcelID:    p.ID,
			OrderItemID: a.OrderItemID,
			BatchItemID: a.Batch.ID,
			Quantity:    a.Quantity,
		})
	}
	p.AddDomainEvent(NewParcelPackedEvent(p))
	return p
}

// AssignTrackingNumber sets the courier reference once
func (p *Parcel) AssignTrackingNumber(tracking string) error {
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		return shared.NewDomainError("INVALID_TRACKING_NUMBER", "Tracking number cannot be empty")
	}
	if p.TrackingNumber != "" && p.TrackingNumber != tracking {
		return shared.NewDomainError("TRACKING_NUMBER_SET", fmt.Sprintf("Parcel already has tracking number %s", p.TrackingNumber))
	}
	p.TrackingNumber = tracking
	p.IncrementVersion()
	return nil
}

// ApplyCourierStatus moves the parcel forward. It returns whether the
// status changed and whether this was the parcel's first transit event.
func (p *Parcel) ApplyCourierStatus(status ParcelStatus, at time.Time) (changed bool, firstTransit bool) {
	if p.LastEventAt == nil || at.After(*p.LastEventAt) {
		t := at
		p.LastEventAt = &t
	}
	if p.FirstTransitAt == nil && status != ParcelStatusPacked {
		t := at
		p.FirstTransitAt = &t
		firstTransit = true
	}
	if status == p.Status || !p.Status.CanTransitionTo(status) {
		if firstTransit {
			p.Touch()
		}
		return false, firstTransit
	}
	prev := p.Status
	p.Status = status
	if status == ParcelStatusDelivered {
		t := at
		p.DeliveredAt = &t
	}
	p.IncrementVersion()
	p.AddDomainEvent(NewParcelStatusChangedEvent(p, prev))
	return true, firstTransit
}

// IsStale reports whether an in-transit parcel has exceeded the allowed age
func (p *Parcel) IsStale(now time.Time, maxAge time.Duration) bool {
	if p.Status != ParcelStatusInTransit || p.FirstTransitAt == nil {
		return false
	}
	return now.Sub(*p.FirstTransitAt) > maxAge
}

// MarkDeliveryFailed flags a stale in-transit parcel. Returns false when
// the parcel is not stale.
func (p *Parcel) MarkDeliveryFailed(now time.Time, maxAge time.Duration) bool {
	if !p.IsStale(now, maxAge) {
		return false
	}
	prev := p.Status
	p.Status = ParcelStatusDeliveryFailed
	p.IncrementVersion()
	p.AddDomainEvent(NewParcelStatusChangedEvent(p, prev))
	return true
}

// RecordShippingCost replaces the billed cost and weight with the latest invoice totals
func (p *Parcel) RecordShippingCost(cost, weight decimal.Decimal) {
	p.ShippingCost = cost
	p.BilledWeight = weight
	p.IncrementVersion()
}

// TotalQuantity sums parcel item quantities
func (p *Parcel) TotalQuantity() int {
	total := 0
	for _, it := range p.Items {
		total += it.Quantity
	}
	return total
}
