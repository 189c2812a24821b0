package shipping

import (
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
)

// DefaultStaleAfter is how long a parcel may stay in transit before it is
// flagged as a failed delivery
const DefaultStaleAfter = 20 * 24 * time.Hour

// TrackingEvent is one courier scan. EventID is the courier's own identifier
// and is unique, so replays of the same feed are ignored.
type TrackingEvent struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey"`
	EventID           string             `gorm:"type:varchar(100);not null;uniqueIndex"`
	TrackingNumber    string             `gorm:"type:varchar(100);not null;index"`
	StatusDescription string             `gorm:"type:text;not null"`
	Location          string             `gorm:"type:varchar(255)"`
	OccurredAt        time.Time          `gorm:"not null"`
	ParcelID          *uuid.UUID         `gorm:"type:uuid;index"`
	DerivedStatus     trade.ParcelStatus `gorm:"type:varchar(20);not null"`
	CreatedAt         time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TrackingEvent) TableName() string {
	return "tracking_events"
}

// NewTrackingEvent validates and classifies a courier event
func NewTrackingEvent(eventID, trackingNumber, description, location string, occurredAt time.Time) (*TrackingEvent, error) {
	eventID = strings.TrimSpace(eventID)
	trackingNumber = strings.TrimSpace(trackingNumber)
	if eventID == "" {
		return nil, shared.NewDomainError("INVALID_EVENT_ID", "Tracking event ID cannot be empty")
	}
	if trackingNumber == "" {
		return nil, shared.NewDomainError("INVALID_TRACKING_NUMBER", "Tracking number cannot be empty")
	}
	if occurredAt.IsZero() {
		return nil, shared.NewDomainError("INVALID_TIMESTAMP", "Tracking event timestamp is required")
	}
	return &TrackingEvent{
		ID:                uuid.New(),
		EventID:           eventID,
		TrackingNumber:    trackingNumber,
		StatusDescription: description,
		Location:          location,
		OccurredAt:        occurredAt,
		DerivedStatus:     ClassifyDescription(description),
		CreatedAt:         time.Now(),
	}, nil
}

// ClassifyDescription maps a free-text courier status to a parcel status.
// "return" is checked before "delivered" so "returned, delivered to sender"
// counts as a return. Anything else means the parcel is moving.
func ClassifyDescription(description string) trade.ParcelStatus {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "return"):
		return trade.ParcelStatusReturned
	case strings.Contains(d, "delivered"):
		return trade.ParcelStatusDelivered
	}
	return trade.ParcelStatusInTransit
}
