package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TrackingEventRepository persists courier events
type TrackingEventRepository interface {
	// CreateIfAbsent inserts the event unless its EventID is already stored.
	// Returns false for a duplicate.
	CreateIfAbsent(ctx context.Context, event *TrackingEvent) (bool, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) ([]TrackingEvent, error)
	// LinkUnmatched attaches events stored before any parcel carried the
	// tracking number and returns them in occurrence order
	LinkUnmatched(ctx context.Context, trackingNumber string, parcelID uuid.UUID) ([]TrackingEvent, error)
}

// CourierCostRepository persists invoice cost history
type CourierCostRepository interface {
	// FindOrCreateForUpdate returns the locked record for a tracking number,
	// inserting an empty one on first use
	FindOrCreateForUpdate(ctx context.Context, trackingNumber string) (*CourierCostRecord, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*CourierCostRecord, error)
	Save(ctx context.Context, record *CourierCostRecord) error
	AddEntry(ctx context.Context, entry *CourierCostEntry) error
}

// TokenCache holds courier API bearer tokens for the whole process
type TokenCache interface {
	// Get returns the cached token, or ok=false when missing or expired
	Get(ctx context.Context, key string) (token string, ok bool, err error)
	// Set stores a token until ttl elapses
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
