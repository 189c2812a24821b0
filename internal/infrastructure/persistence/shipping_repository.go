package persistence

import (
	"context"
	"strings"

	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTrackingEventRepository implements shipping.TrackingEventRepository using GORM
type GormTrackingEventRepository struct {
	db *gorm.DB
}

// NewGormTrackingEventRepository creates a new GormTrackingEventRepository
func NewGormTrackingEventRepository(db *gorm.DB) *GormTrackingEventRepository {
	return &GormTrackingEventRepository{db: db}
}

// CreateIfAbsent inserts the event, relying on the unique event_id index
// to drop redelivered events
func (r *GormTrackingEventRepository) CreateIfAbsent(ctx context.Context, ev *shipping.TrackingEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(ev)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FindByTrackingNumber returns a parcel's courier history in event order
func (r *GormTrackingEventRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) ([]shipping.TrackingEvent, error) {
	var evs []shipping.TrackingEvent
	if err := r.db.WithContext(ctx).
		Where("tracking_number = ?", strings.TrimSpace(trackingNumber)).
		Order("occurred_at, created_at").
		Find(&evs).Error; err != nil {
		return nil, err
	}
	return evs, nil
}

// LinkUnmatched sets the parcel on events that arrived before the tracking
// number was assigned
func (r *GormTrackingEventRepository) LinkUnmatched(ctx context.Context, trackingNumber string, parcelID uuid.UUID) ([]shipping.TrackingEvent, error) {
	db := r.db.WithContext(ctx)
	trackingNumber = strings.TrimSpace(trackingNumber)
	var evs []shipping.TrackingEvent
	if err := forUpdate(db).
		Where("tracking_number = ? AND parcel_id IS NULL", trackingNumber).
		Order("occurred_at, created_at").
		Find(&evs).Error; err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(evs))
	for i := range evs {
		ids[i] = evs[i].ID
		evs[i].ParcelID = &parcelID
	}
	if err := db.Model(&shipping.TrackingEvent{}).
		Where("id IN ?", ids).
		Update("parcel_id", parcelID).Error; err != nil {
		return nil, translate(err)
	}
	return evs, nil
}

// GormCourierCostRepository implements shipping.CourierCostRepository using GORM
type GormCourierCostRepository struct {
	db *gorm.DB
}

// NewGormCourierCostRepository creates a new GormCourierCostRepository
func NewGormCourierCostRepository(db *gorm.DB) *GormCourierCostRepository {
	return &GormCourierCostRepository{db: db}
}

// FindOrCreateForUpdate seeds an empty record on first use and returns it
// row-locked so invoice lines for one tracking number accumulate serially
func (r *GormCourierCostRepository) FindOrCreateForUpdate(ctx context.Context, trackingNumber string) (*shipping.CourierCostRecord, error) {
	db := r.db.WithContext(ctx)
	seed := shipping.NewCourierCostRecord(trackingNumber)
	if err := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tracking_number"}}, DoNothing: true}).
		Create(seed).Error; err != nil {
		return nil, translate(err)
	}
	var rec shipping.CourierCostRecord
	if err := forUpdate(db).Where("tracking_number = ?", seed.TrackingNumber).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// FindByTrackingNumber loads a record with its entries
func (r *GormCourierCostRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*shipping.CourierCostRecord, error) {
	var rec shipping.CourierCostRecord
	if err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("billed_at, created_at") }).
		Where("tracking_number = ?", strings.TrimSpace(trackingNumber)).
		First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// Save updates the record totals
func (r *GormCourierCostRepository) Save(ctx context.Context, rec *shipping.CourierCostRecord) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(rec).Error)
}

// AddEntry appends one invoice line to the history
func (r *GormCourierCostRepository) AddEntry(ctx context.Context, entry *shipping.CourierCostEntry) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

var (
	_ shipping.TrackingEventRepository = (*GormTrackingEventRepository)(nil)
	_ shipping.CourierCostRepository   = (*GormCourierCostRepository)(nil)
)
