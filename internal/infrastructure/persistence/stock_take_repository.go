package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockTakeRepository implements inventory.StockTakeRepository using GORM
type GormStockTakeRepository struct {
	db *gorm.DB
}

// NewGormStockTakeRepository creates a new GormStockTakeRepository
func NewGormStockTakeRepository(db *gorm.DB) *GormStockTakeRepository {
	return &GormStockTakeRepository{db: db}
}

// FindByID finds a session without its items
func (r *GormStockTakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockTakeSession, error) {
	var s inventory.StockTakeSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// FindByIDForUpdate finds and row-locks a session
func (r *GormStockTakeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.StockTakeSession, error) {
	var s inventory.StockTakeSession
	if err := forUpdate(r.db.WithContext(ctx)).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// FindByWarehouse lists the sessions of a warehouse, newest first
func (r *GormStockTakeRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]inventory.StockTakeSession, error) {
	var ss []inventory.StockTakeSession
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("initiated_at DESC").
		Find(&ss).Error; err != nil {
		return nil, err
	}
	return ss, nil
}

// Save creates or updates the session row; items are written by AddItem
func (r *GormStockTakeRepository) Save(ctx context.Context, s *inventory.StockTakeSession) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error)
}

// AddItem appends one counted row
func (r *GormStockTakeRepository) AddItem(ctx context.Context, item *inventory.StockTakeItem) error {
	return translate(r.db.WithContext(ctx).Create(item).Error)
}

// FindItems returns the counted rows of a session in entry order
func (r *GormStockTakeRepository) FindItems(ctx context.Context, sessionID uuid.UUID) ([]inventory.StockTakeItem, error) {
	var items []inventory.StockTakeItem
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at, id").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GormDiscrepancyRepository implements inventory.DiscrepancyRepository using GORM
type GormDiscrepancyRepository struct {
	db *gorm.DB
}

// NewGormDiscrepancyRepository creates a new GormDiscrepancyRepository
func NewGormDiscrepancyRepository(db *gorm.DB) *GormDiscrepancyRepository {
	return &GormDiscrepancyRepository{db: db}
}

// CreateAll inserts the findings of one evaluation
func (r *GormDiscrepancyRepository) CreateAll(ctx context.Context, ds []inventory.StockDiscrepancy) error {
	if len(ds) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).CreateInBatches(ds, 200).Error)
}

// FindByID finds a discrepancy by its ID
func (r *GormDiscrepancyRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockDiscrepancy, error) {
	var d inventory.StockDiscrepancy
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// FindByIDForUpdate finds and row-locks a discrepancy
func (r *GormDiscrepancyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.StockDiscrepancy, error) {
	var d inventory.StockDiscrepancy
	if err := forUpdate(r.db.WithContext(ctx)).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// FindBySession lists the findings of a session
func (r *GormDiscrepancyRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]inventory.StockDiscrepancy, error) {
	var ds []inventory.StockDiscrepancy
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("type, warehouse_product_id, id").
		Find(&ds).Error; err != nil {
		return nil, err
	}
	return ds, nil
}

// Save updates a discrepancy
func (r *GormDiscrepancyRepository) Save(ctx context.Context, d *inventory.StockDiscrepancy) error {
	return translate(r.db.WithContext(ctx).Save(d).Error)
}

// GormErpStockCheckRepository implements inventory.ErpStockCheckRepository using GORM
type GormErpStockCheckRepository struct {
	db *gorm.DB
}

// NewGormErpStockCheckRepository creates a new GormErpStockCheckRepository
func NewGormErpStockCheckRepository(db *gorm.DB) *GormErpStockCheckRepository {
	return &GormErpStockCheckRepository{db: db}
}

// FindByID finds a check with its items
func (r *GormErpStockCheckRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.ErpStockCheck, error) {
	var c inventory.ErpStockCheck
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// FindByIDForUpdate row-locks the check and loads its items
func (r *GormErpStockCheckRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.ErpStockCheck, error) {
	var c inventory.ErpStockCheck
	if err := forUpdate(r.db.WithContext(ctx)).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// Create inserts the check with its items
func (r *GormErpStockCheckRepository) Create(ctx context.Context, c *inventory.ErpStockCheck) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

// Save updates the check row only
func (r *GormErpStockCheckRepository) Save(ctx context.Context, c *inventory.ErpStockCheck) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error)
}

// CreateDiscrepancies inserts the findings of one evaluation
func (r *GormErpStockCheckRepository) CreateDiscrepancies(ctx context.Context, ds []inventory.WarehouseProductDiscrepancy) error {
	if len(ds) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).CreateInBatches(ds, 200).Error)
}

// FindDiscrepancies lists the findings of a check
func (r *GormErpStockCheckRepository) FindDiscrepancies(ctx context.Context, checkID uuid.UUID) ([]inventory.WarehouseProductDiscrepancy, error) {
	var ds []inventory.WarehouseProductDiscrepancy
	if err := r.db.WithContext(ctx).
		Where("check_id = ?", checkID).
		Order("warehouse_product_id, id").
		Find(&ds).Error; err != nil {
		return nil, err
	}
	return ds, nil
}

var (
	_ inventory.StockTakeRepository     = (*GormStockTakeRepository)(nil)
	_ inventory.DiscrepancyRepository   = (*GormDiscrepancyRepository)(nil)
	_ inventory.ErpStockCheckRepository = (*GormErpStockCheckRepository)(nil)
)
