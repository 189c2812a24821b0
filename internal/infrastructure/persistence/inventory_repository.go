package persistence

import (
	"context"
	"strings"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWarehouseProductRepository implements inventory.WarehouseProductRepository using GORM
type GormWarehouseProductRepository struct {
	db *gorm.DB
}

// NewGormWarehouseProductRepository creates a new GormWarehouseProductRepository
func NewGormWarehouseProductRepository(db *gorm.DB) *GormWarehouseProductRepository {
	return &GormWarehouseProductRepository{db: db}
}

// FindByID finds a warehouse product by its ID
func (r *GormWarehouseProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.WarehouseProduct, error) {
	var wp inventory.WarehouseProduct
	if err := r.db.WithContext(ctx).First(&wp, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &wp, nil
}

// FindByWarehouseAndProduct finds the row for a warehouse-product pair
func (r *GormWarehouseProductRepository) FindByWarehouseAndProduct(ctx context.Context, warehouseID, productID uuid.UUID) (*inventory.WarehouseProduct, error) {
	var wp inventory.WarehouseProduct
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		First(&wp).Error; err != nil {
		return nil, translate(err)
	}
	return &wp, nil
}

// FindByWarehouse lists all products stocked in a warehouse
func (r *GormWarehouseProductRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]inventory.WarehouseProduct, error) {
	var wps []inventory.WarehouseProduct
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("created_at, id").
		Find(&wps).Error; err != nil {
		return nil, err
	}
	return wps, nil
}

// GetOrCreate inserts an empty row unless one exists, then reads it back.
// Concurrent callers converge on the same row through the unique index.
func (r *GormWarehouseProductRepository) GetOrCreate(ctx context.Context, warehouseID, productID uuid.UUID) (*inventory.WarehouseProduct, error) {
	if wp, err := r.FindByWarehouseAndProduct(ctx, warehouseID, productID); err == nil {
		return wp, nil
	}
	seed, err := inventory.NewWarehouseProduct(warehouseID, productID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, translate(err)
	}
	return r.FindByWarehouseAndProduct(ctx, warehouseID, productID)
}

// Save updates the warehouse product
func (r *GormWarehouseProductRepository) Save(ctx context.Context, wp *inventory.WarehouseProduct) error {
	return translate(r.db.WithContext(ctx).Save(wp).Error)
}

// GormBatchItemRepository implements inventory.BatchItemRepository using GORM
type GormBatchItemRepository struct {
	db *gorm.DB
}

// NewGormBatchItemRepository creates a new GormBatchItemRepository
func NewGormBatchItemRepository(db *gorm.DB) *GormBatchItemRepository {
	return &GormBatchItemRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatchItem, error) {
	var b inventory.InventoryBatchItem
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// FindByIDForUpdate finds and row-locks a batch
func (r *GormBatchItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatchItem, error) {
	var b inventory.InventoryBatchItem
	if err := forUpdate(r.db.WithContext(ctx)).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// FindByWarehouseProduct lists the batches of a warehouse product
func (r *GormBatchItemRepository) FindByWarehouseProduct(ctx context.Context, wpID uuid.UUID) ([]inventory.InventoryBatchItem, error) {
	var bs []inventory.InventoryBatchItem
	if err := r.db.WithContext(ctx).
		Where("warehouse_product_id = ?", wpID).
		Order("id").
		Find(&bs).Error; err != nil {
		return nil, err
	}
	return bs, nil
}

// FindByWarehouseProductForUpdate locks every batch of a warehouse product.
// Rows are locked in id order so two deductions never deadlock.
func (r *GormBatchItemRepository) FindByWarehouseProductForUpdate(ctx context.Context, wpID uuid.UUID) ([]inventory.InventoryBatchItem, error) {
	var bs []inventory.InventoryBatchItem
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("warehouse_product_id = ?", wpID).
		Order("id").
		Find(&bs).Error; err != nil {
		return nil, err
	}
	return bs, nil
}

// FindByKey finds a batch by (warehouse product, batch number, location)
func (r *GormBatchItemRepository) FindByKey(ctx context.Context, wpID uuid.UUID, batchNumber, locationLabel string) (*inventory.InventoryBatchItem, error) {
	var b inventory.InventoryBatchItem
	if err := r.db.WithContext(ctx).
		Where("warehouse_product_id = ? AND batch_number = ? AND location_label = ?",
			wpID, strings.TrimSpace(batchNumber), strings.TrimSpace(locationLabel)).
		First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// FindByWarehouse lists every batch in a warehouse
func (r *GormBatchItemRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]inventory.InventoryBatchItem, error) {
	var bs []inventory.InventoryBatchItem
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("warehouse_product_id, id").
		Find(&bs).Error; err != nil {
		return nil, err
	}
	return bs, nil
}

// SumQuantity returns the live sum of batch quantities
func (r *GormBatchItemRepository) SumQuantity(ctx context.Context, wpID uuid.UUID) (int, error) {
	var sum int
	if err := r.db.WithContext(ctx).Model(&inventory.InventoryBatchItem{}).
		Where("warehouse_product_id = ?", wpID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

// Save creates or updates a batch
func (r *GormBatchItemRepository) Save(ctx context.Context, batch *inventory.InventoryBatchItem) error {
	return translate(r.db.WithContext(ctx).Save(batch).Error)
}

// GormStockTransactionRepository implements inventory.StockTransactionRepository using GORM.
// The ledger is append-only so there is no Save.
type GormStockTransactionRepository struct {
	db *gorm.DB
}

// NewGormStockTransactionRepository creates a new GormStockTransactionRepository
func NewGormStockTransactionRepository(db *gorm.DB) *GormStockTransactionRepository {
	return &GormStockTransactionRepository{db: db}
}

// Create appends a ledger entry
func (r *GormStockTransactionRepository) Create(ctx context.Context, entry *inventory.StockTransaction) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

// FindByWarehouseProduct returns the ledger of a warehouse product in order
func (r *GormStockTransactionRepository) FindByWarehouseProduct(ctx context.Context, wpID uuid.UUID) ([]inventory.StockTransaction, error) {
	var entries []inventory.StockTransaction
	if err := r.db.WithContext(ctx).
		Where("warehouse_product_id = ?", wpID).
		Order("created_at, id").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByOrder returns the ledger entries linked to an order
func (r *GormStockTransactionRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.StockTransaction, error) {
	var entries []inventory.StockTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at, id").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByWarehouseProduct returns the signed ledger total
func (r *GormStockTransactionRepository) SumByWarehouseProduct(ctx context.Context, wpID uuid.UUID) (int, error) {
	var sum int
	if err := r.db.WithContext(ctx).Model(&inventory.StockTransaction{}).
		Where("warehouse_product_id = ?", wpID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

var (
	_ inventory.WarehouseProductRepository = (*GormWarehouseProductRepository)(nil)
	_ inventory.BatchItemRepository        = (*GormBatchItemRepository)(nil)
	_ inventory.StockTransactionRepository = (*GormStockTransactionRepository)(nil)
)
