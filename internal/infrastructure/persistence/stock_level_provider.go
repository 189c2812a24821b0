package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockLevelProvider samples stock gauges for FulfillmentMetrics
type GormStockLevelProvider struct {
	db *gorm.DB
}

// NewGormStockLevelProvider creates a new GormStockLevelProvider
func NewGormStockLevelProvider(db *gorm.DB) *GormStockLevelProvider {
	return &GormStockLevelProvider{db: db}
}

// StockByWarehouse sums cached warehouse product totals per warehouse
func (p *GormStockLevelProvider) StockByWarehouse(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		WarehouseID uuid.UUID
		Total       int64
	}
	if err := p.db.WithContext(ctx).
		Model(&inventory.WarehouseProduct{}).
		Select("warehouse_id, COALESCE(SUM(total_quantity), 0) AS total").
		Group("warehouse_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		out[r.WarehouseID] = r.Total
	}
	return out, nil
}

// OpenDiscrepancyCount counts unresolved stock-take and ERP discrepancies
func (p *GormStockLevelProvider) OpenDiscrepancyCount(ctx context.Context) (int64, error) {
	db := p.db.WithContext(ctx)
	var sessionOpen, erpOpen int64
	if err := db.Model(&inventory.StockDiscrepancy{}).Where("is_resolved = ?", false).Count(&sessionOpen).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&inventory.WarehouseProductDiscrepancy{}).Where("is_resolved = ?", false).Count(&erpOpen).Error; err != nil {
		return 0, err
	}
	return sessionOpen + erpOpen, nil
}

var _ telemetry.StockLevelProvider = (*GormStockLevelProvider)(nil)
