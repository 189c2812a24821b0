package persistence

import (
	"context"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	appship "github.com/erp/fulfillment/internal/application/shipping"
	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/erp/fulfillment/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope implements the inventory, trade and shipping
// transaction scopes with one GORM transaction per Execute call.
// If the function returns an error, the transaction is rolled back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

func (s *GormTransactionScope) run(ctx context.Context, fn func(*gormTransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Inventory returns the scope used by stock and stock-take services
func (s *GormTransactionScope) Inventory() appinv.TransactionScope { return inventoryScope{s} }

// Trade returns the scope used by fulfillment and purchasing
func (s *GormTransactionScope) Trade() apptrade.TransactionScope { return tradeScope{s} }

// Shipping returns the scope used by courier tracking and invoicing
func (s *GormTransactionScope) Shipping() appship.TransactionScope { return shippingScope{s} }

type inventoryScope struct{ s *GormTransactionScope }

func (i inventoryScope) Execute(ctx context.Context, fn func(appinv.TransactionalRepositories) error) error {
	return i.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

type tradeScope struct{ s *GormTransactionScope }

func (t tradeScope) Execute(ctx context.Context, fn func(apptrade.TransactionalRepositories) error) error {
	return t.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

type shippingScope struct{ s *GormTransactionScope }

func (sh shippingScope) Execute(ctx context.Context, fn func(appship.TransactionalRepositories) error) error {
	return sh.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) WarehouseProductRepo() inventory.WarehouseProductRepository {
	return NewGormWarehouseProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) BatchRepo() inventory.BatchItemRepository {
	return NewGormBatchItemRepository(r.tx)
}

func (r *gormTransactionalRepositories) TransactionRepo() inventory.StockTransactionRepository {
	return NewGormStockTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) StockTakeRepo() inventory.StockTakeRepository {
	return NewGormStockTakeRepository(r.tx)
}

func (r *gormTransactionalRepositories) DiscrepancyRepo() inventory.DiscrepancyRepository {
	return NewGormDiscrepancyRepository(r.tx)
}

func (r *gormTransactionalRepositories) ErpCheckRepo() inventory.ErpStockCheckRepository {
	return NewGormErpStockCheckRepository(r.tx)
}

func (r *gormTransactionalRepositories) OrderRepo() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) ParcelRepo() trade.ParcelRepository {
	return NewGormParcelRepository(r.tx)
}

func (r *gormTransactionalRepositories) PurchaseOrderRepo() trade.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) SupplierRepo() partner.SupplierRepository {
	return NewGormSupplierRepository(r.tx)
}

func (r *gormTransactionalRepositories) TrackingEventRepo() shipping.TrackingEventRepository {
	return NewGormTrackingEventRepository(r.tx)
}

func (r *gormTransactionalRepositories) CourierCostRepo() shipping.CourierCostRepository {
	return NewGormCourierCostRepository(r.tx)
}

var (
	_ appinv.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
	_ apptrade.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appship.TransactionalRepositories  = (*gormTransactionalRepositories)(nil)
)
