package persistence

import (
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/catalog"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// Options controls logging and tracing on the connection
type Options struct {
	Logger   *zap.Logger
	LogLevel string
	Tracing  telemetry.DBTracingConfig
}

// NewDatabase opens a PostgreSQL connection, sizes the pool and installs
// the zap gorm logger and statement tracing
func NewDatabase(cfg *config.DatabaseConfig, opts Options) (*Database, error) {
	zl := opts.Logger
	if zl == nil {
		zl = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 logger.NewGormLogger(zl, logger.MapGormLogLevel(opts.LogLevel), opts.Tracing.SlowQueryThresh),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := telemetry.RegisterDBTracing(db, opts.Tracing, zl); err != nil {
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}
	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Stats returns connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	s := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Models lists every persisted type in dependency order. The SQL files in
// migrations/ are authoritative for PostgreSQL; AutoMigrate on this list
// is used for SQLite test databases.
func Models() []any {
	return []any{
		&catalog.Product{},
		&partner.Warehouse{},
		&partner.Supplier{},
		&partner.SupplierSequence{},
		&inventory.WarehouseProduct{},
		&inventory.InventoryBatchItem{},
		&inventory.StockTransaction{},
		&inventory.StockTakeSession{},
		&inventory.StockTakeItem{},
		&inventory.StockDiscrepancy{},
		&inventory.ErpStockCheck{},
		&inventory.ErpStockCheckItem{},
		&inventory.WarehouseProductDiscrepancy{},
		&trade.Order{},
		&trade.OrderItem{},
		&trade.OrderItemRemoval{},
		&trade.Parcel{},
		&trade.ParcelItem{},
		&trade.PurchaseOrder{},
		&trade.PurchaseOrderLine{},
		&shipping.TrackingEvent{},
		&shipping.CourierCostRecord{},
		&shipping.CourierCostEntry{},
	}
}
