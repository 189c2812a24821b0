// Command fulfillctl runs fulfillment back-office jobs from the shell:
// ERP imports, courier invoice uploads, stock-take evaluation, ledger
// verification and the stale parcel sweep.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	importapp "github.com/erp/fulfillment/internal/application/import"
	appinv "github.com/erp/fulfillment/internal/application/inventory"
	appship "github.com/erp/fulfillment/internal/application/shipping"
	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
)

// services holds what the commands need, built once per invocation
type services struct {
	log          *zap.Logger
	db           *persistence.Database
	inventory    *appinv.InventoryService
	stockTakes   *appinv.StockTakeService
	erpChecks    *appinv.ErpStockCheckService
	tracking     *appship.TrackingService
	invoices     *appship.InvoiceReconciliationService
	batchImports *importapp.BatchImportService
	orderImports *importapp.OrderImportService
}

func (s *services) open(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	s.log, err = logger.New(logger.Config{Level: level, Format: cfg.Log.Format, Output: "stderr"})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	s.db, err = persistence.NewDatabase(&cfg.Database, persistence.Options{Logger: s.log, LogLevel: level})
	if err != nil {
		return err
	}

	db := s.db.DB
	scope := persistence.NewGormTransactionScope(db)
	engine := appinv.NewStockMutationEngine()
	products := persistence.NewGormProductRepository(db)
	warehouses := persistence.NewGormWarehouseRepository(db)
	maxErrors := c.Int("max-errors")
	if maxErrors <= 0 {
		maxErrors = cfg.Fulfillment.ImportMaxErrors
	}

	s.inventory = appinv.NewInventoryService(
		persistence.NewGormWarehouseProductRepository(db),
		persistence.NewGormBatchItemRepository(db),
		persistence.NewGormStockTransactionRepository(db),
		scope.Inventory(), engine, s.log)
	s.stockTakes = appinv.NewStockTakeService(
		persistence.NewGormStockTakeRepository(db),
		persistence.NewGormDiscrepancyRepository(db),
		scope.Inventory(), engine, s.log)
	s.erpChecks = appinv.NewErpStockCheckService(persistence.NewGormErpStockCheckRepository(db), scope.Inventory(), s.log)
	fulfillment := apptrade.NewFulfillmentService(
		persistence.NewGormOrderRepository(db),
		persistence.NewGormParcelRepository(db),
		scope.Trade(), engine, s.log)
	s.tracking = appship.NewTrackingService(
		persistence.NewGormParcelRepository(db),
		persistence.NewGormTrackingEventRepository(db),
		scope.Shipping(), cfg.Fulfillment.StaleAfter(), s.log)
	s.invoices = appship.NewInvoiceReconciliationService(persistence.NewGormCourierCostRepository(db), scope.Shipping(), maxErrors, s.log)
	s.batchImports = importapp.NewBatchImportService(s.inventory, products, warehouses, maxErrors, s.log)
	s.orderImports = importapp.NewOrderImportService(fulfillment, products, warehouses, maxErrors, s.log)
	return nil
}

func (s *services) close(*cli.Context) error {
	if s.log != nil {
		defer func() { _ = s.log.Sync() }()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func main() {
	svc := &services{}
	app := &cli.App{
		Name:  "fulfillctl",
		Usage: "Run fulfillment back-office jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"FULFILLMENT_LOG_LEVEL"},
			},
			&cli.IntFlag{
				Name:  "max-errors",
				Usage: "Row errors kept per import (default from config)",
			},
		},
		Commands: commands(svc),
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
