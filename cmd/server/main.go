package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	importapp "github.com/erp/fulfillment/internal/application/import"
	appinv "github.com/erp/fulfillment/internal/application/inventory"
	appship "github.com/erp/fulfillment/internal/application/shipping"
	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting fulfillment server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log,
		LogLevel: cfg.Log.Level,
		Tracing: telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	tokens, closeTokens, err := cache.NewTokenCache(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init token cache: %w", err)
	}
	defer func() { _ = closeTokens() }()

	meter := mp.Meter("fulfillment")
	metrics, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{
		Meter:           meter,
		Logger:          log,
		CollectInterval: cfg.Fulfillment.MetricsCollectEvery,
		StockProvider:   persistence.NewGormStockLevelProvider(db.DB),
	})
	if err != nil {
		return fmt.Errorf("init fulfillment metrics: %w", err)
	}
	metrics.StartPeriodicCollection(ctx)
	defer metrics.Stop()

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewLoggingHandler(log))
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	defer func() { _ = bus.Stop(context.Background()) }()

	// Repositories and services
	scope := persistence.NewGormTransactionScope(db.DB)
	engine := appinv.NewStockMutationEngine()
	parcelRepo := persistence.NewGormParcelRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)

	inventoryService := appinv.NewInventoryService(
		persistence.NewGormWarehouseProductRepository(db.DB),
		persistence.NewGormBatchItemRepository(db.DB),
		persistence.NewGormStockTransactionRepository(db.DB),
		scope.Inventory(), engine, log)
	inventoryService.SetEventPublisher(bus)
	inventoryService.SetMetrics(metrics)

	stockTakeService := appinv.NewStockTakeService(
		persistence.NewGormStockTakeRepository(db.DB),
		persistence.NewGormDiscrepancyRepository(db.DB),
		scope.Inventory(), engine, log)
	stockTakeService.SetEventPublisher(bus)
	stockTakeService.SetMetrics(metrics)

	erpCheckService := appinv.NewErpStockCheckService(persistence.NewGormErpStockCheckRepository(db.DB), scope.Inventory(), log)

	fulfillmentService := apptrade.NewFulfillmentService(
		persistence.NewGormOrderRepository(db.DB),
		parcelRepo,
		scope.Trade(), engine, log)
	fulfillmentService.SetEventPublisher(bus)
	fulfillmentService.SetMetrics(metrics)

	purchaseOrderService := apptrade.NewPurchaseOrderService(persistence.NewGormPurchaseOrderRepository(db.DB), scope.Trade(), engine, log)
	purchaseOrderService.SetEventPublisher(bus)

	trackingService := appship.NewTrackingService(
		parcelRepo,
		persistence.NewGormTrackingEventRepository(db.DB),
		scope.Shipping(), cfg.Fulfillment.StaleAfter(), log)
	trackingService.SetEventPublisher(bus)
	trackingService.SetMetrics(metrics)

	invoiceService := appship.NewInvoiceReconciliationService(
		persistence.NewGormCourierCostRepository(db.DB),
		scope.Shipping(), cfg.Fulfillment.ImportMaxErrors, log)

	batchImports := importapp.NewBatchImportService(inventoryService, productRepo, warehouseRepo, cfg.Fulfillment.ImportMaxErrors, log)
	batchImports.SetMetrics(metrics)
	orderImports := importapp.NewOrderImportService(fulfillmentService, productRepo, warehouseRepo, cfg.Fulfillment.ImportMaxErrors, log)
	orderImports.SetMetrics(metrics)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	ginEngine := gin.New()
	if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return fmt.Errorf("set trusted proxies: %w", err)
	}
	ginEngine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Operator(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(meter, log),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORS(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	var importLimiter *middleware.RateLimiter
	if cfg.Fulfillment.ImportsPerMinute > 0 {
		importLimiter = middleware.NewRateLimiter(cfg.Fulfillment.ImportsPerMinute, cfg.Fulfillment.ImportBurst)
	}

	r := router.NewRouter(ginEngine)
	for _, group := range router.FulfillmentGroups(router.Handlers{
		ImportLimit:   middleware.RateLimit(importLimiter),
		Inventory:     handler.NewInventoryHandler(inventoryService),
		StockTake:     handler.NewStockTakeHandler(stockTakeService, erpCheckService),
		Order:         handler.NewOrderHandler(fulfillmentService),
		PurchaseOrder: handler.NewPurchaseOrderHandler(purchaseOrderService),
		Shipping:      handler.NewShippingHandler(trackingService, invoiceService),
		Import:        handler.NewImportHandler(batchImports, orderImports),
		System: handler.NewSystemHandler(version, map[string]handler.HealthCheck{
			"database": func(context.Context) error { return db.Ping() },
			"token_cache": func(ctx context.Context) error {
				_, _, err := tokens.Get(ctx, "courier_token:healthcheck")
				return err
			},
		}),
	}) {
		r.Register(group)
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if importLimiter != nil {
		g.Go(func() error {
			importLimiter.Run(gctx, 5*time.Minute)
			return nil
		})
	}
	g.Go(func() error {
		flagStaleParcels(gctx, trackingService, cfg.Fulfillment.StaleCheckInterval, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// flagStaleParcels marks long in-transit parcels as failed deliveries on
// every tick until ctx is done. A non-positive interval disables it.
func flagStaleParcels(ctx context.Context, tracking *appship.TrackingService, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		log.Info("Stale parcel check disabled")
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ids, err := tracking.FlagStaleParcels(ctx, now)
			if err != nil {
				log.Error("Stale parcel check failed", zap.Error(err))
				continue
			}
			if len(ids) > 0 {
				log.Info("Flagged stale parcels", zap.Int("count", len(ids)))
			}
		}
	}
}
