package importapp

import (
	"context"
	"io"
	"time"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/catalog"
	"github.com/erp/fulfillment/internal/domain/partner"
	csvimport "github.com/erp/fulfillment/internal/infrastructure/import"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchImportService loads batch quantities from a CSV export. Each row is
// an absolute upsert keyed by (warehouse product, batch number, location
// label) and commits on its own, so one bad row never blocks the rest.
type BatchImportService struct {
	upserter   BatchUpserter
	products   catalog.ProductRepository
	warehouses partner.WarehouseRepository
	maxErrors  int
	logger     *zap.Logger
	metrics    *telemetry.FulfillmentMetrics
}

// NewBatchImportService creates a new BatchImportService
func NewBatchImportService(
	upserter BatchUpserter,
	products catalog.ProductRepository,
	warehouses partner.WarehouseRepository,
	maxErrors int,
	logger *zap.Logger,
) *BatchImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchImportService{
		upserter:   upserter,
		products:   products,
		warehouses: warehouses,
		maxErrors:  maxErrors,
		logger:     logger,
	}
}

// SetMetrics sets the fulfillment metrics collector
func (s *BatchImportService) SetMetrics(m *telemetry.FulfillmentMetrics) {
	s.metrics = m
}

// Import reads the file and upserts every valid row. File-level problems
// are returned as an error; row problems are reported in the result.
func (s *BatchImportService) Import(ctx context.Context, r io.Reader, actor, reference string) (*Result, error) {
	decoder := csvimport.NewDecoder(s.maxErrors)
	records, err := decoder.DecodeBatches(r)
	if err != nil {
		return nil, err
	}
	errs := decoder.Errors()
	refs := newLookups(s.products, s.warehouses)

	result := &Result{}
	for _, rec := range records {
		warehouseID, err := refs.warehouseID(ctx, rec.WarehouseName)
		if err != nil {
			return nil, err
		}
		if warehouseID == uuid.Nil {
			errs.AddReferenceError(rec.Line, csvimport.ColWarehouseName, rec.WarehouseName, "warehouse")
			continue
		}
		productID, err := refs.productID(ctx, rec.ProductSKU, true)
		if err != nil {
			return nil, err
		}
		if productID == uuid.Nil {
			errs.AddReferenceError(rec.Line, csvimport.ColProductSKU, rec.ProductSKU, "product")
			continue
		}

		// a blank receipt date keeps the stored one on existing batches
		var received time.Time
		if rec.DateReceived != nil {
			received = *rec.DateReceived
		}
		_, err = s.upserter.UpsertBatch(ctx, appinv.UpsertBatchRequest{
			WarehouseID:   warehouseID,
			ProductID:     productID,
			BatchNumber:   rec.BatchNumber,
			LocationLabel: rec.LocationLabel,
			Quantity:      rec.Quantity,
			ExpiryDate:    rec.ExpiryDate,
			DateReceived:  received,
			CostPrice:     rec.CostPrice,
			PickPriority:  rec.PickPriority,
			Actor:         actor,
			Reference:     reference,
		})
		if err != nil {
			errs.Add(csvimport.NewRowError(rec.Line, "", rowCode(err), err.Error()))
			continue
		}
		result.ImportedRows++
	}

	result.ErrorRows = errs.FailedRows()
	result.TotalRows = result.ImportedRows + result.ErrorRows
	result.Created = result.ImportedRows
	result.setErrors(errs)

	s.metrics.RecordImportRows(ctx, "batches", int64(result.ImportedRows), int64(result.ErrorRows))
	s.logger.Info("batch import finished",
		zap.String("reference", reference),
		zap.Int("imported", result.ImportedRows),
		zap.Int("failed", result.ErrorRows))
	return result, nil
}
