package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"

	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/catalog"
	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/erp/fulfillment/internal/domain/shared"
	csvimport "github.com/erp/fulfillment/internal/infrastructure/import"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderImportService creates orders from an ERP export. Rows are grouped by
// ERP order ID in order of first appearance; an order is created whole or
// not at all, and a failing order does not affect the others.
type OrderImportService struct {
	creator    OrderCreator
	products   catalog.ProductRepository
	warehouses partner.WarehouseRepository
	maxErrors  int
	logger     *zap.Logger
	metrics    *telemetry.FulfillmentMetrics
}

// NewOrderImportService creates a new OrderImportService
func NewOrderImportService(
	creator OrderCreator,
	products catalog.ProductRepository,
	warehouses partner.WarehouseRepository,
	maxErrors int,
	logger *zap.Logger,
) *OrderImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderImportService{
		creator:    creator,
		products:   products,
		warehouses: warehouses,
		maxErrors:  maxErrors,
		logger:     logger,
	}
}

// SetMetrics sets the fulfillment metrics collector
func (s *OrderImportService) SetMetrics(m *telemetry.FulfillmentMetrics) {
	s.metrics = m
}

type orderGroup struct {
	erpOrderID string
	records    []csvimport.OrderRecord
}

func groupOrders(records []csvimport.OrderRecord) []*orderGroup {
	var groups []*orderGroup
	index := make(map[string]*orderGroup)
	for _, rec := range records {
		g, ok := index[rec.ERPOrderID]
		if !ok {
			g = &orderGroup{erpOrderID: rec.ERPOrderID}
			index[rec.ERPOrderID] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, rec)
	}
	return groups
}

// Import reads the file and creates one order per ERP order ID
func (s *OrderImportService) Import(ctx context.Context, r io.Reader) (*Result, error) {
	decoder := csvimport.NewDecoder(s.maxErrors)
	records, err := decoder.DecodeOrders(r)
	if err != nil {
		return nil, err
	}
	errs := decoder.Errors()
	refs := newLookups(s.products, s.warehouses)

	result := &Result{}
	for _, g := range groupOrders(records) {
		req, ok, err := s.buildRequest(ctx, refs, g, errs)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, err := s.creator.CreateOrder(ctx, req); err != nil {
			code := rowCode(err)
			if errors.Is(err, shared.ErrAlreadyExists) {
				code = csvimport.ErrCodeImportDuplicateInFile
			}
			for _, rec := range g.records {
				errs.Add(csvimport.NewRowErrorWithValue(rec.Line, csvimport.ColERPOrderID, code, err.Error(), rec.ERPOrderID))
			}
			continue
		}
		result.Created++
		result.ImportedRows += len(g.records)
	}

	result.ErrorRows = errs.FailedRows()
	result.TotalRows = result.ImportedRows + result.ErrorRows
	result.setErrors(errs)

	s.metrics.RecordImportRows(ctx, "orders", int64(result.ImportedRows), int64(result.ErrorRows))
	s.logger.Info("order import finished",
		zap.Int("orders_created", result.Created),
		zap.Int("imported_rows", result.ImportedRows),
		zap.Int("failed_rows", result.ErrorRows))
	return result, nil
}

// buildRequest resolves references for a group. Any unresolved row fails
// the whole group; every row of it is reported.
func (s *OrderImportService) buildRequest(ctx context.Context, refs *lookups, g *orderGroup, errs *csvimport.ErrorCollection) (apptrade.CreateOrderRequest, bool, error) {
	head := g.records[0]
	req := apptrade.CreateOrderRequest{
		ERPOrderID: g.erpOrderID,
		Customer:   head.Customer,
	}

	failed := make(map[int]bool)
	warehouseID, err := refs.warehouseID(ctx, head.WarehouseName)
	if err != nil {
		return req, false, err
	}
	if warehouseID == uuid.Nil {
		errs.AddReferenceError(head.Line, csvimport.ColWarehouseName, head.WarehouseName, "warehouse")
		failed[head.Line] = true
	}
	req.WarehouseID = warehouseID

	for _, rec := range g.records {
		if rec.IsCold {
			req.IsCold = true
		}
		if rec.WarehouseName != head.WarehouseName {
			errs.Add(csvimport.NewRowErrorWithValue(rec.Line, csvimport.ColWarehouseName, csvimport.ErrCodeImportValidation,
				fmt.Sprintf("order %s spans several warehouses", g.erpOrderID), rec.WarehouseName))
			failed[rec.Line] = true
			continue
		}
		productID, err := refs.productID(ctx, rec.ProductIdentifier, false)
		if err != nil {
			return req, false, err
		}
		if productID == uuid.Nil {
			errs.AddReferenceError(rec.Line, csvimport.ColProductIdentifier, rec.ProductIdentifier, "product")
			failed[rec.Line] = true
			continue
		}
		req.Items = append(req.Items, apptrade.CreateOrderItemInput{ProductID: productID, Quantity: rec.Quantity})
	}

	if len(failed) == 0 {
		return req, true, nil
	}
	for _, rec := range g.records {
		if !failed[rec.Line] {
			errs.Add(csvimport.NewRowErrorWithValue(rec.Line, csvimport.ColERPOrderID, csvimport.ErrCodeImportRejected,
				fmt.Sprintf("order %s has rejected rows", g.erpOrderID), rec.ERPOrderID))
		}
	}
	return req, false, nil
}
