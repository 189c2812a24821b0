package shipping

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipping"
	csvimport "github.com/erp/fulfillment/internal/infrastructure/import"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceResult summarises one batch of courier invoice lines
type InvoiceResult struct {
	TotalRows int                  `json:"total_rows"`
	Recorded  int                  `json:"recorded"`
	Linked    int                  `json:"linked"`
	Errors    []csvimport.RowError `json:"errors,omitempty"`
}

// CostResponse is the cost history of one tracking number
type CostResponse struct {
	TrackingNumber string          `json:"tracking_number"`
	ParcelID       *string         `json:"parcel_id,omitempty"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	LatestWeight   decimal.Decimal `json:"latest_weight"`
	Entries        []CostEntry     `json:"entries"`
}

// CostEntry is one billed invoice line
type CostEntry struct {
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	BilledCost    decimal.Decimal `json:"billed_cost"`
	BilledWeight  decimal.Decimal `json:"billed_weight"`
	BilledAt      time.Time       `json:"billed_at"`
}

// InvoiceReconciliationService accumulates courier invoice charges per
// tracking number and copies the running totals onto the matching parcel
type InvoiceReconciliationService struct {
	costRepo  shipping.CourierCostRepository
	txScope   TransactionScope
	maxErrors int
	logger    *zap.Logger
}

// NewInvoiceReconciliationService creates a new InvoiceReconciliationService
func NewInvoiceReconciliationService(
	costRepo shipping.CourierCostRepository,
	txScope TransactionScope,
	maxErrors int,
	logger *zap.Logger,
) *InvoiceReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceReconciliationService{
		costRepo:  costRepo,
		txScope:   txScope,
		maxErrors: maxErrors,
		logger:    logger,
	}
}

// RecordInvoiceLines appends each line to its tracking number's history.
// Invalid lines are reported and skipped; a storage failure aborts.
func (s *InvoiceReconciliationService) RecordInvoiceLines(ctx context.Context, lines []shipping.InvoiceLine) (*InvoiceResult, error) {
	errs := csvimport.NewErrorCollection(s.maxErrors)
	result, err := s.record(ctx, lines, nil, errs)
	if err != nil {
		return nil, err
	}
	result.TotalRows = len(lines)
	result.Errors = errs.Errors()
	return result, nil
}

// ImportInvoices reads a courier invoice CSV and records every valid line
func (s *InvoiceReconciliationService) ImportInvoices(ctx context.Context, r io.Reader) (*InvoiceResult, error) {
	decoder := csvimport.NewDecoder(s.maxErrors)
	records, err := decoder.DecodeInvoices(r)
	if err != nil {
		return nil, err
	}
	errs := decoder.Errors()

	lines := make([]shipping.InvoiceLine, len(records))
	rowNumbers := make([]int, len(records))
	for i, rec := range records {
		line := shipping.InvoiceLine{
			TrackingNumber: rec.TrackingNumber,
			InvoiceNumber:  rec.InvoiceNumber,
			BilledCost:     rec.BilledCost,
			BilledWeight:   rec.BilledWeight,
		}
		if rec.BilledAt != nil {
			line.BilledAt = *rec.BilledAt
		}
		lines[i] = line
		rowNumbers[i] = rec.Line
	}

	result, err := s.record(ctx, lines, rowNumbers, errs)
	if err != nil {
		return nil, err
	}
	result.TotalRows = result.Recorded + errs.FailedRows()
	result.Errors = errs.Errors()
	return result, nil
}

// record writes lines one transaction each. rowNumbers maps lines to file
// rows for error reporting; nil means the line index (1-based) is used.
func (s *InvoiceReconciliationService) record(ctx context.Context, lines []shipping.InvoiceLine, rowNumbers []int, errs *csvimport.ErrorCollection) (*InvoiceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "record_lines",
		telemetry.WithAttribute("line_count", len(lines)))
	defer span.End()

	result := &InvoiceResult{}
	for i, line := range lines {
		row := i + 1
		if rowNumbers != nil {
			row = rowNumbers[i]
		}
		if err := line.Validate(); err != nil {
			var de *shared.DomainError
			code := csvimport.ErrCodeImportValidation
			if errors.As(err, &de) {
				code = de.Code
			}
			errs.Add(csvimport.NewRowErrorWithValue(row, csvimport.ColTrackingNumber, code, err.Error(), line.TrackingNumber))
			continue
		}

		var linked bool
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			linked, err = s.recordLine(ctx, repos, line)
			return err
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		result.Recorded++
		if linked {
			result.Linked++
		}
	}

	s.logger.Info("courier invoice lines recorded",
		zap.Int("recorded", result.Recorded),
		zap.Int("linked", result.Linked),
		zap.Int("rejected", errs.FailedRows()))
	telemetry.SetOK(span)
	return result, nil
}

func (s *InvoiceReconciliationService) recordLine(ctx context.Context, repos TransactionalRepositories, line shipping.InvoiceLine) (bool, error) {
	record, err := repos.CourierCostRepo().FindOrCreateForUpdate(ctx, line.TrackingNumber)
	if err != nil {
		return false, err
	}
	entry, err := record.Accumulate(line)
	if err != nil {
		return false, err
	}
	if err := repos.CourierCostRepo().AddEntry(ctx, entry); err != nil {
		return false, err
	}

	parcel, err := repos.ParcelRepo().FindByTrackingNumber(ctx, record.TrackingNumber)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}
	linked := false
	if parcel != nil {
		record.LinkParcel(parcel.ID)
		parcel.RecordShippingCost(record.TotalCost, record.LatestWeight)
		if err := repos.ParcelRepo().Save(ctx, parcel); err != nil {
			return false, err
		}
		linked = true
	}
	return linked, repos.CourierCostRepo().Save(ctx, record)
}

// GetCostHistory returns the accumulated charges of a tracking number
func (s *InvoiceReconciliationService) GetCostHistory(ctx context.Context, trackingNumber string) (*CostResponse, error) {
	record, err := s.costRepo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	resp := &CostResponse{
		TrackingNumber: record.TrackingNumber,
		TotalCost:      record.TotalCost,
		LatestWeight:   record.LatestWeight,
		Entries:        make([]CostEntry, len(record.Entries)),
	}
	if record.ParcelID != nil {
		id := record.ParcelID.String()
		resp.ParcelID = &id
	}
	for i, e := range record.Entries {
		resp.Entries[i] = CostEntry{
			InvoiceNumber: e.InvoiceNumber,
			BilledCost:    e.BilledCost,
			BilledWeight:  e.BilledWeight,
			BilledAt:      e.BilledAt,
		}
	}
	return resp, nil
}
