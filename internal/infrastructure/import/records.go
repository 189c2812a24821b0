package csvimport

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Column names of the batch import file
const (
	ColProductSKU    = "product_sku"
	ColWarehouseName = "warehouse_name"
	ColBatchNumber   = "batch_number"
	ColLocationLabel = "location_label"
	ColExpiryDate    = "expiry_date"
	ColQuantity      = "quantity"
	ColCostPrice     = "cost_price"
	ColDateReceived  = "date_received"
	ColPickPriority  = "pick_priority"
)

// Column names of the order import file
const (
	ColERPOrderID        = "erp_order_id"
	ColCustomer          = "customer"
	ColProductIdentifier = "product_identifier"
	ColIsCold            = "is_cold"
)

// Column names of the courier invoice file
const (
	ColTrackingNumber = "tracking_number"
	ColInvoiceNumber  = "invoice_number"
	ColBilledCost     = "billed_cost"
	ColBilledWeight   = "billed_weight"
	ColBilledAt       = "billed_at"
)

// BatchColumns are the required columns of a batch import file
var BatchColumns = []string{ColProductSKU, ColWarehouseName, ColBatchNumber, ColLocationLabel, ColQuantity}

// OrderColumns are the required columns of an order import file
var OrderColumns = []string{ColERPOrderID, ColWarehouseName, ColCustomer, ColProductIdentifier, ColQuantity}

// InvoiceColumns are the required columns of a courier invoice file
var InvoiceColumns = []string{ColTrackingNumber, ColBilledCost}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", "02.01.2006", time.RFC3339}

// BatchRecord is one decoded row of a batch import
type BatchRecord struct {
	Line          int
	ProductSKU    string `validate:"required,max=100"`
	WarehouseName string `validate:"required,max=255"`
	BatchNumber   string `validate:"max=100"`
	LocationLabel string `validate:"max=100"`
	ExpiryDate    *time.Time
	Quantity      int `validate:"gte=0"`
	CostPrice     decimal.Decimal
	DateReceived  *time.Time
	PickPriority  string `validate:"omitempty,oneof=DEFAULT SECONDARY NONE"`
}

// OrderRecord is one decoded row of an order import
type OrderRecord struct {
	Line              int
	ERPOrderID        string `validate:"required,max=100"`
	WarehouseName     string `validate:"required,max=255"`
	Customer          string `validate:"required,max=255"`
	ProductIdentifier string `validate:"required,max=100"`
	Quantity          int    `validate:"gt=0"`
	IsCold            bool
}

// InvoiceRecord is one decoded row of a courier invoice
type InvoiceRecord struct {
	Line           int
	TrackingNumber string `validate:"required,max=100"`
	InvoiceNumber  string `validate:"max=100"`
	BilledCost     decimal.Decimal
	BilledWeight   decimal.Decimal
	BilledAt       *time.Time
}

// Decoder turns parsed rows into typed records, collecting row errors
// instead of stopping at the first bad row
type Decoder struct {
	validate *validator.Validate
	errs     *ErrorCollection
}

// NewDecoder creates a Decoder that keeps at most maxErrors row errors
func NewDecoder(maxErrors int) *Decoder {
	return &Decoder{
		validate: validator.New(),
		errs:     NewErrorCollection(maxErrors),
	}
}

// Errors returns the row errors gathered so far
func (d *Decoder) Errors() *ErrorCollection {
	return d.errs
}

// open parses the header and checks the required columns
func (d *Decoder) open(r io.Reader, required []string) ([]*Row, error) {
	parser, err := NewCSVParser(r)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if err := parser.RequireHeaders(required...); err != nil {
		return nil, err
	}
	return parser.ReadAllRows(d.errs), nil
}

// DecodeBatches reads a batch import file. File-level problems such as a
// missing header are returned as an error; row problems are collected.
func (d *Decoder) DecodeBatches(r io.Reader) ([]BatchRecord, error) {
	rows, err := d.open(r, BatchColumns)
	if err != nil {
		return nil, err
	}
	out := make([]BatchRecord, 0, len(rows))
	for _, row := range rows {
		rec := BatchRecord{
			Line:          row.LineNumber,
			ProductSKU:    row.Get(ColProductSKU),
			WarehouseName: row.Get(ColWarehouseName),
			BatchNumber:   row.Get(ColBatchNumber),
			LocationLabel: row.Get(ColLocationLabel),
			PickPriority:  strings.ToUpper(row.Get(ColPickPriority)),
		}
		var ok bool
		if rec.Quantity, ok = d.intField(row, ColQuantity, true); !ok {
			continue
		}
		if rec.ExpiryDate, ok = d.dateField(row, ColExpiryDate); !ok {
			continue
		}
		if rec.DateReceived, ok = d.dateField(row, ColDateReceived); !ok {
			continue
		}
		if rec.CostPrice, ok = d.decimalField(row, ColCostPrice, false); !ok {
			continue
		}
		if !d.check(row.LineNumber, rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeOrders reads an order import file
func (d *Decoder) DecodeOrders(r io.Reader) ([]OrderRecord, error) {
	rows, err := d.open(r, OrderColumns)
	if err != nil {
		return nil, err
	}
	out := make([]OrderRecord, 0, len(rows))
	for _, row := range rows {
		rec := OrderRecord{
			Line:              row.LineNumber,
			ERPOrderID:        row.Get(ColERPOrderID),
			WarehouseName:     row.Get(ColWarehouseName),
			Customer:          row.Get(ColCustomer),
			ProductIdentifier: row.Get(ColProductIdentifier),
		}
		var ok bool
		if rec.Quantity, ok = d.intField(row, ColQuantity, true); !ok {
			continue
		}
		if rec.IsCold, ok = d.boolField(row, ColIsCold); !ok {
			continue
		}
		if !d.check(row.LineNumber, rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeInvoices reads a courier invoice file
func (d *Decoder) DecodeInvoices(r io.Reader) ([]InvoiceRecord, error) {
	rows, err := d.open(r, InvoiceColumns)
	if err != nil {
		return nil, err
	}
	out := make([]InvoiceRecord, 0, len(rows))
	for _, row := range rows {
		rec := InvoiceRecord{
			Line:           row.LineNumber,
			TrackingNumber: row.Get(ColTrackingNumber),
			InvoiceNumber:  row.Get(ColInvoiceNumber),
		}
		var ok bool
		if row.Get(ColBilledCost) == "" {
			d.errs.AddRequiredError(row.LineNumber, ColBilledCost)
			continue
		}
		if rec.BilledCost, ok = d.decimalField(row, ColBilledCost, true); !ok {
			continue
		}
		if rec.BilledWeight, ok = d.decimalField(row, ColBilledWeight, false); !ok {
			continue
		}
		if rec.BilledAt, ok = d.dateField(row, ColBilledAt); !ok {
			continue
		}
		if !d.check(row.LineNumber, rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *Decoder) check(line int, rec any) bool {
	err := d.validate.Struct(rec)
	if err == nil {
		return true
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		d.errs.Add(NewRowError(line, "", ErrCodeImportValidation, err.Error()))
		return false
	}
	for _, fe := range verrs {
		column := toColumn(fe.Field())
		if fe.Tag() == "required" {
			d.errs.AddRequiredError(line, column)
			continue
		}
		d.errs.Add(NewRowErrorWithValue(line, column, ErrCodeImportValidation,
			fmt.Sprintf("failed '%s' rule", fe.Tag()), fmt.Sprint(fe.Value())))
	}
	return false
}

func (d *Decoder) intField(row *Row, column string, required bool) (int, bool) {
	raw := row.Get(column)
	if raw == "" {
		if required {
			d.errs.AddRequiredError(row.LineNumber, column)
			return 0, false
		}
		return 0, true
	}
	// spreadsheets export whole numbers as "12.0"
	if dec, err := decimal.NewFromString(raw); err == nil && dec.IsInteger() {
		return int(dec.IntPart()), true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		d.errs.AddTypeError(row.LineNumber, column, "integer", raw)
		return 0, false
	}
	return n, true
}

func (d *Decoder) decimalField(row *Row, column string, allowNegative bool) (decimal.Decimal, bool) {
	raw := row.Get(column)
	if raw == "" {
		return decimal.Zero, true
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		d.errs.AddTypeError(row.LineNumber, column, "decimal", raw)
		return decimal.Zero, false
	}
	if v.IsNegative() && !allowNegative {
		d.errs.Add(NewRowErrorWithValue(row.LineNumber, column, ErrCodeImportInvalidRange, "value cannot be negative", raw))
		return decimal.Zero, false
	}
	return v, true
}

func (d *Decoder) dateField(row *Row, column string) (*time.Time, bool) {
	raw := row.Get(column)
	if raw == "" {
		return nil, true
	}
	t, err := ParseDate(raw)
	if err != nil {
		d.errs.Add(NewRowErrorWithValue(row.LineNumber, column, ErrCodeImportInvalidFormat,
			"invalid date, expected YYYY-MM-DD", raw))
		return nil, false
	}
	return &t, true
}

func (d *Decoder) boolField(row *Row, column string) (bool, bool) {
	switch strings.ToLower(row.Get(column)) {
	case "", "0", "false", "no", "n":
		return false, true
	case "1", "true", "yes", "y":
		return true, true
	}
	d.errs.AddTypeError(row.LineNumber, column, "boolean", row.Get(column))
	return false, false
}

// ParseDate accepts the date layouts found in ERP and courier exports
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

func toColumn(field string) string {
	switch field {
	case "ProductSKU":
		return ColProductSKU
	case "WarehouseName":
		return ColWarehouseName
	case "BatchNumber":
		return ColBatchNumber
	case "LocationLabel":
		return ColLocationLabel
	case "Quantity":
		return ColQuantity
	case "PickPriority":
		return ColPickPriority
	case "ERPOrderID":
		return ColERPOrderID
	case "Customer":
		return ColCustomer
	case "ProductIdentifier":
		return ColProductIdentifier
	case "TrackingNumber":
		return ColTrackingNumber
	case "InvoiceNumber":
		return ColInvoiceNumber
	}
	return strings.ToLower(field)
}
