package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	ErrCodeImportCSVParsing        = "ERR_IMPORT_CSV_PARSING"
	ErrCodeImportMissingHeader     = "ERR_IMPORT_MISSING_HEADER"
	ErrCodeImportValidation        = "ERR_IMPORT_VALIDATION"
	ErrCodeImportRequiredField     = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidType       = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeImportInvalidFormat     = "ERR_IMPORT_INVALID_FORMAT"
	ErrCodeImportInvalidRange      = "ERR_IMPORT_INVALID_RANGE"
	ErrCodeImportDuplicateInFile   = "ERR_IMPORT_DUPLICATE_IN_FILE"
	ErrCodeImportReferenceNotFound = "ERR_IMPORT_REFERENCE_NOT_FOUND"
	ErrCodeImportRejected          = "ERR_IMPORT_REJECTED"
)

// Common import errors
var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")
)

// MissingColumnsError lists required columns absent from the header
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("CSV file missing required columns: %s", strings.Join(e.Columns, ", "))
}

// Is lets callers match ErrMissingHeader
func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingHeader
}

// RowError represents an error in a specific row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// NewRowErrorWithValue creates a new RowError carrying the offending value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message, Value: value}
}

// ErrorCollection gathers row errors up to a limit while counting all of them
type ErrorCollection struct {
	errors     []RowError
	rows       map[int]bool
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		rows:      make(map[int]bool),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	ec.rows[err.Row] = true
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequiredError adds a required field error
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(NewRowError(row, column, ErrCodeImportRequiredField, fmt.Sprintf("field '%s' is required", column)))
}

// AddTypeError adds a type validation error
func (ec *ErrorCollection) AddTypeError(row int, column, expectedType, value string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeImportInvalidType, fmt.Sprintf("expected %s", expectedType), value))
}

// AddReferenceError adds a reference not found error
func (ec *ErrorCollection) AddReferenceError(row int, column, value, refType string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeImportReferenceNotFound,
		fmt.Sprintf("%s '%s' not found", refType, value), value))
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// Count returns the number of collected errors
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns the total number of errors including those not kept
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// HasRowError reports whether any error was recorded for the row
func (ec *ErrorCollection) HasRowError(row int) bool {
	return ec.rows[row]
}

// FailedRows is the number of distinct rows with at least one error
func (ec *ErrorCollection) FailedRows() int {
	return len(ec.rows)
}

// IsTruncated returns true if some errors were dropped because of the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) found", ec.totalCount))
	if ec.IsTruncated() {
		sb.WriteString(fmt.Sprintf(" (showing first %d)", ec.maxErrors))
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}
