package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Stock and fulfillment error codes
const (
	ErrCodeInvalidState               = "ERR_INVALID_STATE"
	ErrCodeBusinessRule               = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientStock          = "ERR_INSUFFICIENT_STOCK"
	ErrCodeBatchMismatch              = "ERR_BATCH_MISMATCH"
	ErrCodeInvalidQuantity            = "ERR_INVALID_QUANTITY"
	ErrCodeDuplicateSessionEvaluation = "ERR_DUPLICATE_SESSION_EVALUATION"
	ErrCodeInvalidTransition          = "ERR_INVALID_TRANSITION"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when a caller exceeds its request allowance
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:               http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:               http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:          http.StatusUnprocessableEntity,
	ErrCodeBatchMismatch:              http.StatusUnprocessableEntity,
	ErrCodeInvalidQuantity:            http.StatusUnprocessableEntity,
	ErrCodeDuplicateSessionEvaluation: http.StatusConflict,
	ErrCodeInvalidTransition:          http.StatusUnprocessableEntity,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unmapped ERR_INVALID_* codes are input errors; anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                     ErrCodeNotFound,
	"ITEM_NOT_FOUND":                ErrCodeNotFound,
	"LINE_NOT_FOUND":                ErrCodeNotFound,
	"ALREADY_EXISTS":                ErrCodeAlreadyExists,
	"ALREADY_RESOLVED":              ErrCodeInvalidState,
	"INVALID_INPUT":                 ErrCodeInvalidInput,
	"INVALID_STATE":                 ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":          ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":            ErrCodeInsufficientStock,
	"BATCH_MISMATCH":                ErrCodeBatchMismatch,
	"WAREHOUSE_MISMATCH":            ErrCodeBatchMismatch,
	"BATCH_REQUIRED":                ErrCodeBusinessRule,
	"NOT_ADJUSTABLE":                ErrCodeBusinessRule,
	"TRACKING_NUMBER_SET":           ErrCodeInvalidState,
	"TRACKING_NUMBER_IN_USE":        ErrCodeConflict,
	"INVALID_QUANTITY":              ErrCodeInvalidQuantity,
	"DUPLICATE_SESSION_EVALUATION":  ErrCodeDuplicateSessionEvaluation,
	"INVALID_STOCK_TAKE_TRANSITION": ErrCodeInvalidTransition,
	"INVALID_ERP_CHECK_TRANSITION":  ErrCodeInvalidTransition,
	"VALIDATION_ERROR":              ErrCodeValidation,
	"BAD_REQUEST":                   ErrCodeBadRequest,
	"INTERNAL_ERROR":                ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes without an explicit mapping gain the ERR_ prefix.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	if code == "" {
		return ErrCodeUnknown
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
