package inventory

import (
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Error codes surfaced by the stock engine
const (
	CodeInsufficientStock           = "INSUFFICIENT_STOCK"
	CodeBatchMismatch               = "BATCH_MISMATCH"
	CodeInvalidQuantity             = "INVALID_QUANTITY"
	CodeDuplicateSessionEvaluation  = "DUPLICATE_SESSION_EVALUATION"
	CodeInvalidStockTakeTransition  = "INVALID_STOCK_TAKE_TRANSITION"
	CodeInvalidErpCheckTransition   = "INVALID_ERP_CHECK_TRANSITION"
	CodeInvalidTransactionDirection = "INVALID_TRANSACTION_DIRECTION"
)

// Sentinels for errors.Is matching. Detailed errors carry the same code.
var (
	ErrInsufficientStock          = shared.NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrBatchMismatch              = shared.NewDomainError(CodeBatchMismatch, "Batch does not belong to the requested warehouse product")
	ErrInvalidQuantity            = shared.NewDomainError(CodeInvalidQuantity, "Invalid quantity")
	ErrDuplicateSessionEvaluation = shared.NewDomainError(CodeDuplicateSessionEvaluation, "Session has already been evaluated")
)

// NewInsufficientStockError reports how much was requested against how much is available
func NewInsufficientStockError(requested, available int) *shared.DomainError {
	return shared.NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock: requested %d, available %d", requested, available))
}

// NewBatchMismatchError reports a batch drawn for the wrong warehouse product
func NewBatchMismatchError(batchID, warehouseProductID uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeBatchMismatch,
		fmt.Sprintf("Batch %s does not belong to warehouse product %s", batchID, warehouseProductID))
}

// NewInvalidQuantityError reports a non-positive or over-balance quantity
func NewInvalidQuantityError(message string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidQuantity, message)
}

// NewDuplicateSessionEvaluationError reports a second evaluation of a finished session
func NewDuplicateSessionEvaluationError(sessionID uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeDuplicateSessionEvaluation,
		fmt.Sprintf("Session %s has already been evaluated", sessionID))
}
