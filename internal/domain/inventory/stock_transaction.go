package inventory

import (
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionTypeIn     TransactionType = "IN"
	TransactionTypeOut    TransactionType = "OUT"
	TransactionTypeReturn TransactionType = "RETURN"
	TransactionTypeCancel TransactionType = "CANCEL"
	TransactionTypeAdjust TransactionType = "ADJUST"
)

// IsValid checks if the type is a known ledger type
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIn, TransactionTypeOut, TransactionTypeReturn, TransactionTypeCancel, TransactionTypeAdjust:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// validSign reports whether a signed quantity agrees with the type's direction
func (t TransactionType) validSign(quantity int) bool {
	switch t {
	case TransactionTypeIn, TransactionTypeReturn, TransactionTypeCancel:
		return quantity > 0
	case TransactionTypeOut:
		return quantity < 0
	case TransactionTypeAdjust:
		return quantity != 0
	}
	return false
}

// StockTransaction is an append-only ledger entry. Quantity is signed:
// stock leaving the batch is negative.
type StockTransaction struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WarehouseID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchItemID        *uuid.UUID      `gorm:"type:uuid;index"`
	Type               TransactionType `gorm:"type:varchar(10);not null;index"`
	Quantity           int             `gorm:"not null"`
	Reference          string          `gorm:"type:varchar(255)"`
	PurchaseOrderID    *uuid.UUID      `gorm:"type:uuid;index"`
	OrderID            *uuid.UUID      `gorm:"type:uuid;index"`
	Actor              string          `gorm:"type:varchar(100)"`
	Note               string          `gorm:"type:text"`
	CreatedAt          time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockTransaction) TableName() string {
	return "stock_transactions"
}

// LedgerLink ties a ledger entry to the document that caused it
type LedgerLink struct {
	Reference       string
	PurchaseOrderID *uuid.UUID
	OrderID         *uuid.UUID
	Actor           string
	Note            string
}

// NewStockTransaction builds a ledger entry against a batch
func NewStockTransaction(batch *InventoryBatchItem, txType TransactionType, quantity int, link LedgerLink) (*StockTransaction, error) {
	if batch == nil {
		return nil, shared.NewDomainError("INVALID_BATCH", "Batch is required for a ledger entry")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", fmt.Sprintf("Unknown transaction type %q", txType))
	}
	if !txType.validSign(quantity) {
		return nil, shared.NewDomainError(CodeInvalidTransactionDirection,
			fmt.Sprintf("Quantity %d is not valid for a %s entry", quantity, txType))
	}
	batchID := batch.ID
	return &StockTransaction{
		ID:                 uuid.New(),
		WarehouseID:        batch.WarehouseID,
		WarehouseProductID: batch.WarehouseProductID,
		ProductID:          batch.ProductID,
		BatchItemID:        &batchID,
		Type:               txType,
		Quantity:           quantity,
		Reference:          link.Reference,
		PurchaseOrderID:    link.PurchaseOrderID,
		OrderID:            link.OrderID,
		Actor:              link.Actor,
		Note:               link.Note,
		CreatedAt:          time.Now(),
	}, nil
}

// NetByBatch sums signed ledger quantities per batch
func NetByBatch(entries []StockTransaction) map[uuid.UUID]int {
	net := make(map[uuid.UUID]int)
	for _, e := range entries {
		if e.BatchItemID == nil {
			continue
		}
		net[*e.BatchItemID] += e.Quantity
	}
	return net
}
