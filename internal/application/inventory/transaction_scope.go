package inventory

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// LedgerRepositories is the subset of repositories the stock mutation engine
// needs. Other application packages embed it in their own transactional
// repository sets so stock moves join their transaction.
type LedgerRepositories interface {
	// WarehouseProductRepo returns the warehouse product repository scoped to the current transaction
	WarehouseProductRepo() inventory.WarehouseProductRepository
	// BatchRepo returns the batch repository scoped to the current transaction
	BatchRepo() inventory.BatchItemRepository
	// TransactionRepo returns the ledger repository scoped to the current transaction
	TransactionRepo() inventory.StockTransactionRepository
}

// TransactionalRepositories provides access to all inventory repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	LedgerRepositories
	StockTakeRepo() inventory.StockTakeRepository
	DiscrepancyRepo() inventory.DiscrepancyRepository
	ErpCheckRepo() inventory.ErpStockCheckRepository
}
