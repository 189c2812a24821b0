package trade

import (
	"context"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/erp/fulfillment/internal/domain/trade"
)

// TransactionScope provides transactional access to order and stock repositories.
// Packing, cancellation and receiving all move stock, so the ledger
// repositories are part of the same transaction as the order documents.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all trade repositories within a transaction
type TransactionalRepositories interface {
	appinv.LedgerRepositories
	OrderRepo() trade.OrderRepository
	ParcelRepo() trade.ParcelRepository
	PurchaseOrderRepo() trade.PurchaseOrderRepository
	SupplierRepo() partner.SupplierRepository
}
