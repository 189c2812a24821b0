package shipping

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/erp/fulfillment/internal/domain/trade"
)

// TransactionScope provides transactional access to courier repositories
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to courier and parcel repositories within a transaction
type TransactionalRepositories interface {
	OrderRepo() trade.OrderRepository
	ParcelRepo() trade.ParcelRepository
	TrackingEventRepo() shipping.TrackingEventRepository
	CourierCostRepo() shipping.CourierCostRepository
}
