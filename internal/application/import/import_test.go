package importapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/catalog"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/erp/fulfillment/internal/domain/shared"
	csvimport "github.com/erp/fulfillment/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIdentifier(ctx context.Context, identifier string) (*catalog.Product, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

// MockWarehouseRepository is a mock implementation of partner.WarehouseRepository
type MockWarehouseRepository struct {
	mock.Mock
}

func (m *MockWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Warehouse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) FindByName(ctx context.Context, name string) (*partner.Warehouse, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) FindAll(ctx context.Context) ([]partner.Warehouse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) Save(ctx context.Context, warehouse *partner.Warehouse) error {
	args := m.Called(ctx, warehouse)
	return args.Error(0)
}

// MockBatchUpserter is a mock implementation of BatchUpserter
type MockBatchUpserter struct {
	mock.Mock
}

func (m *MockBatchUpserter) UpsertBatch(ctx context.Context, req appinv.UpsertBatchRequest) (*appinv.BatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.BatchResponse), args.Error(1)
}

// MockOrderCreator is a mock implementation of OrderCreator
type MockOrderCreator struct {
	mock.Mock
}

func (m *MockOrderCreator) CreateOrder(ctx context.Context, req apptrade.CreateOrderRequest) (*apptrade.OrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apptrade.OrderResponse), args.Error(1)
}

func newTestWarehouse(t *testing.T, name string) *partner.Warehouse {
	t.Helper()
	w, err := partner.NewWarehouse(name)
	require.NoError(t, err)
	return w
}

func newTestProduct(t *testing.T, sku string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Product "+sku)
	require.NoError(t, err)
	return p
}

func TestBatchImportService_Import(t *testing.T) {
	ctx := context.Background()
	main := newTestWarehouse(t, "Main")
	vitc := newTestProduct(t, "VIT-C")

	t.Run("upserts valid rows and reports unknown references", func(t *testing.T) {
		products := new(MockProductRepository)
		warehouses := new(MockWarehouseRepository)
		upserter := new(MockBatchUpserter)

		warehouses.On("FindByName", ctx, "Main").Return(main, nil)
		warehouses.On("FindByName", ctx, "Nowhere").Return(nil, shared.ErrNotFound)
		products.On("FindBySKU", ctx, "VIT-C").Return(vitc, nil)
		products.On("FindBySKU", ctx, "GHOST").Return(nil, shared.ErrNotFound)
		upserter.On("UpsertBatch", ctx, mock.MatchedBy(func(req appinv.UpsertBatchRequest) bool {
			return req.ProductID == vitc.ID && req.WarehouseID == main.ID
		})).Return(&appinv.BatchResponse{}, nil)

		svc := NewBatchImportService(upserter, products, warehouses, 0, nil)

		input := strings.Join([]string{
			"Product SKU,Warehouse Name,Batch Number,Location Label,Quantity,Expiry Date",
			"VIT-C,Main,B1,A-01,10,2027-01-31",
			"VIT-C,Main,B2,A-02,5,",
			"GHOST,Main,B3,A-03,4,",
			"VIT-C,Nowhere,B4,A-04,2,",
		}, "\n")

		result, err := svc.Import(ctx, strings.NewReader(input), "alice", "stock-load-1")
		require.NoError(t, err)
		assert.Equal(t, 4, result.TotalRows)
		assert.Equal(t, 2, result.ImportedRows)
		assert.Equal(t, 2, result.ErrorRows)
		assert.Equal(t, 2, result.Created)
		require.Len(t, result.Errors, 2)
		assert.Equal(t, csvimport.ErrCodeImportReferenceNotFound, result.Errors[0].Code)
		assert.Equal(t, 4, result.Errors[0].Row)
		assert.Equal(t, 5, result.Errors[1].Row)

		upserter.AssertNumberOfCalls(t, "UpsertBatch", 2)
		// memoised lookups
		warehouses.AssertNumberOfCalls(t, "FindByName", 2)
		products.AssertNumberOfCalls(t, "FindBySKU", 2)
	})

	t.Run("blank date received is passed through unset", func(t *testing.T) {
		products := new(MockProductRepository)
		warehouses := new(MockWarehouseRepository)
		upserter := new(MockBatchUpserter)

		warehouses.On("FindByName", ctx, "Main").Return(main, nil)
		products.On("FindBySKU", ctx, "VIT-C").Return(vitc, nil)

		var captured appinv.UpsertBatchRequest
		upserter.On("UpsertBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
			captured = args.Get(1).(appinv.UpsertBatchRequest)
		}).Return(&appinv.BatchResponse{}, nil)

		svc := NewBatchImportService(upserter, products, warehouses, 0, nil)

		input := "product_sku,warehouse_name,batch_number,location_label,quantity,pick_priority\nVIT-C,Main,B1,A-01,3,secondary\n"
		result, err := svc.Import(ctx, strings.NewReader(input), "alice", "ref")
		require.NoError(t, err)
		assert.Equal(t, 1, result.ImportedRows)
		assert.True(t, captured.DateReceived.IsZero())
		assert.Equal(t, "SECONDARY", captured.PickPriority)
		assert.Equal(t, "alice", captured.Actor)
		assert.Equal(t, "ref", captured.Reference)
	})

	t.Run("rejected upsert becomes a row error", func(t *testing.T) {
		products := new(MockProductRepository)
		warehouses := new(MockWarehouseRepository)
		upserter := new(MockBatchUpserter)

		warehouses.On("FindByName", ctx, "Main").Return(main, nil)
		products.On("FindBySKU", ctx, "VIT-C").Return(vitc, nil)
		upserter.On("UpsertBatch", ctx, mock.Anything).
			Return(nil, shared.NewDomainError(inventory.CodeInvalidQuantity, "quantity cannot be negative"))

		svc := NewBatchImportService(upserter, products, warehouses, 0, nil)
		input := "product_sku,warehouse_name,batch_number,location_label,quantity\nVIT-C,Main,B1,A-01,3\n"
		result, err := svc.Import(ctx, strings.NewReader(input), "alice", "ref")
		require.NoError(t, err)
		assert.Equal(t, 0, result.ImportedRows)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, inventory.CodeInvalidQuantity, result.Errors[0].Code)

		rowErrs := result.RowErrors()
		require.Len(t, rowErrs, 1)
		assert.True(t, errors.Is(rowErrs[0], ErrImportRow))
	})

	t.Run("missing column aborts the run", func(t *testing.T) {
		svc := NewBatchImportService(new(MockBatchUpserter), new(MockProductRepository), new(MockWarehouseRepository), 0, nil)
		_, err := svc.Import(ctx, strings.NewReader("product_sku,quantity\nVIT-C,1\n"), "alice", "ref")
		assert.ErrorIs(t, err, csvimport.ErrMissingHeader)
	})

	t.Run("repository failure aborts the run", func(t *testing.T) {
		warehouses := new(MockWarehouseRepository)
		warehouses.On("FindByName", ctx, "Main").Return(nil, errors.New("connection reset"))

		svc := NewBatchImportService(new(MockBatchUpserter), new(MockProductRepository), warehouses, 0, nil)
		input := "product_sku,warehouse_name,batch_number,location_label,quantity\nVIT-C,Main,B1,A-01,3\n"
		_, err := svc.Import(ctx, strings.NewReader(input), "alice", "ref")
		assert.EqualError(t, err, "connection reset")
	})
}

func TestOrderImportService_Import(t *testing.T) {
	ctx := context.Background()
	main := newTestWarehouse(t, "Main")
	north := newTestWarehouse(t, "North")
	vitc := newTestProduct(t, "VIT-C")
	zinc := newTestProduct(t, "ZINC")

	header := "erp_order_id,warehouse_name,customer,product_identifier,quantity,is_cold"

	t.Run("groups rows into one order per ERP id", func(t *testing.T) {
		products := new(MockProductRepository)
		warehouses := new(MockWarehouseRepository)
		creator := new(MockOrderCreator)

		warehouses.On("FindByName", ctx, "Main").Return(main, nil)
		products.On("FindByIdentifier", ctx, "VIT-C").Return(vitc, nil)
		products.On("FindByIdentifier", ctx, "5901234123457").Return(zinc, nil)

		var created []apptrade.CreateOrderRequest
		creator.On("CreateOrder", ctx, mock.Anything).Run(func(args mock.Arguments) {
			created = append(created, args.Get(1).(apptrade.CreateOrderRequest))
		}).Return(&apptrade.OrderResponse{}, nil)

		svc := NewOrderImportService(creator, products, warehouses, 0, nil)
		input := strings.Join([]string{
			header,
			"SO-2,Main,Beta Ltd,VIT-C,1,",
			"SO-1,Main,Acme,VIT-C,2,no",
			"SO-1,Main,Acme,5901234123457,3,yes",
		}, "\n")

		result, err := svc.Import(ctx, strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 3, result.ImportedRows)
		assert.Equal(t, 0, result.ErrorRows)

		require.Len(t, created, 2)
		assert.Equal(t, "SO-2", created[0].ERPOrderID)
		assert.Equal(t, "SO-1", created[1].ERPOrderID)
		assert.Equal(t, main.ID, created[1].WarehouseID)
		assert.True(t, created[1].IsCold)
		require.Len(t, created[1].Items, 2)
		assert.Equal(t, zinc.ID, created[1].Items[1].ProductID)
		assert.Equal(t, 3, created[1].Items[1].Quantity)
	})

	t.Run("unknown product rejects the whole order", func(t *testing.T) {
		products := new(MockProductRepository)
		warehouses := new(MockWarehouseRepository)
		creator := new(MockOrderCreator)

		warehouses.On("FindByName", ctx, "Main").Return(main, nil)
		products.On("FindByIdentifier", ctx, "VIT-C").Return(vitc, nil)
		products.On("FindByIdentifier", ctx, "GHOST").Return(nil, shared.ErrNotFound)

		svc := NewOrderImportService(creator, products, warehouses, 0, nil)
		input := strings.Join([]string{
			header,
			"SO-1,Main,Acme,VIT-C,2,",
			"SO-1,Main,Acme,GHOST,1,",
		}, "\n")

		result, err := svc.Import(ctx, strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 2, result.ErrorRows)
		creator.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)

		codes := map[int]string{}
		for _, e := range result.Errors {
			codes[e.Row] = e.Code
		}
		assert.Equal(t, csvimport.ErrCodeImportRejected, codes[2])
		assert.Equal(t, csvimport.ErrCodeImportReferenceNotFound, codes[3])
	})

	t.Run("order spanning warehouses is rejected", func(t *testing.T) {
		products := new(MockProductRepository)
		warehouses := new(MockWarehouseRepository)
		creator := new(MockOrderCreator)

		warehouses.On("FindByName", ctx, "Main").Return(main, nil)
		warehouses.On("FindByName", ctx, "North").Return(north, nil)
		products.On("FindByIdentifier", ctx, "VIT-C").Return(vitc, nil)

		svc := NewOrderImportService(creator, products, warehouses, 0, nil)
		input := strings.Join([]string{
			header,
			"SO-1,Main,Acme,VIT-C,2,",
			"SO-1,North,Acme,VIT-C,1,",
		}, "\n")

		result, err := svc.Import(ctx, strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 2, result.ErrorRows)
		creator.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("existing order is reported and others still import", func(t *testing.T) {
		products := new(MockProductRepository)
		warehouses := new(MockWarehouseRepository)
		creator := new(MockOrderCreator)

		warehouses.On("FindByName", ctx, "Main").Return(main, nil)
		products.On("FindByIdentifier", ctx, "VIT-C").Return(vitc, nil)
		creator.On("CreateOrder", ctx, mock.MatchedBy(func(req apptrade.CreateOrderRequest) bool {
			return req.ERPOrderID == "SO-1"
		})).Return(nil, shared.NewDomainError("ALREADY_EXISTS", "order SO-1 already exists"))
		creator.On("CreateOrder", ctx, mock.MatchedBy(func(req apptrade.CreateOrderRequest) bool {
			return req.ERPOrderID == "SO-2"
		})).Return(&apptrade.OrderResponse{}, nil)

		svc := NewOrderImportService(creator, products, warehouses, 0, nil)
		input := strings.Join([]string{
			header,
			"SO-1,Main,Acme,VIT-C,2,",
			"SO-2,Main,Acme,VIT-C,1,",
		}, "\n")

		result, err := svc.Import(ctx, strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 1, result.ImportedRows)
		assert.Equal(t, 1, result.ErrorRows)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, csvimport.ErrCodeImportDuplicateInFile, result.Errors[0].Code)
	})

	t.Run("invalid quantity is a row error", func(t *testing.T) {
		svc := NewOrderImportService(new(MockOrderCreator), new(MockProductRepository), new(MockWarehouseRepository), 0, nil)
		result, err := svc.Import(ctx, strings.NewReader(header+"\nSO-1,Main,Acme,VIT-C,0,\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, result.ErrorRows)
		assert.Equal(t, 0, result.Created)
	})
}
