package inventory

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErpCheckItemRequest is one ERP-reported total
type ErpCheckItemRequest struct {
	WarehouseProductID uuid.UUID `json:"warehouse_product_id" binding:"required"`
	ERPQuantity        int       `json:"erp_quantity" binding:"min=0"`
}

// CreateErpCheckRequest uploads an ERP stock report for a warehouse
type CreateErpCheckRequest struct {
	WarehouseID uuid.UUID             `json:"warehouse_id" binding:"required"`
	Reference   string                `json:"reference"`
	UploadedBy  string                `json:"uploaded_by" binding:"required"`
	Items       []ErpCheckItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ErpDiscrepancyResponse is a total-level ERP finding
type ErpDiscrepancyResponse struct {
	ID                  uuid.UUID `json:"id"`
	CheckID             uuid.UUID `json:"check_id"`
	WarehouseProductID  uuid.UUID `json:"warehouse_product_id"`
	Type                string    `json:"type"`
	SystemQuantity      int       `json:"system_quantity"`
	ERPQuantity         int       `json:"erp_quantity"`
	DiscrepancyQuantity int       `json:"discrepancy_quantity"`
	IsResolved          bool      `json:"is_resolved"`
}

// ErpCheckResponse represents an ERP check
type ErpCheckResponse struct {
	ID          uuid.UUID  `json:"id"`
	WarehouseID uuid.UUID  `json:"warehouse_id"`
	Status      string     `json:"status"`
	Reference   string     `json:"reference,omitempty"`
	UploadedBy  string     `json:"uploaded_by"`
	EvaluatedBy string     `json:"evaluated_by,omitempty"`
	EvaluatedAt *time.Time `json:"evaluated_at,omitempty"`
	ItemCount   int        `json:"item_count"`
}

func toErpDiscrepancyResponses(ds []inventory.WarehouseProductDiscrepancy) []ErpDiscrepancyResponse {
	out := make([]ErpDiscrepancyResponse, len(ds))
	for i, d := range ds {
		out[i] = ErpDiscrepancyResponse{
			ID:                  d.ID,
			CheckID:             d.CheckID,
			WarehouseProductID:  d.WarehouseProductID,
			Type:                d.Type.String(),
			SystemQuantity:      d.SystemQuantity,
			ERPQuantity:         d.ERPQuantity,
			DiscrepancyQuantity: d.DiscrepancyQuantity,
			IsResolved:          d.IsResolved,
		}
	}
	return out
}

// ErpStockCheckService reconciles ERP-reported totals with system totals
type ErpStockCheckService struct {
	checkRepo inventory.ErpStockCheckRepository
	txScope   TransactionScope
	logger    *zap.Logger
	now       func() time.Time
}

// NewErpStockCheckService creates a new ErpStockCheckService
func NewErpStockCheckService(checkRepo inventory.ErpStockCheckRepository, txScope TransactionScope, logger *zap.Logger) *ErpStockCheckService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErpStockCheckService{
		checkRepo: checkRepo,
		txScope:   txScope,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a PENDING check with its reported totals
func (s *ErpStockCheckService) Create(ctx context.Context, req CreateErpCheckRequest) (*ErpCheckResponse, error) {
	check, err := inventory.NewErpStockCheck(req.WarehouseID, req.Reference, req.UploadedBy)
	if err != nil {
		return nil, err
	}
	for _, it := range req.Items {
		if _, err := check.AddItem(it.WarehouseProductID, it.ERPQuantity); err != nil {
			return nil, err
		}
	}
	if err := s.checkRepo.Create(ctx, check); err != nil {
		return nil, err
	}
	return &ErpCheckResponse{
		ID:          check.ID,
		WarehouseID: check.WarehouseID,
		Status:      string(check.Status),
		Reference:   check.Reference,
		UploadedBy:  check.UploadedBy,
		ItemCount:   len(check.Items),
	}, nil
}

// Evaluate compares the check with live batch sums per warehouse product.
// A second evaluation fails with DuplicateSessionEvaluation.
func (s *ErpStockCheckService) Evaluate(ctx context.Context, checkID uuid.UUID, actor string) ([]ErpDiscrepancyResponse, error) {
	var discrepancies []inventory.WarehouseProductDiscrepancy
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		check, err := repos.ErpCheckRepo().FindByIDForUpdate(ctx, checkID)
		if err != nil {
			return err
		}
		if check.Status == inventory.ErpStockCheckStatusEvaluated {
			return inventory.NewDuplicateSessionEvaluationError(check.ID)
		}

		batches, err := repos.BatchRepo().FindByWarehouse(ctx, check.WarehouseID)
		if err != nil {
			return err
		}
		totals := make(map[uuid.UUID]int)
		for _, b := range batches {
			totals[b.WarehouseProductID] += b.Quantity
		}

		discrepancies = inventory.ReconcileERP(check.ID, totals, check.Items)
		if len(discrepancies) > 0 {
			if err := repos.ErpCheckRepo().CreateDiscrepancies(ctx, discrepancies); err != nil {
				return err
			}
		}
		if err := check.MarkEvaluated(actor, s.now()); err != nil {
			return err
		}
		return repos.ErpCheckRepo().Save(ctx, check)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("erp stock check evaluated",
		zap.String("check_id", checkID.String()),
		zap.Int("discrepancies", len(discrepancies)))
	return toErpDiscrepancyResponses(discrepancies), nil
}

// ListDiscrepancies returns the findings of an evaluated check
func (s *ErpStockCheckService) ListDiscrepancies(ctx context.Context, checkID uuid.UUID) ([]ErpDiscrepancyResponse, error) {
	ds, err := s.checkRepo.FindDiscrepancies(ctx, checkID)
	if err != nil {
		return nil, err
	}
	return toErpDiscrepancyResponses(ds), nil
}
