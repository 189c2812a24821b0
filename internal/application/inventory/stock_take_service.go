package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockTakeService drives counting sessions and their reconciliation
type StockTakeService struct {
	sessionRepo     inventory.StockTakeRepository
	discrepancyRepo inventory.DiscrepancyRepository
	txScope         TransactionScope
	engine          *StockMutationEngine
	logger          *zap.Logger
	eventPublisher  shared.EventPublisher
	metrics         *telemetry.FulfillmentMetrics
	now             func() time.Time
}

// NewStockTakeService creates a new StockTakeService
func NewStockTakeService(
	sessionRepo inventory.StockTakeRepository,
	discrepancyRepo inventory.DiscrepancyRepository,
	txScope TransactionScope,
	engine *StockMutationEngine,
	logger *zap.Logger,
) *StockTakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockTakeService{
		sessionRepo:     sessionRepo,
		discrepancyRepo: discrepancyRepo,
		txScope:         txScope,
		engine:          engine,
		logger:          logger,
		now:             time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockTakeService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the fulfillment metrics collector
func (s *StockTakeService) SetMetrics(m *telemetry.FulfillmentMetrics) {
	s.metrics = m
}

func (s *StockTakeService) publishDomainEvents(ctx context.Context, session *inventory.StockTakeSession) {
	if s.eventPublisher == nil {
		return
	}
	events := session.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish stock take events",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
	session.ClearDomainEvents()
}

// Create opens a PENDING session
func (s *StockTakeService) Create(ctx context.Context, req CreateStockTakeRequest) (*StockTakeResponse, error) {
	session, err := inventory.NewStockTakeSession(req.WarehouseID, req.InitiatedBy, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, session)
	resp := ToStockTakeResponse(session)
	return &resp, nil
}

// GetByID returns a session with its counted items
func (s *StockTakeService) GetByID(ctx context.Context, sessionID uuid.UUID) (*StockTakeResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := s.sessionRepo.FindItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Items = items
	resp := ToStockTakeResponse(session)
	return &resp, nil
}

// AddItem records a counted observation on a PENDING session
func (s *StockTakeService) AddItem(ctx context.Context, sessionID uuid.UUID, req CountItemRequest) (*StockTakeItemView, error) {
	var item *inventory.StockTakeItem
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		session, err := repos.StockTakeRepo().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		wp, err := repos.WarehouseProductRepo().FindByID(ctx, req.WarehouseProductID)
		if err != nil {
			return err
		}
		if wp.WarehouseID != session.WarehouseID {
			return shared.NewDomainError("WAREHOUSE_MISMATCH",
				fmt.Sprintf("Warehouse product %s is not stocked in warehouse %s", wp.ID, session.WarehouseID))
		}
		item, err = session.AddItem(inventory.CountInput{
			WarehouseProductID: req.WarehouseProductID,
			LocationLabel:      req.LocationLabel,
			BatchNumber:        req.BatchNumber,
			ExpiryDate:         req.ExpiryDate,
			Quantity:           req.Quantity,
			Notes:              req.Notes,
		})
		if err != nil {
			return err
		}
		if err := repos.StockTakeRepo().AddItem(ctx, item); err != nil {
			return err
		}
		return repos.StockTakeRepo().Save(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	view := ToStockTakeItemView(item)
	return &view, nil
}

// Complete closes counting on a session
func (s *StockTakeService) Complete(ctx context.Context, sessionID uuid.UUID, actor string) (*StockTakeResponse, error) {
	var session *inventory.StockTakeSession
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		session, err = repos.StockTakeRepo().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := session.CompleteByOperator(actor); err != nil {
			return err
		}
		return repos.StockTakeRepo().Save(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	resp := ToStockTakeResponse(session)
	return &resp, nil
}

// Evaluate reconciles a COMPLETED_BY_OPERATOR session against live batches
// and moves it to EVALUATED. The session row is locked for the whole
// evaluation so two evaluators cannot both produce findings; the loser
// gets DuplicateSessionEvaluation.
func (s *StockTakeService) Evaluate(ctx context.Context, sessionID uuid.UUID, actor string) ([]DiscrepancyResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_take", "evaluate",
		telemetry.WithAttribute("session_id", sessionID.String()))
	defer span.End()

	var (
		session       *inventory.StockTakeSession
		discrepancies []inventory.StockDiscrepancy
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		session, err = repos.StockTakeRepo().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.IsEvaluated() {
			return inventory.NewDuplicateSessionEvaluationError(session.ID)
		}
		if session.Status != inventory.StockTakeStatusCompletedByOperator {
			return shared.NewDomainError(inventory.CodeInvalidStockTakeTransition,
				fmt.Sprintf("Cannot evaluate a session in %s status", session.Status))
		}

		batches, err := repos.BatchRepo().FindByWarehouse(ctx, session.WarehouseID)
		if err != nil {
			return err
		}
		items, err := repos.StockTakeRepo().FindItems(ctx, session.ID)
		if err != nil {
			return err
		}

		discrepancies = inventory.Reconcile(session.ID, batches, items)
		if len(discrepancies) > 0 {
			if err := repos.DiscrepancyRepo().CreateAll(ctx, discrepancies); err != nil {
				return err
			}
		}
		if err := session.MarkEvaluated(actor, s.now(), len(discrepancies)); err != nil {
			return err
		}
		return repos.StockTakeRepo().Save(ctx, session)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("stock take evaluation rejected",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
		return nil, err
	}
	telemetry.SetOK(span)

	counts := make(map[inventory.DiscrepancyType]int)
	for _, d := range discrepancies {
		counts[d.Type]++
	}
	for kind, n := range counts {
		s.metrics.RecordDiscrepancies(ctx, kind.String(), int64(n))
	}
	s.publishDomainEvents(ctx, session)
	s.logger.Info("stock take evaluated",
		zap.String("session_id", session.ID.String()),
		zap.String("warehouse_id", session.WarehouseID.String()),
		zap.Int("discrepancies", len(discrepancies)))
	return ToDiscrepancyResponses(discrepancies), nil
}

// ListDiscrepancies returns the findings of a session
func (s *StockTakeService) ListDiscrepancies(ctx context.Context, sessionID uuid.UUID) ([]DiscrepancyResponse, error) {
	ds, err := s.discrepancyRepo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ToDiscrepancyResponses(ds), nil
}

// ResolveDiscrepancy marks a finding resolved. When ApplyAdjustment is set
// and the finding has a system batch, the batch is corrected to the counted
// quantity through an ADJUST ledger entry in the same transaction.
func (s *StockTakeService) ResolveDiscrepancy(ctx context.Context, req ResolveDiscrepancyRequest) (*DiscrepancyResponse, error) {
	var d *inventory.StockDiscrepancy
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		d, err = repos.DiscrepancyRepo().FindByIDForUpdate(ctx, req.DiscrepancyID)
		if err != nil {
			return err
		}
		if d.IsResolved {
			return shared.NewDomainError("ALREADY_RESOLVED", fmt.Sprintf("Discrepancy %s is already resolved", d.ID))
		}
		if req.ApplyAdjustment {
			batchID, delta, ok := d.CorrectiveDelta()
			if !ok {
				return shared.NewDomainError("NOT_ADJUSTABLE",
					fmt.Sprintf("A %s finding cannot be corrected automatically", d.Type))
			}
			link := inventory.LedgerLink{
				Reference: fmt.Sprintf("stock-take:%s", d.SessionID),
				Actor:     req.Actor,
				Note:      req.Note,
			}
			if _, _, err := s.engine.Adjust(ctx, repos, batchID, delta, link); err != nil {
				return err
			}
			if _, err := s.engine.RecomputeTotals(ctx, repos, d.WarehouseProductID); err != nil {
				return err
			}
		}
		d.Resolve(req.Actor, req.Note, s.now())
		return repos.DiscrepancyRepo().Save(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	resp := ToDiscrepancyResponse(d)
	return &resp, nil
}
