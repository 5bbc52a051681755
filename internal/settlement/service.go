package settlement

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payandpromise/internal/domain"
	"payandpromise/pkg/errors"
	"payandpromise/pkg/logger"
)

// Repository is the slice of settlement persistence this service needs.
type Repository interface {
	CreateBatch(ctx context.Context, settlements []*domain.Settlement) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error)
	FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.Settlement, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to domain.SettlementStatus, allowedFrom []domain.SettlementStatus) error
}

type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// EnsureGenerated returns the promise's settlements, computing and persisting
// them from the given balances on first call. Settlements are generated once
// per promise; once any rows exist they are returned as-is, never recomputed,
// because each row carries lifecycle state that a recompute would reset. When
// two callers race past the existence check, the insert's unique key stops
// the loser, which recovers by re-fetching the winner's rows.
func (s *Service) EnsureGenerated(ctx context.Context, promiseID uuid.UUID, balances map[uuid.UUID]decimal.Decimal) ([]*domain.Settlement, error) {
	existing, err := s.repo.FindByPromise(ctx, promiseID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	transfers := ComputeTransfers(balances)
	if len(transfers) == 0 {
		return nil, nil
	}

	now := time.Now()
	settlements := make([]*domain.Settlement, 0, len(transfers))
	for _, t := range transfers {
		settlements = append(settlements, &domain.Settlement{
			ID:         uuid.New(),
			PromiseID:  promiseID,
			FromUserID: t.From,
			ToUserID:   t.To,
			Amount:     t.Amount,
			Status:     domain.SettlementStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := s.repo.CreateBatch(ctx, settlements); err != nil {
		if stderrors.Is(err, errors.ErrSettlementsExist) {
			s.logger.Info("Settlements generated concurrently, re-fetching", map[string]interface{}{
				"promise_id": promiseID,
			})
			return s.repo.FindByPromise(ctx, promiseID)
		}
		return nil, err
	}

	s.logger.Info("Generated settlements", map[string]interface{}{
		"promise_id": promiseID,
		"count":      len(settlements),
	})
	return settlements, nil
}

// ListByPromise returns the promise's settlements without generating any.
func (s *Service) ListByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.Settlement, error) {
	return s.repo.FindByPromise(ctx, promiseID)
}

// MarkPaid records the debtor's declaration that the transfer was sent
// out-of-band. Only the debtor may declare, and only from pending or
// rejected; a rejected settlement is re-payable.
func (s *Service) MarkPaid(ctx context.Context, settlementID, actorID uuid.UUID) (*domain.Settlement, error) {
	settlement, err := s.repo.FindByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if actorID != settlement.FromUserID {
		return nil, errors.ErrUnauthorizedTransition
	}
	if !settlement.Status.Payable() {
		return nil, errors.ErrInvalidTransition
	}

	err = s.repo.UpdateStatus(ctx, settlementID, domain.SettlementStatusMarkedPaid,
		[]domain.SettlementStatus{domain.SettlementStatusPending, domain.SettlementStatusRejected})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, settlementID)
}

// Confirm records the creditor's acknowledgement of receipt. Confirmed is
// terminal.
func (s *Service) Confirm(ctx context.Context, settlementID, actorID uuid.UUID) (*domain.Settlement, error) {
	return s.resolve(ctx, settlementID, actorID, domain.SettlementStatusConfirmed)
}

// Reject records the creditor's dispute. The settlement keeps its rejected
// status for history, but the debt is open again for a fresh declaration.
func (s *Service) Reject(ctx context.Context, settlementID, actorID uuid.UUID) (*domain.Settlement, error) {
	return s.resolve(ctx, settlementID, actorID, domain.SettlementStatusRejected)
}

func (s *Service) resolve(ctx context.Context, settlementID, actorID uuid.UUID, to domain.SettlementStatus) (*domain.Settlement, error) {
	settlement, err := s.repo.FindByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if actorID != settlement.ToUserID {
		return nil, errors.ErrUnauthorizedTransition
	}
	if !settlement.Status.Declared() {
		return nil, errors.ErrInvalidTransition
	}

	err = s.repo.UpdateStatus(ctx, settlementID, to,
		[]domain.SettlementStatus{domain.SettlementStatusMarkedPaid, domain.SettlementStatusPaid})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, settlementID)
}
