package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"payandpromise/internal/domain"
	"payandpromise/pkg/errors"
	"payandpromise/pkg/logger"
)

// Mocks

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateBatch(ctx context.Context, settlements []*domain.Settlement) error {
	args := m.Called(ctx, settlements)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockRepository) FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.Settlement, error) {
	args := m.Called(ctx, promiseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Settlement), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.SettlementStatus, allowedFrom []domain.SettlementStatus) error {
	args := m.Called(ctx, id, to, allowedFrom)
	return args.Error(0)
}

func pendingSettlement(from, to uuid.UUID) *domain.Settlement {
	return &domain.Settlement{
		ID:         uuid.New(),
		PromiseID:  uuid.New(),
		FromUserID: from,
		ToUserID:   to,
		Amount:     decimal.RequireFromString("15"),
		Status:     domain.SettlementStatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestEnsureGeneratedComputesOnFirstCall(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	promiseID := uuid.New()
	debtor := uuid.New()
	creditor := uuid.New()
	balances := map[uuid.UUID]decimal.Decimal{
		debtor:   decimal.RequireFromString("-30"),
		creditor: decimal.RequireFromString("30"),
	}

	repo.On("FindByPromise", mock.Anything, promiseID).Return([]*domain.Settlement{}, nil).Once()
	repo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(settlements []*domain.Settlement) bool {
		return len(settlements) == 1 &&
			settlements[0].FromUserID == debtor &&
			settlements[0].ToUserID == creditor &&
			settlements[0].Amount.Equal(decimal.RequireFromString("30")) &&
			settlements[0].Status == domain.SettlementStatusPending
	})).Return(nil)

	settlements, err := svc.EnsureGenerated(context.Background(), promiseID, balances)

	assert.NoError(t, err)
	assert.Len(t, settlements, 1)
	repo.AssertExpectations(t)
}

func TestEnsureGeneratedReturnsExistingWithoutRecompute(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	promiseID := uuid.New()
	existing := []*domain.Settlement{pendingSettlement(uuid.New(), uuid.New())}
	repo.On("FindByPromise", mock.Anything, promiseID).Return(existing, nil)

	// Balances deliberately disagree with the stored rows; they must be ignored.
	settlements, err := svc.EnsureGenerated(context.Background(), promiseID, map[uuid.UUID]decimal.Decimal{
		uuid.New(): decimal.RequireFromString("-100"),
		uuid.New(): decimal.RequireFromString("100"),
	})

	assert.NoError(t, err)
	assert.Equal(t, existing, settlements)
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestEnsureGeneratedRecoversFromInsertRace(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	promiseID := uuid.New()
	winner := []*domain.Settlement{pendingSettlement(uuid.New(), uuid.New())}

	repo.On("FindByPromise", mock.Anything, promiseID).Return([]*domain.Settlement{}, nil).Once()
	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(errors.ErrSettlementsExist)
	repo.On("FindByPromise", mock.Anything, promiseID).Return(winner, nil).Once()

	settlements, err := svc.EnsureGenerated(context.Background(), promiseID, map[uuid.UUID]decimal.Decimal{
		uuid.New(): decimal.RequireFromString("-30"),
		uuid.New(): decimal.RequireFromString("30"),
	})

	assert.NoError(t, err)
	assert.Equal(t, winner, settlements)
}

func TestEnsureGeneratedSettledBalancesInsertNothing(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	promiseID := uuid.New()
	repo.On("FindByPromise", mock.Anything, promiseID).Return([]*domain.Settlement{}, nil)

	settlements, err := svc.EnsureGenerated(context.Background(), promiseID, map[uuid.UUID]decimal.Decimal{})

	assert.NoError(t, err)
	assert.Empty(t, settlements)
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestMarkPaidByDebtor(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	debtor := uuid.New()
	creditor := uuid.New()
	settlement := pendingSettlement(debtor, creditor)

	updated := *settlement
	updated.Status = domain.SettlementStatusMarkedPaid

	repo.On("FindByID", mock.Anything, settlement.ID).Return(settlement, nil).Once()
	repo.On("UpdateStatus", mock.Anything, settlement.ID, domain.SettlementStatusMarkedPaid,
		[]domain.SettlementStatus{domain.SettlementStatusPending, domain.SettlementStatusRejected}).Return(nil)
	repo.On("FindByID", mock.Anything, settlement.ID).Return(&updated, nil).Once()

	result, err := svc.MarkPaid(context.Background(), settlement.ID, debtor)

	assert.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusMarkedPaid, result.Status)
}

func TestMarkPaidRejectedSettlementIsRepayable(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	debtor := uuid.New()
	settlement := pendingSettlement(debtor, uuid.New())
	settlement.Status = domain.SettlementStatusRejected

	updated := *settlement
	updated.Status = domain.SettlementStatusMarkedPaid

	repo.On("FindByID", mock.Anything, settlement.ID).Return(settlement, nil).Once()
	repo.On("UpdateStatus", mock.Anything, settlement.ID, domain.SettlementStatusMarkedPaid, mock.Anything).Return(nil)
	repo.On("FindByID", mock.Anything, settlement.ID).Return(&updated, nil).Once()

	result, err := svc.MarkPaid(context.Background(), settlement.ID, debtor)

	assert.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusMarkedPaid, result.Status)
}

func TestMarkPaidByNonDebtorUnauthorized(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	settlement := pendingSettlement(uuid.New(), uuid.New())
	repo.On("FindByID", mock.Anything, settlement.ID).Return(settlement, nil)

	// Even the creditor may not declare payment on the debtor's behalf.
	_, err := svc.MarkPaid(context.Background(), settlement.ID, settlement.ToUserID)
	assert.ErrorIs(t, err, errors.ErrUnauthorizedTransition)

	_, err = svc.MarkPaid(context.Background(), settlement.ID, uuid.New())
	assert.ErrorIs(t, err, errors.ErrUnauthorizedTransition)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmByCreditorIsTerminal(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	debtor := uuid.New()
	creditor := uuid.New()
	settlement := pendingSettlement(debtor, creditor)
	settlement.Status = domain.SettlementStatusMarkedPaid

	confirmed := *settlement
	confirmed.Status = domain.SettlementStatusConfirmed

	repo.On("FindByID", mock.Anything, settlement.ID).Return(settlement, nil).Once()
	repo.On("UpdateStatus", mock.Anything, settlement.ID, domain.SettlementStatusConfirmed,
		[]domain.SettlementStatus{domain.SettlementStatusMarkedPaid, domain.SettlementStatusPaid}).Return(nil)
	repo.On("FindByID", mock.Anything, settlement.ID).Return(&confirmed, nil).Once()

	result, err := svc.Confirm(context.Background(), settlement.ID, creditor)
	assert.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusConfirmed, result.Status)

	// No transition leaves confirmed.
	repo.On("FindByID", mock.Anything, settlement.ID).Return(&confirmed, nil)
	_, err = svc.Reject(context.Background(), settlement.ID, creditor)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	_, err = svc.MarkPaid(context.Background(), settlement.ID, debtor)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestConfirmByUnrelatedPartyRejected(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	settlement := pendingSettlement(uuid.New(), uuid.New())
	settlement.Status = domain.SettlementStatusMarkedPaid
	repo.On("FindByID", mock.Anything, settlement.ID).Return(settlement, nil)

	_, err := svc.Confirm(context.Background(), settlement.ID, uuid.New())

	assert.ErrorIs(t, err, errors.ErrUnauthorizedTransition)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmPendingInvalid(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	settlement := pendingSettlement(uuid.New(), uuid.New())
	repo.On("FindByID", mock.Anything, settlement.ID).Return(settlement, nil)

	_, err := svc.Confirm(context.Background(), settlement.ID, settlement.ToUserID)

	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestRejectReopensDebt(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	debtor := uuid.New()
	creditor := uuid.New()
	settlement := pendingSettlement(debtor, creditor)
	settlement.Status = domain.SettlementStatusMarkedPaid

	rejected := *settlement
	rejected.Status = domain.SettlementStatusRejected

	repo.On("FindByID", mock.Anything, settlement.ID).Return(settlement, nil).Once()
	repo.On("UpdateStatus", mock.Anything, settlement.ID, domain.SettlementStatusRejected,
		[]domain.SettlementStatus{domain.SettlementStatusMarkedPaid, domain.SettlementStatusPaid}).Return(nil)
	repo.On("FindByID", mock.Anything, settlement.ID).Return(&rejected, nil).Once()

	result, err := svc.Reject(context.Background(), settlement.ID, creditor)

	assert.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusRejected, result.Status)
	assert.True(t, result.Status.Payable())
}
