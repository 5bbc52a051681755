package checkin

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

func (m *MockRepository) CreateWithLedger(ctx context.Context, checkin *domain.DailyCheckin, entries []*domain.LedgerEntry) error {
	args := m.Called(ctx, checkin, entries)
	return args.Error(0)
}

func (m *MockRepository) FindByPromiseAndUser(ctx context.Context, promiseID, userID uuid.UUID) ([]*domain.DailyCheckin, error) {
	args := m.Called(ctx, promiseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyCheckin), args.Error(1)
}

func (m *MockRepository) FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.DailyCheckin, error) {
	args := m.Called(ctx, promiseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyCheckin), args.Error(1)
}

type MockPromiseRepository struct {
	mock.Mock
}

func (m *MockPromiseRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Promise, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Promise), args.Error(1)
}

func (m *MockPromiseRepository) Participants(ctx context.Context, promiseID uuid.UUID) ([]*domain.Participant, error) {
	args := m.Called(ctx, promiseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Participant), args.Error(1)
}

func testPromise(people int) *domain.Promise {
	return &domain.Promise{
		ID:              uuid.New(),
		Title:           "Morning run",
		CreatorID:       uuid.New(),
		DurationDays:    10,
		NumberOfPeople:  people,
		AmountPerPerson: decimal.RequireFromString("300"),
		InviteCode:      "AB12CD",
		Status:          domain.PromiseStatusActive,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func memberList(promiseID uuid.UUID, userIDs ...uuid.UUID) []*domain.Participant {
	participants := make([]*domain.Participant, 0, len(userIDs))
	for _, id := range userIDs {
		participants = append(participants, &domain.Participant{
			PromiseID: promiseID,
			UserID:    id,
			JoinedAt:  time.Now(),
		})
	}
	return participants
}

func TestSubmitFailureChargesStakeAndSplitsEvenly(t *testing.T) {
	repo := new(MockRepository)
	promises := new(MockPromiseRepository)
	svc := NewService(repo, promises, logger.NewNop())

	promise := testPromise(3)
	userA := uuid.New()
	userB := uuid.New()
	userC := uuid.New()

	promises.On("FindByID", mock.Anything, promise.ID).Return(promise, nil)
	promises.On("Participants", mock.Anything, promise.ID).
		Return(memberList(promise.ID, userA, userB, userC), nil)
	repo.On("CreateWithLedger", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Submit(context.Background(), promise.ID, userA, today(), domain.CheckinStatusFailed)

	assert.NoError(t, err)
	assert.Equal(t, domain.CheckinStatusFailed, result.Checkin.Status)

	// 300 / 10 days = 30 charged, 15 to each of the two peers.
	assert.True(t, result.Penalty.Amount.Equal(decimal.RequireFromString("30")))
	assert.Equal(t, userA, result.Penalty.UserID)
	assert.Equal(t, domain.LedgerEntryPenalty, result.Penalty.Type)

	assert.Len(t, result.Winnings, 2)
	credited := map[uuid.UUID]bool{}
	for _, w := range result.Winnings {
		assert.True(t, w.Amount.Equal(decimal.RequireFromString("15")))
		assert.Equal(t, domain.LedgerEntryWinnings, w.Type)
		credited[w.UserID] = true
	}
	assert.True(t, credited[userB])
	assert.True(t, credited[userC])

	// Conservation: penalty equals the winnings total within rounding.
	total := decimal.Zero
	for _, w := range result.Winnings {
		total = total.Add(w.Amount)
	}
	diff := result.Penalty.Amount.Sub(total).Abs()
	assert.True(t, diff.LessThanOrEqual(domain.RoundingTolerance))
}

func TestSubmitFailureConservationWithUnevenSplit(t *testing.T) {
	repo := new(MockRepository)
	promises := new(MockPromiseRepository)
	svc := NewService(repo, promises, logger.NewNop())

	// 100 / 10 days = 10, split three ways = 3.33 each.
	promise := testPromise(4)
	promise.AmountPerPerson = decimal.RequireFromString("100")
	userA := uuid.New()

	promises.On("FindByID", mock.Anything, promise.ID).Return(promise, nil)
	promises.On("Participants", mock.Anything, promise.ID).
		Return(memberList(promise.ID, userA, uuid.New(), uuid.New(), uuid.New()), nil)
	repo.On("CreateWithLedger", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Submit(context.Background(), promise.ID, userA, today(), domain.CheckinStatusFailed)

	assert.NoError(t, err)
	assert.Len(t, result.Winnings, 3)

	total := decimal.Zero
	for _, w := range result.Winnings {
		assert.True(t, w.Amount.Equal(decimal.RequireFromString("3.33")))
		total = total.Add(w.Amount)
	}
	diff := result.Penalty.Amount.Sub(total).Abs()
	assert.True(t, diff.LessThanOrEqual(domain.RoundingTolerance), "diff %s", diff)
}

func TestSubmitDoneWritesNoLedgerRows(t *testing.T) {
	repo := new(MockRepository)
	promises := new(MockPromiseRepository)
	svc := NewService(repo, promises, logger.NewNop())

	promise := testPromise(2)
	userA := uuid.New()

	promises.On("FindByID", mock.Anything, promise.ID).Return(promise, nil)
	promises.On("Participants", mock.Anything, promise.ID).
		Return(memberList(promise.ID, userA, uuid.New()), nil)
	repo.On("CreateWithLedger", mock.Anything, mock.Anything, mock.MatchedBy(func(entries []*domain.LedgerEntry) bool {
		return len(entries) == 0
	})).Return(nil)

	result, err := svc.Submit(context.Background(), promise.ID, userA, today(), domain.CheckinStatusDone)

	assert.NoError(t, err)
	assert.Nil(t, result.Penalty)
	assert.Empty(t, result.Winnings)
	repo.AssertExpectations(t)
}

func TestSubmitDuplicateRejected(t *testing.T) {
	repo := new(MockRepository)
	promises := new(MockPromiseRepository)
	svc := NewService(repo, promises, logger.NewNop())

	promise := testPromise(2)
	userA := uuid.New()

	promises.On("FindByID", mock.Anything, promise.ID).Return(promise, nil)
	promises.On("Participants", mock.Anything, promise.ID).
		Return(memberList(promise.ID, userA, uuid.New()), nil)
	repo.On("CreateWithLedger", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.ErrDuplicateCheckin)

	_, err := svc.Submit(context.Background(), promise.ID, userA, today(), domain.CheckinStatusFailed)

	assert.ErrorIs(t, err, errors.ErrDuplicateCheckin)
	// Only the single transactional write was attempted; its rollback leaves
	// zero ledger rows, so nothing further to undo here.
	repo.AssertNumberOfCalls(t, "CreateWithLedger", 1)
}

func TestSubmitRequiresActivePromise(t *testing.T) {
	repo := new(MockRepository)
	promises := new(MockPromiseRepository)
	svc := NewService(repo, promises, logger.NewNop())

	promise := testPromise(2)
	promise.Status = domain.PromiseStatusCompleted
	promises.On("FindByID", mock.Anything, promise.ID).Return(promise, nil)

	_, err := svc.Submit(context.Background(), promise.ID, uuid.New(), today(), domain.CheckinStatusDone)

	assert.ErrorIs(t, err, errors.ErrPromiseNotActive)
}

func TestSubmitRequiresMembership(t *testing.T) {
	repo := new(MockRepository)
	promises := new(MockPromiseRepository)
	svc := NewService(repo, promises, logger.NewNop())

	promise := testPromise(2)
	promises.On("FindByID", mock.Anything, promise.ID).Return(promise, nil)
	promises.On("Participants", mock.Anything, promise.ID).
		Return(memberList(promise.ID, uuid.New(), uuid.New()), nil)

	_, err := svc.Submit(context.Background(), promise.ID, uuid.New(), today(), domain.CheckinStatusDone)

	assert.ErrorIs(t, err, errors.ErrNotParticipant)
}

func TestSubmitRejectsDateOutsidePromiseWindow(t *testing.T) {
	repo := new(MockRepository)
	promises := new(MockPromiseRepository)
	svc := NewService(repo, promises, logger.NewNop())

	// Runs 2026-08-25 through 2026-09-03 inclusive.
	promise := testPromise(2)
	promise.CreatedAt = time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	userA := uuid.New()

	promises.On("FindByID", mock.Anything, promise.ID).Return(promise, nil)
	promises.On("Participants", mock.Anything, promise.ID).
		Return(memberList(promise.ID, userA, uuid.New()), nil)
	repo.On("CreateWithLedger", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	for _, date := range []string{"2026-08-24", "2026-09-04", "2027-01-15", "not-a-date"} {
		_, err := svc.Submit(context.Background(), promise.ID, userA, date, domain.CheckinStatusFailed)
		assert.ErrorIs(t, err, errors.ErrCheckinOutOfWindow, "date %s", date)
	}
	repo.AssertNotCalled(t, "CreateWithLedger", mock.Anything, mock.Anything, mock.Anything)

	// Both window edges inside the run are accepted.
	for _, date := range []string{"2026-08-25", "2026-09-03"} {
		_, err := svc.Submit(context.Background(), promise.ID, userA, date, domain.CheckinStatusDone)
		assert.NoError(t, err, "date %s", date)
	}
}

func TestSubmitWaitsForFullGroup(t *testing.T) {
	repo := new(MockRepository)
	promises := new(MockPromiseRepository)
	svc := NewService(repo, promises, logger.NewNop())

	promise := testPromise(3)
	userA := uuid.New()
	promises.On("FindByID", mock.Anything, promise.ID).Return(promise, nil)
	promises.On("Participants", mock.Anything, promise.ID).
		Return(memberList(promise.ID, userA, uuid.New()), nil)

	_, err := svc.Submit(context.Background(), promise.ID, userA, today(), domain.CheckinStatusDone)

	assert.ErrorIs(t, err, errors.ErrParticipantsMissing)
}
