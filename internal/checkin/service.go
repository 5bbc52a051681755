// Package checkin records daily self-reports and applies the financial
// consequences of a missed day.
package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payandpromise/internal/domain"
	"payandpromise/pkg/errors"
	"payandpromise/pkg/logger"
)

// Repository persists check-ins. CreateWithLedger must write the check-in and
// its ledger entries in one transaction; a duplicate (promise, user, date)
// must fail the whole write with ErrDuplicateCheckin and zero ledger rows.
type Repository interface {
	CreateWithLedger(ctx context.Context, checkin *domain.DailyCheckin, entries []*domain.LedgerEntry) error
	FindByPromiseAndUser(ctx context.Context, promiseID, userID uuid.UUID) ([]*domain.DailyCheckin, error)
	FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.DailyCheckin, error)
}

// PromiseRepository is the slice of promise persistence this service needs.
type PromiseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Promise, error)
	Participants(ctx context.Context, promiseID uuid.UUID) ([]*domain.Participant, error)
}

type Service struct {
	repo     Repository
	promises PromiseRepository
	logger   logger.Logger
}

func NewService(repo Repository, promises PromiseRepository, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		promises: promises,
		logger:   log,
	}
}

// Result reports what a submission wrote: the check-in row plus the penalty
// and winnings entries a failed day produced (both empty for a done day).
type Result struct {
	Checkin  *domain.DailyCheckin  `json:"checkin"`
	Penalty  *domain.LedgerEntry   `json:"penalty,omitempty"`
	Winnings []*domain.LedgerEntry `json:"winnings,omitempty"`
}

// Submit records one participant's check-in for one calendar date. A done
// check-in writes only the check-in row. A failed check-in also charges the
// day's stake to the failer and splits it evenly among the other
// participants, all in the same transaction, so no partial penalty can be
// left behind. The participant pool is the full membership roll, not only
// users who checked in that day.
func (s *Service) Submit(ctx context.Context, promiseID, userID uuid.UUID, date string, status domain.CheckinStatus) (*Result, error) {
	promise, err := s.promises.FindByID(ctx, promiseID)
	if err != nil {
		return nil, err
	}
	if promise.Status != domain.PromiseStatusActive {
		return nil, errors.ErrPromiseNotActive
	}
	if !withinWindow(promise, date) {
		return nil, errors.ErrCheckinOutOfWindow
	}

	participants, err := s.promises.Participants(ctx, promiseID)
	if err != nil {
		return nil, err
	}
	var isMember bool
	for _, p := range participants {
		if p.UserID == userID {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, errors.ErrNotParticipant
	}
	if len(participants) < promise.NumberOfPeople {
		return nil, errors.ErrParticipantsMissing
	}

	now := time.Now()
	checkin := &domain.DailyCheckin{
		ID:        uuid.New(),
		PromiseID: promiseID,
		UserID:    userID,
		Date:      date,
		Status:    status,
		CreatedAt: now,
	}

	result := &Result{Checkin: checkin}
	var entries []*domain.LedgerEntry
	if status == domain.CheckinStatusFailed {
		result.Penalty, result.Winnings = s.failureEntries(promise, participants, userID, date, now)
		entries = append(entries, result.Penalty)
		entries = append(entries, result.Winnings...)
	}

	if err := s.repo.CreateWithLedger(ctx, checkin, entries); err != nil {
		return nil, err
	}

	s.logger.Info("Recorded check-in", map[string]interface{}{
		"promise_id": promiseID,
		"user_id":    userID,
		"date":       date,
		"status":     status,
		"ledger_rows": len(entries),
	})
	return result, nil
}

// withinWindow reports whether date falls inside the promise's run: the
// creation date up to, but not including, creation plus duration days.
func withinWindow(promise *domain.Promise, date string) bool {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	y, m, d := promise.CreatedAt.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, promise.DurationDays)
	return !day.Before(start) && day.Before(end)
}

// failureEntries builds the penalty row and the peer winnings rows for one
// missed day. Amounts are positive magnitudes; entry type carries the sign.
func (s *Service) failureEntries(promise *domain.Promise, participants []*domain.Participant, userID uuid.UUID, date string, now time.Time) (*domain.LedgerEntry, []*domain.LedgerEntry) {
	stake := promise.DailyStake()

	penalty := &domain.LedgerEntry{
		ID:          uuid.New(),
		PromiseID:   promise.ID,
		UserID:      userID,
		Amount:      stake,
		Type:        domain.LedgerEntryPenalty,
		Description: fmt.Sprintf("Missed check-in on %s", date),
		CreatedAt:   now,
	}

	var pool []uuid.UUID
	for _, p := range participants {
		if p.UserID != userID {
			pool = append(pool, p.UserID)
		}
	}
	// Solo promises cannot exist given the two-person minimum, but an empty
	// pool must not divide by zero.
	if len(pool) == 0 {
		return penalty, nil
	}

	share := stake.Div(decimal.NewFromInt(int64(len(pool)))).Round(2)
	winnings := make([]*domain.LedgerEntry, 0, len(pool))
	for _, peerID := range pool {
		winnings = append(winnings, &domain.LedgerEntry{
			ID:          uuid.New(),
			PromiseID:   promise.ID,
			UserID:      peerID,
			Amount:      share,
			Type:        domain.LedgerEntryWinnings,
			Description: fmt.Sprintf("Accountability reward from %s", promise.Title),
			CreatedAt:   now,
		})
	}
	return penalty, winnings
}

// History returns one participant's check-ins for a promise in date order.
func (s *Service) History(ctx context.Context, promiseID, userID uuid.UUID) ([]*domain.DailyCheckin, error) {
	return s.repo.FindByPromiseAndUser(ctx, promiseID, userID)
}
