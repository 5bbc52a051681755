// Package report assembles the end-of-promise financial view: per-user
// balances, wash refunds, and the settlement list with payment links.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payandpromise/internal/domain"
	"payandpromise/internal/ledger"
	"payandpromise/internal/upi"
	"payandpromise/pkg/errors"
	"payandpromise/pkg/logger"
)

type LedgerRepository interface {
	Create(ctx context.Context, entry *domain.LedgerEntry) error
	FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.LedgerEntry, error)
}

type CheckinRepository interface {
	FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.DailyCheckin, error)
	CountDone(ctx context.Context, promiseID uuid.UUID) (int, error)
}

type PromiseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Promise, error)
	Participants(ctx context.Context, promiseID uuid.UUID) ([]*domain.Participant, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PromiseStatus) error
}

type UserRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
}

// SettlementGenerator is the settlement service surface the report needs.
type SettlementGenerator interface {
	EnsureGenerated(ctx context.Context, promiseID uuid.UUID, balances map[uuid.UUID]decimal.Decimal) ([]*domain.Settlement, error)
}

type Service struct {
	ledger      LedgerRepository
	checkins    CheckinRepository
	promises    PromiseRepository
	users       UserRepository
	settlements SettlementGenerator
	payScheme   string
	currency    string
	logger      logger.Logger
}

func NewService(
	ledgerRepo LedgerRepository,
	checkins CheckinRepository,
	promises PromiseRepository,
	users UserRepository,
	settlements SettlementGenerator,
	payScheme, currency string,
	log logger.Logger,
) *Service {
	return &Service{
		ledger:      ledgerRepo,
		checkins:    checkins,
		promises:    promises,
		users:       users,
		settlements: settlements,
		payScheme:   payScheme,
		currency:    currency,
		logger:      log,
	}
}

// ParticipantResult is one user's outcome line in the report.
type ParticipantResult struct {
	UserID       uuid.UUID       `json:"user_id"`
	Name         string          `json:"name"`
	CheckinsDone int             `json:"checkins_done"`
	NetBalance   decimal.Decimal `json:"net_balance"`
}

// SettlementView is a settlement annotated with display names and, for the
// viewing debtor, a ready-to-open payment link.
type SettlementView struct {
	*domain.Settlement
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
	PayLink  string `json:"pay_link,omitempty"`
}

// Report is the promise's financial summary as seen by one participant.
type Report struct {
	Promise      *domain.Promise      `json:"promise"`
	Ended        bool                 `json:"ended"`
	IsWash       bool                 `json:"is_wash"`
	Refund       *domain.LedgerEntry  `json:"refund,omitempty"`
	Participants []*ParticipantResult `json:"participants"`
	Settlements  []*SettlementView    `json:"settlements"`
}

// View recomputes the promise's financial summary from the full ledger. It is
// the lazy trigger for three side effects: flipping an elapsed promise to
// completed, refunding the viewer's penalties when the promise was a wash,
// and generating the settlement list on the first view after the end of a
// non-wash promise. All three are guarded so repeat views change nothing.
func (s *Service) View(ctx context.Context, promiseID, viewerID uuid.UUID) (*Report, error) {
	promise, err := s.promises.FindByID(ctx, promiseID)
	if err != nil {
		return nil, err
	}

	participants, err := s.promises.Participants(ctx, promiseID)
	if err != nil {
		return nil, err
	}
	var isMember bool
	for _, p := range participants {
		if p.UserID == viewerID {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, errors.ErrNotParticipant
	}

	if promise.Status == domain.PromiseStatusActive && s.elapsed(promise) {
		// Compare-and-set; a concurrent view flipping first is fine.
		if err := s.promises.UpdateStatus(ctx, promiseID, domain.PromiseStatusActive, domain.PromiseStatusCompleted); err != nil {
			return nil, err
		}
		promise.Status = domain.PromiseStatusCompleted
	}
	ended := promise.Status != domain.PromiseStatusActive

	entries, err := s.ledger.FindByPromise(ctx, promiseID)
	if err != nil {
		return nil, err
	}

	report := &Report{Promise: promise, Ended: ended}

	if ended {
		doneCount, err := s.checkins.CountDone(ctx, promiseID)
		if err != nil {
			return nil, err
		}
		report.IsWash = doneCount == 0
	}

	if report.IsWash {
		refund, err := s.refundOutstanding(ctx, promise, viewerID, entries)
		if err != nil {
			return nil, err
		}
		if refund != nil {
			report.Refund = refund
			entries = append(entries, refund)
		}
	}

	balances := ledger.Accumulate(entries)

	// A wash refunds penalties instead of redistributing them; it never
	// produces settlements. Generating here would freeze debts computed
	// before the other participants' refunds exist.
	if ended && !report.IsWash {
		settlements, err := s.settlements.EnsureGenerated(ctx, promiseID, balances)
		if err != nil {
			return nil, err
		}
		views, err := s.settlementViews(ctx, promise, settlements, viewerID)
		if err != nil {
			return nil, err
		}
		report.Settlements = views
	}

	results, err := s.participantResults(ctx, promiseID, participants, balances)
	if err != nil {
		return nil, err
	}
	report.Participants = results

	return report, nil
}

func (s *Service) elapsed(promise *domain.Promise) bool {
	end := promise.CreatedAt.AddDate(0, 0, promise.DurationDays)
	return !time.Now().Before(end)
}

// refundOutstanding issues the viewer's wash refund: penalties paid minus
// refunds already received. The delta is recomputed from the ledger on every
// view, so a second view finds nothing outstanding and writes nothing.
func (s *Service) refundOutstanding(ctx context.Context, promise *domain.Promise, viewerID uuid.UUID, entries []*domain.LedgerEntry) (*domain.LedgerEntry, error) {
	sum := ledger.Summarize(entries, viewerID)
	outstanding := sum.Penalties.Sub(sum.Refunds).Round(2)
	if outstanding.LessThanOrEqual(domain.RoundingTolerance) {
		return nil, nil
	}

	refund := &domain.LedgerEntry{
		ID:          uuid.New(),
		PromiseID:   promise.ID,
		UserID:      viewerID,
		Amount:      outstanding,
		Type:        domain.LedgerEntryRefund,
		Description: fmt.Sprintf("Refund for %s: no one completed a check-in", promise.Title),
		CreatedAt:   time.Now(),
	}
	if err := s.ledger.Create(ctx, refund); err != nil {
		return nil, err
	}

	s.logger.Info("Issued wash refund", map[string]interface{}{
		"promise_id": promise.ID,
		"user_id":    viewerID,
		"amount":     outstanding,
	})
	return refund, nil
}

func (s *Service) participantResults(ctx context.Context, promiseID uuid.UUID, participants []*domain.Participant, balances map[uuid.UUID]decimal.Decimal) ([]*ParticipantResult, error) {
	ids := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FirstName()
	}

	checkins, err := s.checkins.FindByPromise(ctx, promiseID)
	if err != nil {
		return nil, err
	}
	done := make(map[uuid.UUID]int)
	for _, c := range checkins {
		if c.Status == domain.CheckinStatusDone {
			done[c.UserID]++
		}
	}

	results := make([]*ParticipantResult, 0, len(participants))
	for _, p := range participants {
		results = append(results, &ParticipantResult{
			UserID:       p.UserID,
			Name:         names[p.UserID],
			CheckinsDone: done[p.UserID],
			NetBalance:   balances[p.UserID],
		})
	}
	return results, nil
}

// settlementViews decorates settlements with names and builds a payment deep
// link where the viewer is the debtor, the row is still payable, and the
// creditor has a payout id on file.
func (s *Service) settlementViews(ctx context.Context, promise *domain.Promise, settlements []*domain.Settlement, viewerID uuid.UUID) ([]*SettlementView, error) {
	if len(settlements) == 0 {
		return nil, nil
	}

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, settlement := range settlements {
		for _, id := range []uuid.UUID{settlement.FromUserID, settlement.ToUserID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	views := make([]*SettlementView, 0, len(settlements))
	for _, settlement := range settlements {
		view := &SettlementView{Settlement: settlement}
		if from := byID[settlement.FromUserID]; from != nil {
			view.FromName = from.FirstName()
		}
		creditor := byID[settlement.ToUserID]
		if creditor != nil {
			view.ToName = creditor.FirstName()
		}
		if settlement.FromUserID == viewerID && settlement.Status.Payable() &&
			creditor != nil && creditor.UPIID != nil && upi.ValidID(*creditor.UPIID) {
			view.PayLink = upi.PayLink(s.payScheme, *creditor.UPIID, creditor.FirstName(),
				settlement.Amount, s.currency, promise.Title)
		}
		views = append(views, view)
	}
	return views, nil
}
