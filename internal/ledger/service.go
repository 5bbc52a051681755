package ledger

import (
	"context"

	"github.com/google/uuid"

	"payandpromise/internal/domain"
	"payandpromise/pkg/errors"
	"payandpromise/pkg/logger"
)

// Repository is the slice of ledger persistence this service needs.
type Repository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LedgerEntry, error)
	FindByPromiseAndUser(ctx context.Context, promiseID, userID uuid.UUID) ([]*domain.LedgerEntry, error)
}

// PromiseReader resolves promise metadata for history display.
type PromiseReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Promise, error)
	IsParticipant(ctx context.Context, promiseID, userID uuid.UUID) (bool, error)
}

type Service struct {
	repo     Repository
	promises PromiseReader
	logger   logger.Logger
}

func NewService(repo Repository, promises PromiseReader, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		promises: promises,
		logger:   log,
	}
}

// HistoryItem is a ledger entry enriched with its promise title for display.
type HistoryItem struct {
	Entry        *domain.LedgerEntry `json:"entry"`
	PromiseTitle string              `json:"promise_title"`
}

// History returns the user's full ledger across promises, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*HistoryItem, error) {
	entries, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	titles := make(map[uuid.UUID]string)
	items := make([]*HistoryItem, 0, len(entries))
	for _, entry := range entries {
		title, ok := titles[entry.PromiseID]
		if !ok {
			promise, err := s.promises.FindByID(ctx, entry.PromiseID)
			if err != nil {
				return nil, errors.Wrap(err, "failed to resolve promise for history")
			}
			title = promise.Title
			titles[entry.PromiseID] = title
		}
		items = append(items, &HistoryItem{Entry: entry, PromiseTitle: title})
	}
	return items, nil
}

// PromiseSummary returns the user's per-kind totals for one promise. Only
// participants may read a promise's ledger.
func (s *Service) PromiseSummary(ctx context.Context, promiseID, userID uuid.UUID) (*Summary, error) {
	member, err := s.promises.IsParticipant(ctx, promiseID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errors.ErrNotParticipant
	}

	entries, err := s.repo.FindByPromiseAndUser(ctx, promiseID, userID)
	if err != nil {
		return nil, err
	}
	sum := Summarize(entries, userID)
	return &sum, nil
}
