package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"payandpromise/internal/domain"
	"payandpromise/pkg/errors"
)

// LedgerRepository reads and appends immutable ledger entries. There is no
// update or delete; balances are always recomputed from the full history.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger (id, promise_id, user_id, amount, type, description, created_at)
		VALUES (:id, :promise_id, :user_id, :amount, :type, :description, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, entry)
	return errors.Wrap(err, "failed to insert ledger entry")
}

func (r *LedgerRepository) FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `SELECT * FROM ledger WHERE promise_id = $1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &entries, query, promiseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read promise ledger")
	}
	return entries, nil
}

func (r *LedgerRepository) FindByPromiseAndUser(ctx context.Context, promiseID, userID uuid.UUID) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `SELECT * FROM ledger WHERE promise_id = $1 AND user_id = $2 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &entries, query, promiseID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read user ledger for promise")
	}
	return entries, nil
}

func (r *LedgerRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `SELECT * FROM ledger WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &entries, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read user ledger")
	}
	return entries, nil
}
