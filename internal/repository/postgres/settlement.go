package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"payandpromise/internal/domain"
	"payandpromise/pkg/errors"
)

type SettlementRepository struct {
	db *sqlx.DB
}

func NewSettlementRepository(db *sqlx.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// CreateBatch inserts a freshly computed settlement set in one transaction.
// The unique (promise_id, from_user_id, to_user_id) key turns the
// check-then-insert race between two concurrent report views into
// ErrSettlementsExist, which callers recover from by re-fetching.
func (r *SettlementRepository) CreateBatch(ctx context.Context, settlements []*domain.Settlement) error {
	if len(settlements) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO settlements (
			id, promise_id, from_user_id, to_user_id, amount, status, created_at, updated_at
		) VALUES (
			:id, :promise_id, :from_user_id, :to_user_id, :amount, :status, :created_at, :updated_at
		)
	`
	for _, s := range settlements {
		if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
			if isUniqueViolation(err) {
				return errors.ErrSettlementsExist
			}
			return errors.Wrap(err, "failed to insert settlement")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit settlements")
}

func (r *SettlementRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	settlement := &domain.Settlement{}
	query := `SELECT * FROM settlements WHERE id = $1`
	err := r.db.GetContext(ctx, settlement, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrSettlementNotFound
		}
		return nil, errors.Wrap(err, "failed to find settlement by id")
	}
	return settlement, nil
}

func (r *SettlementRepository) FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.Settlement, error) {
	var settlements []*domain.Settlement
	query := `SELECT * FROM settlements WHERE promise_id = $1 ORDER BY amount DESC, created_at ASC`
	err := r.db.SelectContext(ctx, &settlements, query, promiseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find settlements for promise")
	}
	return settlements, nil
}

// UpdateStatus moves a settlement to the given status only if its current
// status is one of the allowed source states, making transitions safe under
// concurrent taps from both parties.
func (r *SettlementRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.SettlementStatus, allowedFrom []domain.SettlementStatus) error {
	from := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		from[i] = string(s)
	}

	query, args, err := sqlx.In(
		`UPDATE settlements SET status = ?, updated_at = ? WHERE id = ? AND status IN (?)`,
		to, time.Now(), id, from,
	)
	if err != nil {
		return errors.Wrap(err, "failed to build status update")
	}
	query = r.db.Rebind(query)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to update settlement status")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrInvalidTransition
	}
	return nil
}
