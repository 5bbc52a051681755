package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"payandpromise/internal/domain"
	"payandpromise/pkg/errors"
)

// CheckinRepository persists daily check-ins together with the ledger rows a
// failed check-in produces. Keeping both in one transaction closes the gap
// where a crash leaves a check-in recorded with no penalty applied.
type CheckinRepository struct {
	db *sqlx.DB
}

func NewCheckinRepository(db *sqlx.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

const checkinColumns = `id, promise_id, user_id, to_char(date, 'YYYY-MM-DD') AS date, status, created_at`

// CreateWithLedger inserts the check-in row and, atomically with it, any
// ledger entries the check-in produced (penalty first, then winnings). The
// unique (promise_id, user_id, date) key rejects a second submission for the
// same day; the whole transaction rolls back and no ledger rows are written.
func (r *CheckinRepository) CreateWithLedger(ctx context.Context, checkin *domain.DailyCheckin, entries []*domain.LedgerEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	insertCheckin := `
		INSERT INTO daily_checkins (id, promise_id, user_id, date, status, created_at)
		VALUES (:id, :promise_id, :user_id, :date, :status, :created_at)
	`
	if _, err := tx.NamedExecContext(ctx, insertCheckin, checkin); err != nil {
		if isUniqueViolation(err) {
			return errors.ErrDuplicateCheckin
		}
		return errors.Wrap(err, "failed to insert check-in")
	}

	insertEntry := `
		INSERT INTO ledger (id, promise_id, user_id, amount, type, description, created_at)
		VALUES (:id, :promise_id, :user_id, :amount, :type, :description, :created_at)
	`
	for _, entry := range entries {
		if _, err := tx.NamedExecContext(ctx, insertEntry, entry); err != nil {
			return errors.Wrap(err, "failed to insert ledger entry")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit check-in")
}

func (r *CheckinRepository) FindByPromiseAndUser(ctx context.Context, promiseID, userID uuid.UUID) ([]*domain.DailyCheckin, error) {
	var checkins []*domain.DailyCheckin
	query := `SELECT ` + checkinColumns + ` FROM daily_checkins
		WHERE promise_id = $1 AND user_id = $2
		ORDER BY date ASC`
	err := r.db.SelectContext(ctx, &checkins, query, promiseID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find check-ins")
	}
	return checkins, nil
}

func (r *CheckinRepository) FindByPromise(ctx context.Context, promiseID uuid.UUID) ([]*domain.DailyCheckin, error) {
	var checkins []*domain.DailyCheckin
	query := `SELECT ` + checkinColumns + ` FROM daily_checkins
		WHERE promise_id = $1
		ORDER BY date ASC`
	err := r.db.SelectContext(ctx, &checkins, query, promiseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find check-ins for promise")
	}
	return checkins, nil
}

// CountDone returns the number of successful check-ins across the whole
// promise. Zero means the promise is a wash.
func (r *CheckinRepository) CountDone(ctx context.Context, promiseID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM daily_checkins WHERE promise_id = $1 AND status = 'done'`
	err := r.db.GetContext(ctx, &count, query, promiseID)
	return count, errors.Wrap(err, "failed to count successful check-ins")
}
