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

type PromiseRepository struct {
	db *sqlx.DB
}

func NewPromiseRepository(db *sqlx.DB) *PromiseRepository {
	return &PromiseRepository{db: db}
}

// Create inserts the promise and its creator's participant row in one
// transaction: a promise never exists without at least one participant.
func (r *PromiseRepository) Create(ctx context.Context, promise *domain.Promise) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO promises (
			id, title, creator_id, duration_days, number_of_people,
			amount_per_person, invite_code, status, created_at, updated_at
		) VALUES (
			:id, :title, :creator_id, :duration_days, :number_of_people,
			:amount_per_person, :invite_code, :status, :created_at, :updated_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, promise); err != nil {
		if isUniqueViolation(err) {
			// Invite code collision; the service retries with a fresh code.
			return errors.ErrInviteCodeTaken
		}
		return errors.Wrap(err, "failed to create promise")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO promise_participants (promise_id, user_id, joined_at) VALUES ($1, $2, $3)`,
		promise.ID, promise.CreatorID, time.Now(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to add creator as participant")
	}

	return errors.Wrap(tx.Commit(), "failed to commit promise creation")
}

func (r *PromiseRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Promise, error) {
	promise := &domain.Promise{}
	query := `SELECT * FROM promises WHERE id = $1`
	err := r.db.GetContext(ctx, promise, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrPromiseNotFound
		}
		return nil, errors.Wrap(err, "failed to find promise by id")
	}
	return promise, nil
}

func (r *PromiseRepository) FindByInviteCode(ctx context.Context, code string) (*domain.Promise, error) {
	promise := &domain.Promise{}
	query := `SELECT * FROM promises WHERE invite_code = $1`
	err := r.db.GetContext(ctx, promise, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrInviteCodeNotFound
		}
		return nil, errors.Wrap(err, "failed to find promise by invite code")
	}
	return promise, nil
}

func (r *PromiseRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Promise, error) {
	var promises []*domain.Promise
	query := `
		SELECT p.* FROM promises p
		JOIN promise_participants pp ON pp.promise_id = p.id
		WHERE pp.user_id = $1
		ORDER BY p.created_at DESC
	`
	err := r.db.SelectContext(ctx, &promises, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find promises by user")
	}
	return promises, nil
}

// UpdateStatus transitions the promise status only from the expected current
// status, so concurrent report views cannot double-apply a transition.
func (r *PromiseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PromiseStatus) error {
	query := `UPDATE promises SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	_, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	return errors.Wrap(err, "failed to update promise status")
}

// AddParticipant seats the user only while the group has room. The count
// check runs inside the insert statement, so two concurrent joins cannot
// both take the last seat.
func (r *PromiseRepository) AddParticipant(ctx context.Context, promiseID, userID uuid.UUID) error {
	query := `
		INSERT INTO promise_participants (promise_id, user_id, joined_at)
		SELECT p.id, $2, $3
		FROM promises p
		WHERE p.id = $1
		  AND (SELECT COUNT(*) FROM promise_participants WHERE promise_id = p.id) < p.number_of_people
	`
	result, err := r.db.ExecContext(ctx, query, promiseID, userID, time.Now())
	if isUniqueViolation(err) {
		return errors.ErrAlreadyJoined
	}
	if err != nil {
		return errors.Wrap(err, "failed to add participant")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrPromiseFull
	}
	return nil
}

func (r *PromiseRepository) Participants(ctx context.Context, promiseID uuid.UUID) ([]*domain.Participant, error) {
	var participants []*domain.Participant
	query := `SELECT * FROM promise_participants WHERE promise_id = $1 ORDER BY joined_at ASC`
	err := r.db.SelectContext(ctx, &participants, query, promiseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list participants")
	}
	return participants, nil
}

func (r *PromiseRepository) IsParticipant(ctx context.Context, promiseID, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM promise_participants WHERE promise_id = $1 AND user_id = $2)`
	err := r.db.GetContext(ctx, &exists, query, promiseID, userID)
	return exists, errors.Wrap(err, "failed to check participant membership")
}

func (r *PromiseRepository) CountParticipants(ctx context.Context, promiseID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM promise_participants WHERE promise_id = $1`
	err := r.db.GetContext(ctx, &count, query, promiseID)
	return count, errors.Wrap(err, "failed to count participants")
}
