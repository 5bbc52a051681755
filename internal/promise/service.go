// Package promise manages promise creation, invite-code joins, and listing.
package promise

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payandpromise/internal/domain"
	"payandpromise/pkg/errors"
	"payandpromise/pkg/logger"
)

// Repository is the slice of promise persistence this service needs.
type Repository interface {
	Create(ctx context.Context, promise *domain.Promise) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Promise, error)
	FindByInviteCode(ctx context.Context, code string) (*domain.Promise, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Promise, error)
	AddParticipant(ctx context.Context, promiseID, userID uuid.UUID) error
	Participants(ctx context.Context, promiseID uuid.UUID) ([]*domain.Participant, error)
	CountParticipants(ctx context.Context, promiseID uuid.UUID) (int, error)
}

// UserReader resolves participant display data.
type UserReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
}

type Service struct {
	repo   Repository
	users  UserReader
	logger logger.Logger
}

func NewService(repo Repository, users UserReader, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: log,
	}
}

// CreateRequest captures the fields required to start a promise.
type CreateRequest struct {
	Title           string          `json:"title" validate:"required,max=120"`
	DurationDays    int             `json:"duration_days" validate:"required,min=1,max=365"`
	NumberOfPeople  int             `json:"number_of_people" validate:"required,min=2,max=10"`
	AmountPerPerson decimal.Decimal `json:"amount_per_person" validate:"required"`
}

// inviteCodeAlphabet omits 0/O and 1/I so codes survive being read aloud.
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const inviteCodeLength = 6

// maxCodeAttempts bounds retries when a generated code collides with an
// existing promise.
const maxCodeAttempts = 5

// Create starts a new promise with the caller as first participant.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, req *CreateRequest) (*domain.Promise, error) {
	if req.AmountPerPerson.LessThanOrEqual(decimal.Zero) {
		return nil, errors.ErrInvalidAmount
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, err
		}

		now := time.Now()
		promise := &domain.Promise{
			ID:              uuid.New(),
			Title:           req.Title,
			CreatorID:       creatorID,
			DurationDays:    req.DurationDays,
			NumberOfPeople:  req.NumberOfPeople,
			AmountPerPerson: req.AmountPerPerson.Round(2),
			InviteCode:      code,
			Status:          domain.PromiseStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err = s.repo.Create(ctx, promise)
		if err == nil {
			s.logger.Info("Created promise", map[string]interface{}{
				"promise_id": promise.ID,
				"creator_id": creatorID,
			})
			return promise, nil
		}
		if !stderrors.Is(err, errors.ErrInviteCodeTaken) {
			return nil, err
		}
	}
	return nil, errors.ErrInviteCodeTaken
}

// Join adds the caller to the promise behind an invite code. Joins are only
// allowed while the promise is active and the group is not yet full.
func (s *Service) Join(ctx context.Context, code string, userID uuid.UUID) (*domain.Promise, error) {
	promise, err := s.repo.FindByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if promise.Status != domain.PromiseStatusActive {
		return nil, errors.ErrPromiseNotActive
	}

	count, err := s.repo.CountParticipants(ctx, promise.ID)
	if err != nil {
		return nil, err
	}
	if count >= promise.NumberOfPeople {
		return nil, errors.ErrPromiseFull
	}

	if err := s.repo.AddParticipant(ctx, promise.ID, userID); err != nil {
		return nil, err
	}

	s.logger.Info("Participant joined promise", map[string]interface{}{
		"promise_id": promise.ID,
		"user_id":    userID,
	})
	return promise, nil
}

// List returns every promise the user participates in, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.Promise, error) {
	return s.repo.FindByUserID(ctx, userID)
}

// Member is a participant with display data attached.
type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Detail is a promise with its roster.
type Detail struct {
	Promise *domain.Promise `json:"promise"`
	Members []*Member       `json:"members"`
}

// Get returns a promise with its roster. Only participants may view it.
func (s *Service) Get(ctx context.Context, promiseID, userID uuid.UUID) (*Detail, error) {
	promise, err := s.repo.FindByID(ctx, promiseID)
	if err != nil {
		return nil, err
	}

	participants, err := s.repo.Participants(ctx, promiseID)
	if err != nil {
		return nil, err
	}
	var isMember bool
	ids := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
		if p.UserID == userID {
			isMember = true
		}
	}
	if !isMember {
		return nil, errors.ErrNotParticipant
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FirstName()
	}

	members := make([]*Member, 0, len(participants))
	for _, p := range participants {
		members = append(members, &Member{
			UserID:   p.UserID,
			Name:     names[p.UserID],
			JoinedAt: p.JoinedAt,
		})
	}
	return &Detail{Promise: promise, Members: members}, nil
}

func generateInviteCode() (string, error) {
	code := make([]byte, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "failed to generate invite code")
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
