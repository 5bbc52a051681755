// Package domain defines the core entities of the promise settlement engine.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoundingTolerance is the amount below which balances and transfers are
// treated as settled. All money in the system is rounded to 2 decimals.
var RoundingTolerance = decimal.New(1, -2) // 0.01

// Promise is a group commitment with a stake, duration, and participant set.
type Promise struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Title           string          `json:"title" db:"title"`
	CreatorID       uuid.UUID       `json:"creator_id" db:"creator_id"`
	DurationDays    int             `json:"duration_days" db:"duration_days"`
	NumberOfPeople  int             `json:"number_of_people" db:"number_of_people"`
	AmountPerPerson decimal.Decimal `json:"amount_per_person" db:"amount_per_person"`
	InviteCode      string          `json:"invite_code" db:"invite_code"`
	Status          PromiseStatus   `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// DailyStake is the amount a participant risks on a single day.
func (p *Promise) DailyStake() decimal.Decimal {
	return p.AmountPerPerson.Div(decimal.NewFromInt(int64(p.DurationDays))).Round(2)
}

type PromiseStatus string

const (
	PromiseStatusActive    PromiseStatus = "active"
	PromiseStatusCompleted PromiseStatus = "completed"
	PromiseStatusFailed    PromiseStatus = "failed"
)

// Participant ties a user to a promise. Membership is permanent for the
// promise's lifetime; there is no leave operation.
type Participant struct {
	PromiseID uuid.UUID `json:"promise_id" db:"promise_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}

// DailyCheckin is one participant's self-report for one calendar date.
// The (promise_id, user_id, date) triple is unique; a second submission for
// the same date must be rejected, never overwritten.
type DailyCheckin struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	PromiseID uuid.UUID     `json:"promise_id" db:"promise_id"`
	UserID    uuid.UUID     `json:"user_id" db:"user_id"`
	Date      string        `json:"date" db:"date"` // local calendar date, YYYY-MM-DD
	Status    CheckinStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

type CheckinStatus string

const (
	CheckinStatusDone   CheckinStatus = "done"
	CheckinStatusFailed CheckinStatus = "failed"
)

// LedgerEntry is an immutable record of a financial event within a promise.
// Amounts are stored as positive magnitudes; the entry type carries the sign
// (penalty debits the user, winnings and refund credit the user).
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	PromiseID   uuid.UUID       `json:"promise_id" db:"promise_id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Type        LedgerEntryType `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type LedgerEntryType string

const (
	LedgerEntryPenalty  LedgerEntryType = "penalty"
	LedgerEntryWinnings LedgerEntryType = "winnings"
	LedgerEntryRefund   LedgerEntryType = "refund"
)

// Settlement is a computed pairwise transfer instruction (debtor -> creditor)
// derived from net ledger balances. Settlements are generated exactly once per
// promise and then only their status changes.
type Settlement struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	PromiseID  uuid.UUID        `json:"promise_id" db:"promise_id"`
	FromUserID uuid.UUID        `json:"from_user_id" db:"from_user_id"`
	ToUserID   uuid.UUID        `json:"to_user_id" db:"to_user_id"`
	Amount     decimal.Decimal  `json:"amount" db:"amount"`
	Status     SettlementStatus `json:"status" db:"status"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "pending"
	SettlementStatusPaid       SettlementStatus = "paid" // legacy synonym of marked_paid
	SettlementStatusMarkedPaid SettlementStatus = "marked_paid"
	SettlementStatusConfirmed  SettlementStatus = "confirmed"
	SettlementStatusRejected   SettlementStatus = "rejected"
)

// Payable reports whether the debtor may (re-)declare payment on a settlement
// in this status. Rejection keeps its status for history but re-opens the debt.
func (s SettlementStatus) Payable() bool {
	return s == SettlementStatusPending || s == SettlementStatusRejected
}

// Declared reports whether the debtor has declared payment, i.e. the creditor
// may now confirm or reject.
func (s SettlementStatus) Declared() bool {
	return s == SettlementStatusMarkedPaid || s == SettlementStatusPaid
}

// User is an account holder. UPIID is an opaque payout identifier
// (name@bank-handle) used only to build payment-app deep links.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	UPIID        *string   `json:"upi_id,omitempty" db:"upi_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// FirstName returns the leading word of the full name, the way the app
// addresses users in shared views.
func (u *User) FirstName() string {
	for i := 0; i < len(u.FullName); i++ {
		if u.FullName[i] == ' ' {
			return u.FullName[:i]
		}
	}
	return u.FullName
}
