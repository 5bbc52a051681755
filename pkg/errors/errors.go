// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthRequired       = errors.New("authentication required")

	// Promise errors
	ErrPromiseNotFound     = errors.New("promise not found")
	ErrPromiseNotActive    = errors.New("promise is not active")
	ErrPromiseFull         = errors.New("promise already has all participants")
	ErrInvalidAmount       = errors.New("amount per person must be positive")
	ErrInviteCodeNotFound  = errors.New("invite code not found")
	ErrInviteCodeTaken     = errors.New("invite code already in use")
	ErrAlreadyJoined       = errors.New("user already joined this promise")
	ErrNotParticipant      = errors.New("user is not a participant of this promise")
	ErrParticipantsMissing = errors.New("waiting for all participants to join")

	// Check-in errors
	ErrDuplicateCheckin   = errors.New("check-in already recorded for this date")
	ErrCheckinOutOfWindow = errors.New("check-in date is outside the promise window")

	// Settlement errors
	ErrSettlementNotFound     = errors.New("settlement not found")
	ErrSettlementsExist       = errors.New("settlements already generated for this promise")
	ErrUnauthorizedTransition = errors.New("actor is not a party to this settlement")
	ErrInvalidTransition      = errors.New("settlement status does not allow this transition")

	// Profile errors
	ErrInvalidUPIID = errors.New("invalid upi id")

	// Request errors
	ErrDuplicateRequest = errors.New("duplicate request")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
