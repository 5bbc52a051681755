// Package handler provides HTTP handlers for the promise settlement service.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"payandpromise/pkg/errors"
)

// Logger is the logging surface handlers need.
type Logger interface {
	Info(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Debug(message string, fields map[string]interface{})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidationErrors(w http.ResponseWriter, errs map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}

// decodeJSON reads a bounded, strict JSON body into dst. It writes the error
// response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// statusForError maps service sentinels onto HTTP status codes. Unknown
// errors map to 500 and should be logged by the caller.
func statusForError(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrUserNotFound),
		stderrors.Is(err, errors.ErrPromiseNotFound),
		stderrors.Is(err, errors.ErrInviteCodeNotFound),
		stderrors.Is(err, errors.ErrSettlementNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrAuthRequired),
		stderrors.Is(err, errors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrNotParticipant),
		stderrors.Is(err, errors.ErrUnauthorizedTransition):
		return http.StatusForbidden
	case stderrors.Is(err, errors.ErrUserAlreadyExists),
		stderrors.Is(err, errors.ErrAlreadyJoined),
		stderrors.Is(err, errors.ErrPromiseFull),
		stderrors.Is(err, errors.ErrPromiseNotActive),
		stderrors.Is(err, errors.ErrParticipantsMissing),
		stderrors.Is(err, errors.ErrDuplicateCheckin),
		stderrors.Is(err, errors.ErrInvalidTransition),
		stderrors.Is(err, errors.ErrDuplicateRequest):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrInvalidUPIID),
		stderrors.Is(err, errors.ErrInvalidAmount),
		stderrors.Is(err, errors.ErrCheckinOutOfWindow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes the mapped status for err, hiding internals
// behind fallback when the error is unexpected.
func respondServiceError(w http.ResponseWriter, log Logger, err error, fallback string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Error(fallback, map[string]interface{}{"error": err.Error()})
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}
