package handler

import (
	"net/http"
	"time"

	"payandpromise/internal/checkin"
	"payandpromise/internal/domain"
	"payandpromise/internal/middleware"
	"payandpromise/pkg/validator"
)

type CheckinHandler struct {
	service   *checkin.Service
	validator *validator.Validator
	logger    Logger
}

func NewCheckinHandler(service *checkin.Service, val *validator.Validator, log Logger) *CheckinHandler {
	return &CheckinHandler{service: service, validator: val, logger: log}
}

// Submit records the caller's check-in for one date. The date is the client's
// local calendar date; when omitted it defaults to the server's date.
func (h *CheckinHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	promiseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
		Status string `json:"status" validate:"required,oneof=done failed"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}
	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	}

	result, err := h.service.Submit(r.Context(), promiseID, userID, req.Date, domain.CheckinStatus(req.Status))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to record check-in")
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// History returns the caller's check-ins for one promise.
func (h *CheckinHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	promiseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	checkins, err := h.service.History(r.Context(), promiseID, userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load check-ins")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"checkins": checkins})
}
