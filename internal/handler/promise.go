package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"payandpromise/internal/middleware"
	"payandpromise/internal/promise"
	"payandpromise/pkg/validator"
)

type PromiseHandler struct {
	service   *promise.Service
	validator *validator.Validator
	logger    Logger
}

func NewPromiseHandler(service *promise.Service, val *validator.Validator, log Logger) *PromiseHandler {
	return &PromiseHandler{service: service, validator: val, logger: log}
}

// Create starts a new promise with the caller as first participant.
func (h *PromiseHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req promise.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	req.Title = validator.Sanitize(req.Title)

	created, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create promise")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Join adds the caller to the promise behind an invite code.
func (h *PromiseHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		InviteCode string `json:"invite_code" validate:"required,len=6"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	joined, err := h.service.Join(r.Context(), req.InviteCode, userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to join promise")
		return
	}
	respondJSON(w, http.StatusOK, joined)
}

// List returns the caller's promises, newest first.
func (h *PromiseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	promises, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list promises")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"promises": promises})
}

// Get returns one promise with its roster.
func (h *PromiseHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	promiseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), promiseID, userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load promise")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// pathUUID parses a UUID path variable, writing the error response on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
