package handler

import (
	"net/http"
	"time"

	"payandpromise/internal/auth"
	"payandpromise/internal/middleware"
	"payandpromise/pkg/validator"
)

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	service   *auth.Service
	revoker   *middleware.RedisTokenBlacklist
	jwtExpiry time.Duration
	validator *validator.Validator
	logger    Logger
}

// NewAuthHandler creates a new AuthHandler. revoker may be nil when logout
// revocation is not configured.
func NewAuthHandler(service *auth.Service, revoker *middleware.RedisTokenBlacklist, jwtExpiry time.Duration, val *validator.Validator, log Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		revoker:   revoker,
		jwtExpiry: jwtExpiry,
		validator: val,
		logger:    log,
	}
}

// Register handles user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	req.FullName = validator.Sanitize(req.FullName)

	response, err := h.service.Register(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Registration failed")
		return
	}
	respondJSON(w, http.StatusCreated, response)
}

// Login authenticates a user and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	response, err := h.service.Login(r.Context(), &req)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	respondJSON(w, http.StatusOK, response)
}

// Logout revokes the caller's bearer token for the rest of its lifetime.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization header required")
		return
	}

	if h.revoker != nil {
		if err := h.revoker.Blacklist(r.Context(), token, h.jwtExpiry); err != nil {
			h.logger.Error("Failed to revoke token", map[string]interface{}{"error": err.Error()})
			respondError(w, http.StatusInternalServerError, "Logout failed")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Profile returns the authenticated user's own record.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateUPIID stores the caller's payout identifier.
func (h *AuthHandler) UpdateUPIID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		UPIID string `json:"upi_id" validate:"required,upi_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	user, err := h.service.SetUPIID(r.Context(), userID, req.UPIID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update UPI ID")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
