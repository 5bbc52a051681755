package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"payandpromise/internal/domain"
	"payandpromise/internal/middleware"
	"payandpromise/internal/settlement"
)

type SettlementHandler struct {
	service *settlement.Service
	logger  Logger
}

func NewSettlementHandler(service *settlement.Service, log Logger) *SettlementHandler {
	return &SettlementHandler{service: service, logger: log}
}

// MarkPaid lets the debtor declare an out-of-band payment.
func (h *SettlementHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkPaid)
}

// Confirm lets the creditor acknowledge receipt.
func (h *SettlementHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Confirm)
}

// Reject lets the creditor dispute receipt, reopening the debt.
func (h *SettlementHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *SettlementHandler) transition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, settlementID, actorID uuid.UUID) (*domain.Settlement, error)) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	settlementID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	updated, err := op(r.Context(), settlementID, userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update settlement")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
