package handler

import (
	"net/http"

	"payandpromise/internal/ledger"
	"payandpromise/internal/middleware"
)

type LedgerHandler struct {
	service *ledger.Service
	logger  Logger
}

func NewLedgerHandler(service *ledger.Service, log Logger) *LedgerHandler {
	return &LedgerHandler{service: service, logger: log}
}

// History returns the caller's full transaction history across promises.
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.service.History(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load transaction history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": items})
}

// PromiseSummary returns the caller's winnings/penalties/refunds totals for
// one promise.
func (h *LedgerHandler) PromiseSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	promiseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.service.PromiseSummary(r.Context(), promiseID, userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load ledger summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
