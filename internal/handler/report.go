package handler

import (
	"net/http"

	"payandpromise/internal/middleware"
	"payandpromise/internal/report"
)

type ReportHandler struct {
	service *report.Service
	logger  Logger
}

func NewReportHandler(service *report.Service, log Logger) *ReportHandler {
	return &ReportHandler{service: service, logger: log}
}

// View returns the promise's financial report as seen by the caller. Viewing
// is also what triggers completion, wash refunds, and settlement generation.
func (h *ReportHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	promiseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.service.View(r.Context(), promiseID, userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build report")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
