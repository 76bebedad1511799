package handlers

import (
	"net/http"

	"github.com/aawaaz/incident-server/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ActivityHandler serves a report's lifecycle log to its author
type ActivityHandler struct {
	reports *services.ReportService
	logger  *zap.SugaredLogger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(rs *services.ReportService, logger *zap.SugaredLogger) *ActivityHandler {
	return &ActivityHandler{reports: rs, logger: logger}
}

// ByReport handles GET /api/v1/reports/{id}/activity
func (h *ActivityHandler) ByReport(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}
	logs, err := h.reports.Activity(r.Context(), who, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "fetch activity")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}
