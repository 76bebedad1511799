package handlers

import (
	"net/http"

	"github.com/aawaaz/incident-server/internal/models"
	"github.com/aawaaz/incident-server/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportHandler handles report submission, escalation and voting endpoints
type ReportHandler struct {
	reports *services.ReportService
	logger  *zap.SugaredLogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(rs *services.ReportService, logger *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{reports: rs, logger: logger}
}

// Submit handles POST /api/v1/reports
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}
	var req models.ReportSubmission
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.reports.Create(r.Context(), who, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "submit report")
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

// Mine handles GET /api/v1/reports/mine
func (h *ReportHandler) Mine(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}
	reports, err := h.reports.ListMine(r.Context(), who)
	if err != nil {
		respondServiceError(w, h.logger, err, "list reports")
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

// Escalate handles POST /api/v1/reports/{id}/escalate
func (h *ReportHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}
	report, err := h.reports.Escalate(r.Context(), who, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "notify authorities")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":      report.ID,
		"status":  report.Status,
		"message": "Report sent to authorities",
	})
}

// Upvote handles POST /api/v1/reports/{id}/upvote
func (h *ReportHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.VoteUp)
}

// Downvote handles POST /api/v1/reports/{id}/downvote
func (h *ReportHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.VoteDown)
}

func (h *ReportHandler) vote(w http.ResponseWriter, r *http.Request, dir models.VoteDirection) {
	res, err := h.reports.Vote(r.Context(), chi.URLParam(r, "id"), dir)
	if err != nil {
		respondServiceError(w, h.logger, err, "record vote")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
