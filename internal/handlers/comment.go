package handlers

import (
	"net/http"

	"github.com/aawaaz/incident-server/internal/models"
	"github.com/aawaaz/incident-server/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CommentHandler handles report comment endpoints
type CommentHandler struct {
	comments *services.CommentService
	logger   *zap.SugaredLogger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(cs *services.CommentService, logger *zap.SugaredLogger) *CommentHandler {
	return &CommentHandler{comments: cs, logger: logger}
}

// List handles GET /api/v1/reports/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.comments.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "load comments")
		return
	}
	respondJSON(w, http.StatusOK, views)
}

// Add handles POST /api/v1/reports/{id}/comments
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}
	var req models.CommentSubmission
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.comments.Add(r.Context(), who, chi.URLParam(r, "id"), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "add comment")
		return
	}
	respondJSON(w, http.StatusCreated, view)
}
