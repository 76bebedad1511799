package handlers

import (
	"net/http"

	"github.com/aawaaz/incident-server/internal/models"
	"github.com/aawaaz/incident-server/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FeedHandler serves the public, anonymized feed
type FeedHandler struct {
	feed   *services.FeedService
	logger *zap.SugaredLogger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(fs *services.FeedService, logger *zap.SugaredLogger) *FeedHandler {
	return &FeedHandler{feed: fs, logger: logger}
}

// List handles GET /api/v1/feed
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.feed.Feed(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "load feed")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// Get handles GET /api/v1/reports/{id}
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.feed.Post(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "load report")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Categories handles GET /api/v1/categories
func (h *FeedHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.Categories)
}
