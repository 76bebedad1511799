// Package handlers contains HTTP request handlers for the incident API.
// Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/middleware"
	"github.com/aawaaz/incident-server/internal/models"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps an error kind to its status code. Client-side kinds
// echo the error text; upstream and storage failures are logged and answered
// with a generic message.
func respondServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, err error, action string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrIrrelevant):
		respondError(w, http.StatusUnprocessableEntity, "Your report does not appear to describe an incident. Please revise it and try again.")
	case errors.Is(err, apperr.ErrForbidden):
		respondError(w, http.StatusForbidden, "You can only manage your own reports")
	case errors.Is(err, apperr.ErrNotFound):
		respondError(w, http.StatusNotFound, "Report not found")
	case errors.Is(err, apperr.ErrGeneration),
		errors.Is(err, apperr.ErrClassification),
		errors.Is(err, apperr.ErrTranscription),
		errors.Is(err, apperr.ErrNotification):
		logger.Errorw("Upstream failure", "action", action, "error", err)
		respondError(w, http.StatusBadGateway, "Failed to "+action+": upstream service unavailable")
	case errors.Is(err, apperr.ErrStorage):
		logger.Errorw("Storage failure", "action", action, "error", err)
		respondError(w, http.StatusServiceUnavailable, "Failed to "+action)
	default:
		logger.Errorw("Unexpected failure", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	who, ok := middleware.IdentityFrom(r.Context())
	if !ok || who.AuthorID == "" {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return models.Identity{}, false
	}
	return who, true
}
