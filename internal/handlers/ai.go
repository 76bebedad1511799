package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aawaaz/incident-server/internal/models"
	"go.uber.org/zap"
)

// PostPipeline is the model-backed pipeline the AI endpoints expose.
type PostPipeline interface {
	Generate(ctx context.Context, raw models.RawReport) (*models.GeneratedPost, error)
	AssessRelevance(ctx context.Context, text string) (*models.Relevance, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*models.GeneratedPost, error)
}

// ReceiptIssuer signs the receipt that lets a transcribed post skip the
// relevance gate on submission.
type ReceiptIssuer interface {
	Issue(authorID, content string) (string, error)
}

// AIHandler handles post generation, relevance and transcription endpoints
type AIHandler struct {
	pipeline      PostPipeline
	receipts      ReceiptIssuer
	maxAudioBytes int64
	logger        *zap.SugaredLogger
}

// NewAIHandler creates a new AI handler
func NewAIHandler(p PostPipeline, receipts ReceiptIssuer, maxAudioBytes int64, logger *zap.SugaredLogger) *AIHandler {
	return &AIHandler{pipeline: p, receipts: receipts, maxAudioBytes: maxAudioBytes, logger: logger}
}

// Generate handles POST /api/v1/ai/generate
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.RawReport
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Description) == "" {
		respondError(w, http.StatusBadRequest, "title or description is required")
		return
	}

	post, err := h.pipeline.Generate(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "generate post")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Relevance handles POST /api/v1/ai/relevance
func (h *AIHandler) Relevance(w http.ResponseWriter, r *http.Request) {
	var req models.RelevanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	verdict, err := h.pipeline.AssessRelevance(r.Context(), req.Text)
	if err != nil {
		respondServiceError(w, h.logger, err, "assess relevance")
		return
	}
	respondJSON(w, http.StatusOK, verdict)
}

// Transcribe handles POST /api/v1/ai/transcribe with a multipart "audio" part.
// Spooled parts are removed on every exit path.
func (h *AIHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudioBytes+maxJSONBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Audio file is too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Expected multipart form with an audio file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No audio file uploaded")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, h.maxAudioBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read audio file")
		return
	}
	if int64(len(audio)) > h.maxAudioBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "Audio file is too large")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(audio)
	}
	if !strings.HasPrefix(mimeType, "audio/") && mimeType != "video/webm" {
		respondError(w, http.StatusUnsupportedMediaType, "Unsupported audio type "+mimeType)
		return
	}

	post, err := h.pipeline.Transcribe(r.Context(), audio, mimeType)
	if err != nil {
		respondServiceError(w, h.logger, err, "transcribe audio")
		return
	}

	receipt, err := h.receipts.Issue(who.AuthorID, post.Content)
	if err != nil {
		h.logger.Errorw("Failed to issue transcript receipt", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to transcribe audio")
		return
	}

	h.logger.Infow("Audio transcribed", "bytes", len(audio), "mime_type", mimeType)
	respondJSON(w, http.StatusOK, models.Transcription{GeneratedPost: *post, Receipt: receipt})
}
