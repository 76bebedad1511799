package ai

import (
	"context"
	"time"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/metrics"
	"github.com/aawaaz/incident-server/internal/models"
	"go.uber.org/zap"
)

// Service runs the prompt-then-parse pipeline. Calls are single-shot; retry
// policy belongs to the caller.
type Service struct {
	model   Model
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewService creates a pipeline over model. A zero timeout leaves the caller's
// context as the only bound.
func NewService(model Model, timeout time.Duration, logger *zap.SugaredLogger) *Service {
	return &Service{model: model, timeout: timeout, logger: logger}
}

func (s *Service) call(ctx context.Context, op, prompt string, attachment *InlineData) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.model.GenerateText(ctx, prompt, attachment)
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(op, "transport_error").Inc()
		s.logger.Errorw("Model call failed",
			"operation", op,
			"error", err,
			"latency", time.Since(start),
		)
		return "", err
	}
	return text, nil
}

func (s *Service) parseFailed(op, raw string, err error) {
	metrics.ModelCallsTotal.WithLabelValues(op, "parse_error").Inc()
	s.logger.Warnw("Model output rejected",
		"operation", op,
		"error", err,
		"raw_length", len(raw),
	)
}

// Generate rewrites a raw report into a GeneratedPost.
func (s *Service) Generate(ctx context.Context, raw models.RawReport) (*models.GeneratedPost, error) {
	const op = "generate"

	text, err := s.call(ctx, op, generatePrompt(raw), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrGeneration, err)
	}

	post, err := ParseGeneratedPost(text)
	if err != nil {
		s.parseFailed(op, text, err)
		return nil, apperr.Wrap(apperr.ErrGeneration, err)
	}

	metrics.ModelCallsTotal.WithLabelValues(op, "ok").Inc()
	return post, nil
}

// AssessRelevance classifies whether text is an in-domain incident report.
func (s *Service) AssessRelevance(ctx context.Context, text string) (*models.Relevance, error) {
	const op = "relevance"

	out, err := s.call(ctx, op, relevancePrompt(text), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrClassification, err)
	}

	verdict, err := ParseRelevance(out)
	if err != nil {
		s.parseFailed(op, out, err)
		return nil, apperr.Wrap(apperr.ErrClassification, err)
	}

	metrics.ModelCallsTotal.WithLabelValues(op, "ok").Inc()
	return verdict, nil
}

// Transcribe sends audio as an inline attachment and asks for the transcript
// already restructured into a GeneratedPost.
func (s *Service) Transcribe(ctx context.Context, audio []byte, mimeType string) (*models.GeneratedPost, error) {
	const op = "transcribe"

	if len(audio) == 0 {
		return nil, apperr.New(apperr.ErrValidation, "audio is empty")
	}

	text, err := s.call(ctx, op, transcribePrompt(), &InlineData{MimeType: mimeType, Data: audio})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTranscription, err)
	}

	post, err := ParseGeneratedPost(text)
	if err != nil {
		s.parseFailed(op, text, err)
		return nil, apperr.Wrap(apperr.ErrTranscription, err)
	}

	metrics.ModelCallsTotal.WithLabelValues(op, "ok").Inc()
	return post, nil
}
