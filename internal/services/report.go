// Package services contains business logic layers.
// Services are called by handlers and talk to the store and the AI pipeline.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/metrics"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/aawaaz/incident-server/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RelevanceAssessor decides whether free text describes a reportable incident.
type RelevanceAssessor interface {
	AssessRelevance(ctx context.Context, text string) (*models.Relevance, error)
}

// MediaVerifier checks that referenced media objects were actually uploaded.
type MediaVerifier interface {
	Verify(ctx context.Context, media []models.Media) error
}

// Notifier delivers the authority notification for an escalated report.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// ReportService handles report submission, escalation and voting.
type ReportService struct {
	store     store.Store
	relevance RelevanceAssessor
	media     MediaVerifier
	notifier  Notifier
	receipts  *TranscriptReceipts
	activity  *ActivityLogService
	authority string
	logger    *zap.SugaredLogger

	// escalations collapses concurrent escalations of one report into a
	// single notification.
	escalations singleflight.Group
}

// ReportDeps groups the collaborators of ReportService. Relevance may be nil,
// in which case no submission is classified. Without Receipts every
// submission is classified, audio included.
type ReportDeps struct {
	Store     store.Store
	Relevance RelevanceAssessor
	Media     MediaVerifier
	Notifier  Notifier
	Receipts  *TranscriptReceipts
	Activity  *ActivityLogService
	// Authority is the notification destination for escalations.
	Authority string
}

// NewReportService creates a new report service
func NewReportService(deps ReportDeps, logger *zap.SugaredLogger) *ReportService {
	return &ReportService{
		store:     deps.Store,
		relevance: deps.Relevance,
		media:     deps.Media,
		notifier:  deps.Notifier,
		receipts:  deps.Receipts,
		activity:  deps.Activity,
		authority: deps.Authority,
		logger:    logger,
	}
}

func validateSubmission(who models.Identity, sub *models.ReportSubmission) error {
	var missing []string
	if sub.Title == "" {
		missing = append(missing, "title")
	}
	if sub.Content == "" {
		missing = append(missing, "content")
	}
	if sub.Category == "" {
		missing = append(missing, "category")
	}
	if sub.Location == "" {
		missing = append(missing, "location")
	}
	if who.AuthorID == "" {
		missing = append(missing, "authorId")
	}
	if len(missing) > 0 {
		return apperr.New(apperr.ErrValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}

	if !sub.Category.Valid() {
		return apperr.New(apperr.ErrValidation, "unknown category %q", sub.Category)
	}
	switch sub.Source {
	case models.SourceText, models.SourceAudio:
	default:
		return apperr.New(apperr.ErrValidation, "unknown source %q", sub.Source)
	}
	for i, m := range sub.Media {
		if m.Reference == "" {
			return apperr.New(apperr.ErrValidation, "media[%d]: reference is required", i)
		}
		if m.Kind != models.MediaImage && m.Kind != models.MediaVideo {
			return apperr.New(apperr.ErrValidation, "media[%d]: unknown kind %q", i, m.Kind)
		}
	}
	return nil
}

// needsRelevance reports whether sub must pass the relevance gate. Only audio
// submissions whose content carries a valid transcript receipt are exempt.
func (s *ReportService) needsRelevance(who models.Identity, sub *models.ReportSubmission) bool {
	if s.relevance == nil {
		return false
	}
	if sub.Source != models.SourceAudio {
		return true
	}
	if s.receipts == nil {
		return true
	}
	if err := s.receipts.Verify(sub.Receipt, who.AuthorID, sub.Content); err != nil {
		s.logger.Infow("Audio submission not attested; classifying", "error", err)
		return true
	}
	return false
}

// Create validates and stores a new report filed by who. Submissions must
// pass the relevance gate before anything is written unless their content
// is attested as transcribed audio.
func (s *ReportService) Create(ctx context.Context, who models.Identity, sub *models.ReportSubmission) (*models.Report, error) {
	sub.Title = strings.TrimSpace(sub.Title)
	sub.Content = strings.TrimSpace(sub.Content)
	sub.Location = strings.TrimSpace(sub.Location)
	sub.Category = models.Category(strings.TrimSpace(string(sub.Category)))
	if sub.Source == "" {
		sub.Source = models.SourceText
	}

	if err := validateSubmission(who, sub); err != nil {
		return nil, err
	}

	if s.needsRelevance(who, sub) {
		verdict, err := s.relevance.AssessRelevance(ctx, sub.Title+"\n\n"+sub.Content)
		if err != nil {
			return nil, err
		}
		if !verdict.IsRelevant {
			s.logger.Infow("Report rejected as irrelevant", "category", sub.Category)
			return nil, apperr.New(apperr.ErrIrrelevant, "the report does not describe a reportable incident")
		}
	}

	if len(sub.Media) > 0 && s.media != nil {
		if err := s.media.Verify(ctx, sub.Media); err != nil {
			return nil, err
		}
	}

	report := &models.Report{
		ID:                uuid.NewString(),
		Title:             sub.Title,
		Content:           sub.Content,
		Category:          sub.Category,
		Location:          sub.Location,
		AuthorID:          who.AuthorID,
		AuthorDisplayName: who.DisplayName,
		AuthorContact:     who.Email,
		Media:             append([]models.Media{}, sub.Media...),
		Status:            models.StatusSubmitted,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	if err := s.activity.Log(ctx, report.ID, models.ActivitySubmitted, "Report submitted"); err != nil {
		s.logger.Warnw("Failed to log submission activity", "report_id", report.ID, "error", err)
	}

	s.logger.Infow("Report created",
		"report_id", report.ID,
		"category", report.Category,
		"source", sub.Source,
		"media", len(report.Media),
	)
	return report, nil
}

// ListMine returns the caller's own reports, newest first.
func (s *ReportService) ListMine(ctx context.Context, who models.Identity) ([]models.Report, error) {
	if who.AuthorID == "" {
		return nil, apperr.New(apperr.ErrValidation, "author is required")
	}
	return s.store.ListReportsByAuthor(ctx, who.AuthorID, 0)
}

func (s *ReportService) owned(ctx context.Context, who models.Identity, id string) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if who.AuthorID == "" || r.AuthorID != who.AuthorID {
		return nil, apperr.New(apperr.ErrForbidden, "report %s belongs to another author", id)
	}
	return r, nil
}

// SetStatus applies the one-way submitted -> escalated transition. The
// authority is notified first; the status only changes once delivery is
// confirmed. Re-escalating is a no-op and sends nothing.
func (s *ReportService) SetStatus(ctx context.Context, who models.Identity, id string, status models.Status) (*models.Report, error) {
	if status != models.StatusEscalated {
		return nil, apperr.New(apperr.ErrValidation, "status can only be set to %q", models.StatusEscalated)
	}

	r, err := s.owned(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if r.Status == models.StatusEscalated {
		return r, nil
	}

	v, err, _ := s.escalations.Do(id, func() (any, error) {
		return s.escalate(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	escalated := *v.(*models.Report)
	return &escalated, nil
}

// escalate notifies and commits. It re-reads the report so a caller that
// arrives after another escalation finished sends nothing.
func (s *ReportService) escalate(ctx context.Context, id string) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == models.StatusEscalated {
		return r, nil
	}

	if err := s.notifier.Notify(ctx, s.notification(r)); err != nil {
		s.logger.Errorw("Authority notification failed", "report_id", id, "error", err)
		return nil, apperr.Wrap(apperr.ErrNotification, err)
	}

	escalated, err := s.store.MarkEscalated(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.activity.Log(ctx, id, models.ActivityEscalated, "Report escalated to authorities"); err != nil {
		s.logger.Warnw("Failed to log escalation activity", "report_id", id, "error", err)
	}
	s.logger.Infow("Report escalated", "report_id", id)
	return escalated, nil
}

// Escalate is SetStatus(escalated).
func (s *ReportService) Escalate(ctx context.Context, who models.Identity, id string) (*models.Report, error) {
	return s.SetStatus(ctx, who, id, models.StatusEscalated)
}

func (s *ReportService) notification(r *models.Report) models.Notification {
	var body strings.Builder
	fmt.Fprintf(&body, "Title: %s\n", r.Title)
	fmt.Fprintf(&body, "Category: %s\n", r.Category)
	fmt.Fprintf(&body, "Location: %s\n", r.Location)
	fmt.Fprintf(&body, "Reported: %s\n\n", r.CreatedAt.Format(time.RFC1123))
	body.WriteString(r.Content)
	if r.AuthorContact != "" {
		fmt.Fprintf(&body, "\n\nReporter contact: %s", r.AuthorContact)
	}
	for _, m := range r.Media {
		fmt.Fprintf(&body, "\nAttached %s: %s", m.Kind, m.Reference)
	}

	return models.Notification{
		Destination: s.authority,
		Subject:     "Incident report: " + r.Title,
		Body:        body.String(),
		ReportID:    r.ID,
	}
}

// Vote adds one vote in dir and returns the new counters.
func (s *ReportService) Vote(ctx context.Context, id string, dir models.VoteDirection) (*models.VoteResult, error) {
	r, err := s.store.IncrementVote(ctx, id, dir)
	if err != nil {
		return nil, err
	}
	metrics.VotesTotal.WithLabelValues(string(dir)).Inc()
	return &models.VoteResult{ID: r.ID, Upvotes: r.Upvotes, Downvotes: r.Downvotes}, nil
}

func (s *ReportService) Upvote(ctx context.Context, id string) (*models.VoteResult, error) {
	return s.Vote(ctx, id, models.VoteUp)
}

func (s *ReportService) Downvote(ctx context.Context, id string) (*models.VoteResult, error) {
	return s.Vote(ctx, id, models.VoteDown)
}

// Activity returns the lifecycle log of a report to its author.
func (s *ReportService) Activity(ctx context.Context, who models.Identity, id string) ([]models.ActivityLog, error) {
	if _, err := s.owned(ctx, who, id); err != nil {
		return nil, err
	}
	return s.activity.FetchByReport(ctx, id)
}
