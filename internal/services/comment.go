package services

import (
	"context"
	"strings"
	"time"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/aawaaz/incident-server/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxCommentLength bounds comment text in runes.
const MaxCommentLength = 2000

// CommentService appends comments and serves them under author pseudonyms.
type CommentService struct {
	store      store.Store
	pseudonyms *Pseudonyms
	activity   *ActivityLogService
	logger     *zap.SugaredLogger
}

// NewCommentService creates a new comment service
func NewCommentService(st store.Store, pseudonyms *Pseudonyms, activity *ActivityLogService, logger *zap.SugaredLogger) *CommentService {
	return &CommentService{store: st, pseudonyms: pseudonyms, activity: activity, logger: logger}
}

// Add appends a comment by who to reportID.
func (s *CommentService) Add(ctx context.Context, who models.Identity, reportID string, sub *models.CommentSubmission) (*models.CommentView, error) {
	text := strings.TrimSpace(sub.Text)
	if text == "" {
		return nil, apperr.New(apperr.ErrValidation, "comment text is required")
	}
	if len([]rune(text)) > MaxCommentLength {
		return nil, apperr.New(apperr.ErrValidation, "comment exceeds %d characters", MaxCommentLength)
	}
	if who.AuthorID == "" {
		return nil, apperr.New(apperr.ErrValidation, "author is required")
	}

	c := &models.Comment{
		ID:                uuid.NewString(),
		ReportID:          reportID,
		AuthorID:          who.AuthorID,
		AuthorDisplayName: who.DisplayName,
		AuthorContact:     who.Email,
		Text:              text,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.AddComment(ctx, c); err != nil {
		return nil, err
	}

	if err := s.activity.Log(ctx, reportID, models.ActivityCommented, "New comment added"); err != nil {
		s.logger.Warnw("Failed to log comment activity", "report_id", reportID, "error", err)
	}

	view := s.view(ctx, c)
	return &view, nil
}

// List returns a report's comments, oldest first. The report must exist.
func (s *CommentService) List(ctx context.Context, reportID string) ([]models.CommentView, error) {
	if _, err := s.store.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, reportID)
	if err != nil {
		return nil, err
	}

	views := make([]models.CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, s.view(ctx, &comments[i]))
	}
	return views, nil
}

func (s *CommentService) view(ctx context.Context, c *models.Comment) models.CommentView {
	return models.CommentView{
		ID:                c.ID,
		ReportID:          c.ReportID,
		AuthorDisplayName: s.pseudonyms.For(ctx, c.AuthorID),
		Text:              c.Text,
		CreatedAt:         c.CreatedAt,
	}
}
