package services

import (
	"context"

	"github.com/aawaaz/incident-server/internal/models"
	"github.com/aawaaz/incident-server/internal/store"
	"go.uber.org/zap"
)

// ScamWindow is how many of an author's latest reports feed the scam signal.
const ScamWindow = 5

// IsScammer flags an author whose recent reports collected more than three
// times as many downvotes as upvotes. Advisory only.
func IsScammer(recent []models.Report) bool {
	var up, down int64
	for _, r := range recent {
		up += r.Upvotes
		down += r.Downvotes
	}
	return down > 3*up
}

// FeedService builds the public, anonymized view of reports.
type FeedService struct {
	store      store.Store
	pseudonyms *Pseudonyms
	logger     *zap.SugaredLogger
}

// NewFeedService creates a new feed service
func NewFeedService(st store.Store, pseudonyms *Pseudonyms, logger *zap.SugaredLogger) *FeedService {
	return &FeedService{store: st, pseudonyms: pseudonyms, logger: logger}
}

// Feed returns every report as a FeedPost, newest first.
func (s *FeedService) Feed(ctx context.Context) ([]models.FeedPost, error) {
	reports, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	return s.ToFeedView(ctx, reports)
}

// Post returns a single report as a FeedPost.
func (s *FeedService) Post(ctx context.Context, id string) (*models.FeedPost, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.ToFeedView(ctx, []models.Report{*r})
	if err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// ToFeedView projects reports into FeedPosts. It never mutates reports and
// looks up each author's recent history at most once per call.
func (s *FeedService) ToFeedView(ctx context.Context, reports []models.Report) ([]models.FeedPost, error) {
	scam := make(map[string]bool)
	posts := make([]models.FeedPost, 0, len(reports))

	for _, r := range reports {
		flagged, seen := scam[r.AuthorID]
		if !seen {
			recent, err := s.store.ListReportsByAuthor(ctx, r.AuthorID, ScamWindow)
			if err != nil {
				return nil, err
			}
			flagged = IsScammer(recent)
			scam[r.AuthorID] = flagged
		}

		media := append([]models.Media{}, r.Media...)
		posts = append(posts, models.FeedPost{
			ID:                r.ID,
			Title:             r.Title,
			Content:           r.Content,
			Category:          r.Category,
			Location:          r.Location,
			Media:             media,
			Upvotes:           r.Upvotes,
			Downvotes:         r.Downvotes,
			Status:            r.Status,
			CreatedAt:         r.CreatedAt,
			AuthorDisplayName: s.pseudonyms.For(ctx, r.AuthorID),
			IsScammer:         flagged,
		})
	}

	s.logger.Debugw("Feed rendered", "posts", len(posts), "authors", len(scam))
	return posts, nil
}
