package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/fieldcrypt"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *fieldcrypt.Codec {
	t.Helper()
	c, err := fieldcrypt.NewCodec("store-test-secret", nil)
	require.NoError(t, err)
	return c
}

func sampleReport(id, author string, at time.Time) *models.Report {
	return &models.Report{
		ID:                id,
		Title:             "Bag stolen near the market",
		Content:           "A bag was stolen near the market at 6pm.",
		Category:          models.CategoryPublicSafety,
		Location:          "Market St",
		AuthorID:          author,
		AuthorDisplayName: "Jordan",
		AuthorContact:     "jordan@example.com",
		Status:            models.StatusSubmitted,
		CreatedAt:         at,
	}
}

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(newTestCodec(t))

	r := sampleReport("r1", "u1", time.Now())
	r.Media = []models.Media{{Reference: "uploads/a.jpg", Kind: models.MediaImage}}
	require.NoError(t, m.CreateReport(ctx, r))

	got, err := m.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r.Title, got.Title)
	assert.Equal(t, r.Content, got.Content)
	assert.Equal(t, r.Location, got.Location)
	assert.Equal(t, r.AuthorContact, got.AuthorContact)
	assert.Equal(t, r.Media, got.Media)
	assert.Equal(t, models.StatusSubmitted, got.Status)

	_, err = m.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, m.CreateReport(ctx, r), apperr.ErrStorage)
}

func TestMemory_SealedAtRest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(newTestCodec(t))

	r := sampleReport("r1", "u1", time.Now())
	require.NoError(t, m.CreateReport(ctx, r))

	stored := m.reports["r1"].report
	assert.NotEqual(t, r.Title, stored.Title)
	assert.NotEqual(t, r.Content, stored.Content)
	assert.NotEqual(t, r.Location, stored.Location)
	assert.NotEqual(t, r.AuthorDisplayName, stored.AuthorDisplayName)
	assert.NotEqual(t, r.AuthorContact, stored.AuthorContact)
	assert.Equal(t, r.Category, stored.Category)
	assert.Equal(t, r.AuthorID, stored.AuthorID)

	require.NoError(t, m.AddComment(ctx, &models.Comment{
		ID: "c1", ReportID: "r1", AuthorID: "u2", Text: "I saw it too", CreatedAt: time.Now(),
	}))
	assert.NotEqual(t, "I saw it too", m.comments["r1"][0].Text)
}

func TestMemory_EmptyMediaNormalised(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(newTestCodec(t))
	require.NoError(t, m.CreateReport(ctx, sampleReport("r1", "u1", time.Now())))

	got, err := m.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.NotNil(t, got.Media)
	assert.Empty(t, got.Media)
}

func TestMemory_ListOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(newTestCodec(t))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, m.CreateReport(ctx, sampleReport("old", "u1", base)))
	require.NoError(t, m.CreateReport(ctx, sampleReport("new", "u2", base.Add(time.Hour))))
	require.NoError(t, m.CreateReport(ctx, sampleReport("tie", "u1", base.Add(time.Hour))))

	all, err := m.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"tie", "new", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	mine, err := m.ListReportsByAuthor(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "tie", mine[0].ID)

	limited, err := m.ListReportsByAuthor(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := m.ListReportsByAuthor(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemory_MarkEscalatedIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(newTestCodec(t))
	require.NoError(t, m.CreateReport(ctx, sampleReport("r1", "u1", time.Now())))

	for i := 0; i < 2; i++ {
		got, err := m.MarkEscalated(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusEscalated, got.Status)
	}

	_, err := m.MarkEscalated(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_ConcurrentVotesAreNotLost(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(newTestCodec(t))
	require.NoError(t, m.CreateReport(ctx, sampleReport("r1", "u1", time.Now())))

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := m.IncrementVote(ctx, "r1", models.VoteUp)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := m.IncrementVote(ctx, "r1", models.VoteDown)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, n, got.Upvotes)
	assert.EqualValues(t, n, got.Downvotes)
}

func TestMemory_IncrementVoteErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(newTestCodec(t))
	require.NoError(t, m.CreateReport(ctx, sampleReport("r1", "u1", time.Now())))

	_, err := m.IncrementVote(ctx, "missing", models.VoteUp)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = m.IncrementVote(ctx, "r1", models.VoteDirection("sideways"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMemory_CommentsAndActivity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(newTestCodec(t))
	require.NoError(t, m.CreateReport(ctx, sampleReport("r1", "u1", time.Now())))

	err := m.AddComment(ctx, &models.Comment{ID: "c0", ReportID: "missing", Text: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	now := time.Now()
	require.NoError(t, m.AddComment(ctx, &models.Comment{ID: "c1", ReportID: "r1", Text: "first", CreatedAt: now}))
	require.NoError(t, m.AddComment(ctx, &models.Comment{ID: "c2", ReportID: "r1", Text: "second", CreatedAt: now.Add(time.Second)}))

	comments, err := m.ListComments(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)

	require.NoError(t, m.LogActivity(ctx, &models.ActivityLog{ID: "a1", ReportID: "r1", ActivityType: models.ActivitySubmitted}))
	require.NoError(t, m.LogActivity(ctx, &models.ActivityLog{ID: "a2", ReportID: "r1", ActivityType: models.ActivityEscalated}))

	logs, err := m.ListActivity(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a2", logs[0].ID)
}
