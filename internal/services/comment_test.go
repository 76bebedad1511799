package services

import (
	"context"
	"strings"
	"testing"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.reports.Create(ctx, alice, theft())
	require.NoError(t, err)

	first, err := f.comments.Add(ctx, bob, r.ID, &models.CommentSubmission{Text: "  I saw it too  "})
	require.NoError(t, err)
	assert.Equal(t, "I saw it too", first.Text)
	assert.NotEqual(t, bob.DisplayName, first.AuthorDisplayName)

	_, err = f.comments.Add(ctx, alice, r.ID, &models.CommentSubmission{Text: "Thanks"})
	require.NoError(t, err)

	views, err := f.comments.List(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "I saw it too", views[0].Text)
	assert.Equal(t, first.AuthorDisplayName, views[0].AuthorDisplayName)

	posts, err := f.feed.Feed(ctx)
	require.NoError(t, err)
	assert.Equal(t, posts[0].AuthorDisplayName, views[1].AuthorDisplayName)

	logs, err := f.store.ListActivity(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityCommented, logs[0].ActivityType)
}

func TestComments_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.reports.Create(ctx, alice, theft())
	require.NoError(t, err)

	_, err = f.comments.Add(ctx, bob, r.ID, &models.CommentSubmission{Text: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.comments.Add(ctx, bob, r.ID, &models.CommentSubmission{Text: strings.Repeat("x", MaxCommentLength+1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.comments.Add(ctx, bob, "missing", &models.CommentSubmission{Text: "hello"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.comments.List(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
