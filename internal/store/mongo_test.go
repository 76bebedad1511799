package store

import (
	"context"
	"testing"
	"time"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const reportsNS = "incidents.reports"

// reportD renders a report the way CreateReport stores it.
func reportD(t *testing.T, s *Mongo, r *models.Report) bson.D {
	t.Helper()
	sealed, err := sealReport(s.codec, r)
	require.NoError(t, err)
	raw, err := bson.Marshal(newReportDoc(sealed))
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func TestMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

	mt.Run("create report seals fields", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		r := sampleReport("r1", "u1", at)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, s.CreateReport(ctx, r))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "insert", evt.CommandName)
		doc := evt.Command.Lookup("documents", "0").Document()
		assert.Equal(mt, "r1", doc.Lookup("_id").StringValue())
		assert.Equal(mt, "u1", doc.Lookup("author_id").StringValue())

		for field, plain := range map[string]string{
			"title":          r.Title,
			"content":        r.Content,
			"location":       r.Location,
			"author_contact": r.AuthorContact,
		} {
			stored := doc.Lookup(field).StringValue()
			assert.NotEqual(mt, plain, stored, field)
			assert.Equal(mt, plain, s.codec.Decrypt(stored), field)
		}
		media, ok := doc.Lookup("media").ArrayOK()
		require.True(mt, ok)
		values, err := media.Values()
		require.NoError(mt, err)
		assert.Empty(mt, values)
	})

	mt.Run("create report storage error", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 91, Name: "ShutdownInProgress", Message: "shutting down",
		}))

		err := s.CreateReport(ctx, sampleReport("r1", "u1", at))
		assert.ErrorIs(mt, err, apperr.ErrStorage)
	})

	mt.Run("get report opens fields", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		r := sampleReport("r1", "u1", at)
		r.Media = []models.Media{{Reference: "uploads/a.jpg", Kind: models.MediaImage}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, reportsNS, mtest.FirstBatch, reportD(mt.T, s, r)))

		got, err := s.GetReport(ctx, "r1")
		require.NoError(mt, err)
		assert.Equal(mt, r.Title, got.Title)
		assert.Equal(mt, r.Content, got.Content)
		assert.Equal(mt, r.AuthorContact, got.AuthorContact)
		assert.Equal(mt, r.Media, got.Media)
		assert.True(mt, at.Equal(got.CreatedAt))
	})

	mt.Run("get report not found", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, reportsNS, mtest.FirstBatch))

		_, err := s.GetReport(ctx, "missing")
		assert.ErrorIs(mt, err, apperr.ErrNotFound)
	})

	mt.Run("list reports opens every row", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		newer := sampleReport("r2", "u1", at.Add(time.Hour))
		newer.Title = "Second report"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, reportsNS, mtest.FirstBatch,
			reportD(mt.T, s, newer), reportD(mt.T, s, sampleReport("r1", "u1", at))))

		got, err := s.ListReportsByAuthor(ctx, "u1", 5)
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "Second report", got[0].Title)
		assert.Equal(mt, "r1", got[1].ID)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "u1", evt.Command.Lookup("filter", "author_id").StringValue())
		assert.EqualValues(mt, 5, evt.Command.Lookup("limit").AsInt64())
	})

	mt.Run("increment vote uses $inc and returns the updated document", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		r := sampleReport("r1", "u1", at)
		r.Upvotes = 5
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: reportD(mt.T, s, r)}))

		got, err := s.IncrementVote(ctx, "r1", models.VoteUp)
		require.NoError(mt, err)
		assert.EqualValues(mt, 5, got.Upvotes)
		assert.Equal(mt, r.Title, got.Title)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		assert.Equal(mt, "r1", evt.Command.Lookup("query", "_id").StringValue())
		assert.EqualValues(mt, 1, evt.Command.Lookup("update", "$inc", "upvotes").AsInt64())
		assert.True(mt, evt.Command.Lookup("new").Boolean())
	})

	mt.Run("increment vote on missing report", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := s.IncrementVote(ctx, "missing", models.VoteDown)
		assert.ErrorIs(mt, err, apperr.ErrNotFound)

		_, err = s.IncrementVote(ctx, "r1", models.VoteDirection("sideways"))
		assert.ErrorIs(mt, err, apperr.ErrValidation)
	})

	mt.Run("mark escalated sets status", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		r := sampleReport("r1", "u1", at)
		r.Status = models.StatusEscalated
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: reportD(mt.T, s, r)}))

		got, err := s.MarkEscalated(ctx, "r1")
		require.NoError(mt, err)
		assert.Equal(mt, models.StatusEscalated, got.Status)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "escalated", evt.Command.Lookup("update", "$set", "status").StringValue())
	})

	mt.Run("add comment requires the report", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, reportsNS, mtest.FirstBatch))

		err := s.AddComment(ctx, &models.Comment{ID: "c1", ReportID: "missing", Text: "x"})
		assert.ErrorIs(mt, err, apperr.ErrNotFound)
	})

	mt.Run("add comment seals text", func(mt *mtest.T) {
		s := NewMongo(mt.Client, "incidents", newTestCodec(mt.T))
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, reportsNS, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
			mtest.CreateSuccessResponse(),
		)

		err := s.AddComment(ctx, &models.Comment{
			ID: "c1", ReportID: "r1", AuthorID: "u2", Text: "I saw it too", CreatedAt: at,
		})
		require.NoError(mt, err)

		count := mt.GetStartedEvent()
		require.NotNil(mt, count)
		assert.Equal(mt, "aggregate", count.CommandName)

		insert := mt.GetStartedEvent()
		require.NotNil(mt, insert)
		assert.Equal(mt, "insert", insert.CommandName)
		stored := insert.Command.Lookup("documents", "0", "text").StringValue()
		assert.NotEqual(mt, "I saw it too", stored)
		assert.Equal(mt, "I saw it too", s.codec.Decrypt(stored))
	})
}
