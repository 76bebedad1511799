package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/fieldcrypt"
	"github.com/aawaaz/incident-server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportsCollection  = "reports"
	commentsCollection = "comments"
	activityCollection = "report_activity"
)

type reportDoc struct {
	ID                string         `bson:"_id"`
	Title             string         `bson:"title"`
	Content           string         `bson:"content"`
	Category          string         `bson:"category"`
	Location          string         `bson:"location"`
	AuthorID          string         `bson:"author_id"`
	AuthorDisplayName string         `bson:"author_display_name"`
	AuthorContact     string         `bson:"author_contact"`
	Media             []models.Media `bson:"media"`
	Status            string         `bson:"status"`
	Upvotes           int64          `bson:"upvotes"`
	Downvotes         int64          `bson:"downvotes"`
	CreatedAt         time.Time      `bson:"created_at"`
}

func (d reportDoc) toModel() models.Report {
	return models.Report{
		ID:                d.ID,
		Title:             d.Title,
		Content:           d.Content,
		Category:          models.Category(d.Category),
		Location:          d.Location,
		AuthorID:          d.AuthorID,
		AuthorDisplayName: d.AuthorDisplayName,
		AuthorContact:     d.AuthorContact,
		Media:             d.Media,
		Status:            models.Status(d.Status),
		Upvotes:           d.Upvotes,
		Downvotes:         d.Downvotes,
		CreatedAt:         d.CreatedAt,
	}
}

type commentDoc struct {
	ID                string    `bson:"_id"`
	ReportID          string    `bson:"report_id"`
	AuthorID          string    `bson:"author_id"`
	AuthorDisplayName string    `bson:"author_display_name"`
	AuthorContact     string    `bson:"author_contact"`
	Text              string    `bson:"text"`
	CreatedAt         time.Time `bson:"created_at"`
}

type activityDoc struct {
	ID                string    `bson:"_id"`
	ReportID          string    `bson:"report_id"`
	ActivityType      string    `bson:"activity_type"`
	ActionDescription string    `bson:"action_description"`
	CreatedAt         time.Time `bson:"created_at"`
}

// Mongo stores reports in MongoDB documents keyed by the report id.
type Mongo struct {
	client   *mongo.Client
	reports  *mongo.Collection
	comments *mongo.Collection
	activity *mongo.Collection
	codec    *fieldcrypt.Codec
}

// NewMongo uses the given database on an already connected client.
func NewMongo(client *mongo.Client, database string, codec *fieldcrypt.Codec) *Mongo {
	db := client.Database(database)
	return &Mongo{
		client:   client,
		reports:  db.Collection(reportsCollection),
		comments: db.Collection(commentsCollection),
		activity: db.Collection(activityCollection),
		codec:    codec,
	}
}

// EnsureIndexes creates the secondary indexes the list queries rely on.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("report indexes: %w", err)
	}
	if _, err := s.comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "report_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("comment indexes: %w", err)
	}
	if _, err := s.activity.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "report_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("activity indexes: %w", err)
	}
	return nil
}

func newReportDoc(sealed models.Report) reportDoc {
	media := sealed.Media
	if media == nil {
		media = []models.Media{}
	}
	return reportDoc{
		ID:                sealed.ID,
		Title:             sealed.Title,
		Content:           sealed.Content,
		Category:          string(sealed.Category),
		Location:          sealed.Location,
		AuthorID:          sealed.AuthorID,
		AuthorDisplayName: sealed.AuthorDisplayName,
		AuthorContact:     sealed.AuthorContact,
		Media:             media,
		Status:            string(sealed.Status),
		Upvotes:           sealed.Upvotes,
		Downvotes:         sealed.Downvotes,
		CreatedAt:         sealed.CreatedAt,
	}
}

func (s *Mongo) CreateReport(ctx context.Context, r *models.Report) error {
	sealed, err := sealReport(s.codec, r)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("seal report: %w", err))
	}
	if _, err := s.reports.InsertOne(ctx, newReportDoc(sealed)); err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("insert report: %w", err))
	}
	return nil
}

func (s *Mongo) decodeOne(id string, res *mongo.SingleResult) (*models.Report, error) {
	var doc reportDoc
	err := res.Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("decode report: %w", err))
	}
	r := doc.toModel()
	openReport(s.codec, &r)
	return &r, nil
}

func (s *Mongo) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return s.decodeOne(id, s.reports.FindOne(ctx, bson.M{"_id": id}))
}

func (s *Mongo) find(ctx context.Context, filter bson.M, limit int) ([]models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.reports.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("find reports: %w", err))
	}
	defer cursor.Close(ctx)

	var docs []reportDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("decode reports: %w", err))
	}
	reports := make([]models.Report, 0, len(docs))
	for _, d := range docs {
		r := d.toModel()
		openReport(s.codec, &r)
		reports = append(reports, r)
	}
	return reports, nil
}

func (s *Mongo) ListReports(ctx context.Context) ([]models.Report, error) {
	return s.find(ctx, bson.M{}, 0)
}

func (s *Mongo) ListReportsByAuthor(ctx context.Context, authorID string, limit int) ([]models.Report, error) {
	return s.find(ctx, bson.M{"author_id": authorID}, limit)
}

func (s *Mongo) MarkEscalated(ctx context.Context, id string) (*models.Report, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": string(models.StatusEscalated)}}
	return s.decodeOne(id, s.reports.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts))
}

// IncrementVote uses $inc so the server applies concurrent votes without loss.
func (s *Mongo) IncrementVote(ctx context.Context, id string, dir models.VoteDirection) (*models.Report, error) {
	var field string
	switch dir {
	case models.VoteUp:
		field = "upvotes"
	case models.VoteDown:
		field = "downvotes"
	default:
		return nil, apperr.New(apperr.ErrValidation, "unknown vote direction %q", dir)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$inc": bson.M{field: 1}}
	return s.decodeOne(id, s.reports.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts))
}

func (s *Mongo) AddComment(ctx context.Context, c *models.Comment) error {
	n, err := s.reports.CountDocuments(ctx, bson.M{"_id": c.ReportID}, options.Count().SetLimit(1))
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("lookup report: %w", err))
	}
	if n == 0 {
		return apperr.New(apperr.ErrNotFound, "report %s", c.ReportID)
	}

	sealed, err := sealComment(s.codec, c)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("seal comment: %w", err))
	}
	doc := commentDoc{
		ID:                sealed.ID,
		ReportID:          sealed.ReportID,
		AuthorID:          sealed.AuthorID,
		AuthorDisplayName: sealed.AuthorDisplayName,
		AuthorContact:     sealed.AuthorContact,
		Text:              sealed.Text,
		CreatedAt:         sealed.CreatedAt,
	}
	if _, err := s.comments.InsertOne(ctx, doc); err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("insert comment: %w", err))
	}
	return nil
}

func (s *Mongo) ListComments(ctx context.Context, reportID string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.comments.Find(ctx, bson.M{"report_id": reportID}, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("find comments: %w", err))
	}
	defer cursor.Close(ctx)

	var docs []commentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("decode comments: %w", err))
	}
	comments := make([]models.Comment, 0, len(docs))
	for _, d := range docs {
		c := models.Comment{
			ID:                d.ID,
			ReportID:          d.ReportID,
			AuthorID:          d.AuthorID,
			AuthorDisplayName: d.AuthorDisplayName,
			AuthorContact:     d.AuthorContact,
			Text:              d.Text,
			CreatedAt:         d.CreatedAt,
		}
		openComment(s.codec, &c)
		comments = append(comments, c)
	}
	return comments, nil
}

func (s *Mongo) LogActivity(ctx context.Context, entry *models.ActivityLog) error {
	doc := activityDoc{
		ID:                entry.ID,
		ReportID:          entry.ReportID,
		ActivityType:      string(entry.ActivityType),
		ActionDescription: entry.ActionDescription,
		CreatedAt:         entry.CreatedAt,
	}
	if _, err := s.activity.InsertOne(ctx, doc); err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("insert activity log: %w", err))
	}
	return nil
}

func (s *Mongo) ListActivity(ctx context.Context, reportID string) ([]models.ActivityLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.activity.Find(ctx, bson.M{"report_id": reportID}, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("find activity: %w", err))
	}
	defer cursor.Close(ctx)

	var docs []activityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("decode activity: %w", err))
	}
	logs := make([]models.ActivityLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, models.ActivityLog{
			ID:                d.ID,
			ReportID:          d.ReportID,
			ActivityType:      models.ActivityType(d.ActivityType),
			ActionDescription: d.ActionDescription,
			CreatedAt:         d.CreatedAt,
		})
	}
	return logs, nil
}

func (s *Mongo) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Mongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
