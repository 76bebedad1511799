// Package store persists reports, comments and activity entries.
//
// Every backend applies the field codec at its write/read boundary: the
// sensitive report and comment fields are sealed before they leave the
// process and opened on every read, so callers only ever see plaintext.
package store

import (
	"context"

	"github.com/aawaaz/incident-server/internal/fieldcrypt"
	"github.com/aawaaz/incident-server/internal/models"
)

// Store is implemented by the Postgres, Mongo and in-memory backends.
type Store interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	// ListReports returns every report, newest first.
	ListReports(ctx context.Context) ([]models.Report, error)
	// ListReportsByAuthor returns the author's reports, newest first. limit <= 0 means all.
	ListReportsByAuthor(ctx context.Context, authorID string, limit int) ([]models.Report, error)
	// MarkEscalated sets status to escalated. Re-applying it is a no-op.
	MarkEscalated(ctx context.Context, id string) (*models.Report, error)
	// IncrementVote atomically adds one to the chosen counter.
	IncrementVote(ctx context.Context, id string, dir models.VoteDirection) (*models.Report, error)

	AddComment(ctx context.Context, c *models.Comment) error
	// ListComments returns a report's comments, oldest first.
	ListComments(ctx context.Context, reportID string) ([]models.Comment, error)

	LogActivity(ctx context.Context, entry *models.ActivityLog) error
	// ListActivity returns a report's activity, newest first.
	ListActivity(ctx context.Context, reportID string) ([]models.ActivityLog, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// sealReport returns a copy of r with the sensitive fields encrypted.
func sealReport(codec *fieldcrypt.Codec, r *models.Report) (models.Report, error) {
	sealed := *r
	for _, f := range []*string{&sealed.Title, &sealed.Content, &sealed.Location, &sealed.AuthorDisplayName, &sealed.AuthorContact} {
		enc, err := codec.Encrypt(*f)
		if err != nil {
			return models.Report{}, err
		}
		*f = enc
	}
	return sealed, nil
}

// openReport decrypts the sensitive fields of r in place.
func openReport(codec *fieldcrypt.Codec, r *models.Report) {
	r.Title = codec.Decrypt(r.Title)
	r.Content = codec.Decrypt(r.Content)
	r.Location = codec.Decrypt(r.Location)
	r.AuthorDisplayName = codec.Decrypt(r.AuthorDisplayName)
	r.AuthorContact = codec.Decrypt(r.AuthorContact)
	if r.Media == nil {
		r.Media = []models.Media{}
	}
}

func sealComment(codec *fieldcrypt.Codec, c *models.Comment) (models.Comment, error) {
	sealed := *c
	for _, f := range []*string{&sealed.Text, &sealed.AuthorDisplayName, &sealed.AuthorContact} {
		enc, err := codec.Encrypt(*f)
		if err != nil {
			return models.Comment{}, err
		}
		*f = enc
	}
	return sealed, nil
}

func openComment(codec *fieldcrypt.Codec, c *models.Comment) {
	c.Text = codec.Decrypt(c.Text)
	c.AuthorDisplayName = codec.Decrypt(c.AuthorDisplayName)
	c.AuthorContact = codec.Decrypt(c.AuthorContact)
}
