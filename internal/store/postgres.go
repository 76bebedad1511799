package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/fieldcrypt"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxConn is the subset of *pgxpool.Pool the Postgres store needs.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

const reportColumns = `id, title, content, category, location, author_id, author_display_name,
	author_contact, media, status, upvotes, downvotes, created_at`

// Postgres stores reports in PostgreSQL through pgx.
type Postgres struct {
	db    PgxConn
	codec *fieldcrypt.Codec
}

// NewPostgres wraps an open pool. The schema is created by database.Migrate.
func NewPostgres(db PgxConn, codec *fieldcrypt.Codec) *Postgres {
	return &Postgres{db: db, codec: codec}
}

func (s *Postgres) CreateReport(ctx context.Context, r *models.Report) error {
	sealed, err := sealReport(s.codec, r)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("seal report: %w", err))
	}

	media := sealed.Media
	if media == nil {
		media = []models.Media{}
	}
	mediaJSON, err := json.Marshal(media)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("marshal media: %w", err))
	}

	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.Exec(ctx, query,
		sealed.ID, sealed.Title, sealed.Content, string(sealed.Category), sealed.Location,
		sealed.AuthorID, sealed.AuthorDisplayName, sealed.AuthorContact,
		string(mediaJSON), string(sealed.Status), sealed.Upvotes, sealed.Downvotes, sealed.CreatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("insert report: %w", err))
	}
	return nil
}

func (s *Postgres) scanReport(row pgx.Row) (*models.Report, error) {
	var (
		r        models.Report
		category string
		status   string
		media    []byte
	)
	if err := row.Scan(&r.ID, &r.Title, &r.Content, &category, &r.Location, &r.AuthorID,
		&r.AuthorDisplayName, &r.AuthorContact, &media, &status, &r.Upvotes, &r.Downvotes, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Category = models.Category(category)
	r.Status = models.Status(status)
	if len(media) > 0 {
		if err := json.Unmarshal(media, &r.Media); err != nil {
			return nil, fmt.Errorf("decode media: %w", err)
		}
	}
	openReport(s.codec, &r)
	return &r, nil
}

func (s *Postgres) one(ctx context.Context, id, query string, args ...any) (*models.Report, error) {
	r, err := s.scanReport(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("query report: %w", err))
	}
	return r, nil
}

func (s *Postgres) many(ctx context.Context, query string, args ...any) ([]models.Report, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("query reports: %w", err))
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := s.scanReport(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("scan report: %w", err))
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("iterate reports: %w", err))
	}
	return reports, nil
}

func (s *Postgres) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return s.one(ctx, id, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
}

func (s *Postgres) ListReports(ctx context.Context) ([]models.Report, error) {
	return s.many(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, id DESC`)
}

func (s *Postgres) ListReportsByAuthor(ctx context.Context, authorID string, limit int) ([]models.Report, error) {
	if limit <= 0 {
		return s.many(ctx, `SELECT `+reportColumns+` FROM reports WHERE author_id = $1 ORDER BY created_at DESC, id DESC`, authorID)
	}
	return s.many(ctx, `SELECT `+reportColumns+` FROM reports WHERE author_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, authorID, limit)
}

func (s *Postgres) MarkEscalated(ctx context.Context, id string) (*models.Report, error) {
	query := `UPDATE reports SET status = $2 WHERE id = $1 RETURNING ` + reportColumns
	return s.one(ctx, id, query, id, string(models.StatusEscalated))
}

// IncrementVote relies on a single UPDATE ... RETURNING so concurrent votes
// never overwrite each other.
func (s *Postgres) IncrementVote(ctx context.Context, id string, dir models.VoteDirection) (*models.Report, error) {
	var query string
	switch dir {
	case models.VoteUp:
		query = `UPDATE reports SET upvotes = upvotes + 1 WHERE id = $1 RETURNING ` + reportColumns
	case models.VoteDown:
		query = `UPDATE reports SET downvotes = downvotes + 1 WHERE id = $1 RETURNING ` + reportColumns
	default:
		return nil, apperr.New(apperr.ErrValidation, "unknown vote direction %q", dir)
	}
	return s.one(ctx, id, query, id)
}

func (s *Postgres) AddComment(ctx context.Context, c *models.Comment) error {
	sealed, err := sealComment(s.codec, c)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("seal comment: %w", err))
	}

	query := `
		INSERT INTO comments (id, report_id, author_id, author_display_name, author_contact, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.Exec(ctx, query,
		sealed.ID, sealed.ReportID, sealed.AuthorID,
		sealed.AuthorDisplayName, sealed.AuthorContact, sealed.Text, sealed.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return apperr.New(apperr.ErrNotFound, "report %s", c.ReportID)
	}
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("insert comment: %w", err))
	}
	return nil
}

func (s *Postgres) ListComments(ctx context.Context, reportID string) ([]models.Comment, error) {
	query := `
		SELECT id, report_id, author_id, author_display_name, author_contact, text, created_at
		FROM comments
		WHERE report_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("query comments: %w", err))
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ReportID, &c.AuthorID, &c.AuthorDisplayName,
			&c.AuthorContact, &c.Text, &c.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("scan comment: %w", err))
		}
		openComment(s.codec, &c)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("iterate comments: %w", err))
	}
	return comments, nil
}

func (s *Postgres) LogActivity(ctx context.Context, entry *models.ActivityLog) error {
	query := `
		INSERT INTO report_activity (id, report_id, activity_type, action_description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query,
		entry.ID, entry.ReportID, string(entry.ActivityType), entry.ActionDescription, entry.CreatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("insert activity log: %w", err))
	}
	return nil
}

func (s *Postgres) ListActivity(ctx context.Context, reportID string) ([]models.ActivityLog, error) {
	query := `
		SELECT id, report_id, activity_type, action_description, created_at
		FROM report_activity
		WHERE report_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("query activity: %w", err))
	}
	defer rows.Close()

	logs := make([]models.ActivityLog, 0)
	for rows.Next() {
		var (
			log          models.ActivityLog
			activityType string
		)
		if err := rows.Scan(&log.ID, &log.ReportID, &activityType, &log.ActionDescription, &log.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("scan activity: %w", err))
		}
		log.ActivityType = models.ActivityType(activityType)
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrStorage, fmt.Errorf("iterate activity: %w", err))
	}
	return logs, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Postgres) Close(ctx context.Context) error {
	s.db.Close()
	return nil
}
