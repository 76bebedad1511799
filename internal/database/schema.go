package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool and pgxmock pools.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sensitive columns hold base64 AES-GCM ciphertext, so they are TEXT with no
// length limits.
const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	category TEXT NOT NULL,
	location TEXT NOT NULL,
	author_id TEXT NOT NULL,
	author_display_name TEXT NOT NULL DEFAULT '',
	author_contact TEXT NOT NULL DEFAULT '',
	media JSONB NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT 'submitted',
	upvotes BIGINT NOT NULL DEFAULT 0,
	downvotes BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_author ON reports (author_id, created_at DESC);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	author_id TEXT NOT NULL,
	author_display_name TEXT NOT NULL DEFAULT '',
	author_contact TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_comments_report ON comments (report_id, created_at);

CREATE TABLE IF NOT EXISTS report_activity (
	id TEXT PRIMARY KEY,
	report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	activity_type TEXT NOT NULL,
	action_description TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_report_activity_report ON report_activity (report_id, created_at DESC);
`

// Migrate creates the tables the Postgres store expects. It is safe to run on
// every start.
func Migrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
