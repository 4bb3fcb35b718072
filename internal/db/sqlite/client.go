package sqlite

import (
	"context"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/antispambot/internal/db"
	"github.com/iamwavecut/antispambot/resources"
)

type sqliteClient struct {
	db *sqlx.DB
}

// NewSQLiteClient opens (or creates) the audit database and applies the
// embedded migrations.
func NewSQLiteClient(dbPath string) *sqliteClient {
	dbx, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		log.WithError(err).Fatalln("cant open db")
	}
	dbx.SetMaxOpenConns(1)

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		log.WithError(err).Fatalln("migrate up failed")
	}
	if n > 0 {
		log.Infof("applied %d migrations!", n)
	}

	return &sqliteClient{db: dbx}
}

func (c *sqliteClient) RecordAction(ctx context.Context, event *db.ModerationEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO moderation_log (chat_id, user_id, action, details, created_at)
		VALUES (:chat_id, :user_id, :action, :details, :created_at)
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, event))
}

func (c *sqliteClient) RecentActions(ctx context.Context, limit int) ([]*db.ModerationEvent, error) {
	if limit < 1 {
		limit = 10
	}
	var events []*db.ModerationEvent
	err := c.db.SelectContext(ctx, &events, `
		SELECT id, chat_id, user_id, action, details, created_at
		FROM moderation_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	return events, err
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}
