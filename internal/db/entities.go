package db

import (
	"context"
	"time"
)

// Moderation actions recorded in the audit log.
const (
	ActionDelete = "delete"
	ActionWarn   = "warn"
	ActionBan    = "ban"
	ActionUnban  = "unban"
)

type ModerationEvent struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	Action    string    `db:"action"`
	Details   string    `db:"details"`
	CreatedAt time.Time `db:"created_at"`
}

// AuditLog is the append-only record of moderation actions. It is audit
// only: the engine never reads it back to make decisions, and a write
// failure never stops the pipeline.
type AuditLog interface {
	RecordAction(ctx context.Context, event *ModerationEvent) error
	RecentActions(ctx context.Context, limit int) ([]*ModerationEvent, error)
	Close() error
}
