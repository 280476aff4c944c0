package db

import "context"

// Client is the persistence boundary. It stores the loss-tolerant side of the
// system: per-chat settings, operational KV and the moderation audit trail.
// Engine state (trust ledger, tracked messages, tasks) is in-memory and never
// goes through here.
type Client interface {
	Close() error

	GetSettings(ctx context.Context, chatID int64) (*Settings, error)
	SetSettings(ctx context.Context, settings *Settings) error

	GetKV(ctx context.Context, key string) (string, error)
	SetKV(ctx context.Context, key string, value string) error

	InsertAuditEvent(ctx context.Context, event *AuditEvent) (*AuditEvent, error)
	GetAuditEvents(ctx context.Context, chatID int64, limit int) ([]*AuditEvent, error)
	CountAuditEvents(ctx context.Context, chatID int64) (int, error)
}
