package db

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type (
	// Settings is the per-chat configuration row.
	Settings struct {
		ID       int64  `db:"id"`
		Enabled  bool   `db:"enabled"`
		Language string `db:"language"`
	}

	// AuditEvent is one row of the append-only moderation audit trail.
	AuditEvent struct {
		ID           int64     `db:"id"`
		ChatID       int64     `db:"chat_id"`
		UserID       int64     `db:"user_id"`
		MessageID    int       `db:"message_id"`
		ContentKind  string    `db:"content_kind"`
		Categories   string    `db:"categories"`
		Action       string    `db:"action"`
		WarningCount int       `db:"warning_count"`
		CaseRef      string    `db:"case_ref"`
		CreatedAt    time.Time `db:"created_at"`
	}
)

const (
	AuditActionWarned        = "warned"
	AuditActionBanned        = "banned"
	AuditActionEditedDeleted = "edited_deleted"
)

func DefaultSettings(chatID int64) *Settings {
	return &Settings{
		ID:       chatID,
		Enabled:  true,
		Language: "en",
	}
}
