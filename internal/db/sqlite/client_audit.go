package sqlite

import (
	"context"

	"github.com/prepguard/prepguard/internal/db"
)

func (c *sqliteClient) InsertAuditEvent(ctx context.Context, event *db.AuditEvent) (*db.AuditEvent, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO audit_events (chat_id, user_id, message_id, content_kind, categories, action, warning_count, case_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := c.db.ExecContext(ctx, query,
		event.ChatID,
		event.UserID,
		event.MessageID,
		event.ContentKind,
		event.Categories,
		event.Action,
		event.WarningCount,
		event.CaseRef,
		event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	event.ID = id
	return event, nil
}

func (c *sqliteClient) GetAuditEvents(ctx context.Context, chatID int64, limit int) ([]*db.AuditEvent, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var events []*db.AuditEvent
	err := c.db.SelectContext(ctx, &events, `
		SELECT * FROM audit_events
		WHERE chat_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, chatID, limit)
	return events, err
}

func (c *sqliteClient) CountAuditEvents(ctx context.Context, chatID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM audit_events WHERE chat_id = ?", chatID)
	return count, err
}
