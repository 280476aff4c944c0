package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prepguard/prepguard/internal/db"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("NewSQLiteClient: %v", err)
	}
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return client
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.GetSettings(ctx, 1); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("GetSettings on empty db = %v, want ErrNotFound", err)
	}

	want := &db.Settings{ID: 1, Enabled: true, Language: "hi"}
	if err := client.SetSettings(ctx, want); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}

	got, err := client.GetSettings(ctx, 1)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.ID != want.ID || got.Enabled != want.Enabled || got.Language != want.Language {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}

	// Upsert overwrites.
	want.Enabled = false
	if err := client.SetSettings(ctx, want); err != nil {
		t.Fatalf("SetSettings update: %v", err)
	}
	got, err = client.GetSettings(ctx, 1)
	if err != nil {
		t.Fatalf("GetSettings after update: %v", err)
	}
	if got.Enabled {
		t.Fatal("update did not stick")
	}
}

func TestKVRoundTrip(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	value, err := client.GetKV(ctx, "missing")
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if value != "" {
		t.Fatalf("missing key = %q, want empty", value)
	}

	if err := client.SetKV(ctx, "offset", "1234"); err != nil {
		t.Fatalf("SetKV: %v", err)
	}
	if err := client.SetKV(ctx, "offset", "5678"); err != nil {
		t.Fatalf("SetKV upsert: %v", err)
	}
	value, err = client.GetKV(ctx, "offset")
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if value != "5678" {
		t.Fatalf("value = %q, want 5678", value)
	}
}

func TestAuditEvents(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		event := &db.AuditEvent{
			ChatID:       -100,
			UserID:       int64(7 + i),
			MessageID:    100 + i,
			ContentKind:  "text",
			Categories:   "vulgar_content",
			Action:       db.AuditActionWarned,
			WarningCount: i + 1,
			CaseRef:      "case-ref",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		inserted, err := client.InsertAuditEvent(ctx, event)
		if err != nil {
			t.Fatalf("InsertAuditEvent: %v", err)
		}
		if inserted.ID == 0 {
			t.Fatal("insert did not assign an id")
		}
	}

	count, err := client.CountAuditEvents(ctx, -100)
	if err != nil {
		t.Fatalf("CountAuditEvents: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	events, err := client.GetAuditEvents(ctx, -100, 2)
	if err != nil {
		t.Fatalf("GetAuditEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (limit)", len(events))
	}
	// Newest first.
	if events[0].MessageID != 102 {
		t.Fatalf("first event message = %d, want 102", events[0].MessageID)
	}

	otherChat, err := client.CountAuditEvents(ctx, -200)
	if err != nil {
		t.Fatalf("CountAuditEvents other chat: %v", err)
	}
	if otherChat != 0 {
		t.Fatalf("other chat count = %d, want 0", otherChat)
	}
}
