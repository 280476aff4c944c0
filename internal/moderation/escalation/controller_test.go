package escalation

import (
	"strings"
	"testing"

	"github.com/prepguard/prepguard/internal/moderation"
	"github.com/prepguard/prepguard/internal/moderation/patterns"
	"github.com/prepguard/prepguard/internal/moderation/trust"
)

func testEvent(userID int64) moderation.ContentEvent {
	return moderation.ContentEvent{
		UserID:    userID,
		ChatID:    -100500,
		MessageID: 42,
		Kind:      moderation.ContentKindText,
	}
}

func testVerdict() moderation.Verdict {
	return moderation.Verdict{
		IsSafe: false,
		Violations: []moderation.RuleHit{
			{Type: string(patterns.CategoryVulgar), Severity: moderation.SeverityHigh},
		},
		Tier: moderation.TierNormal,
	}
}

func TestDecideWarns(t *testing.T) {
	t.Parallel()

	ledger := trust.NewLedger()
	controller := NewController(ledger, []int64{100, 101})

	decision := controller.Decide(testEvent(7), testVerdict())

	if decision.Banned {
		t.Fatal("first violation must not ban")
	}
	if decision.WarningCount != 1 {
		t.Fatalf("warning count = %d, want 1", decision.WarningCount)
	}
	if decision.CaseRef == "" {
		t.Fatal("expected a case reference")
	}

	if decision.Actions[0].Delete == nil {
		t.Fatal("first action must be the delete")
	}
	if decision.Actions[0].Delete.MessageID != 42 {
		t.Fatalf("delete targets message %d, want 42", decision.Actions[0].Delete.MessageID)
	}

	var reports, notices, bans int
	for _, action := range decision.Actions {
		switch {
		case action.Report != nil:
			reports++
		case action.Notice != nil:
			notices++
			if !strings.Contains(action.Notice.Text, "WARNING 1/3") {
				t.Fatalf("warning notice missing count: %q", action.Notice.Text)
			}
			if !strings.Contains(action.Notice.Text, "2 more violations") {
				t.Fatalf("warning notice missing remaining strikes: %q", action.Notice.Text)
			}
		case action.Ban != nil:
			bans++
		}
	}
	if reports != 2 {
		t.Fatalf("reports = %d, want one per admin", reports)
	}
	if notices != 1 {
		t.Fatalf("notices = %d, want 1", notices)
	}
	if bans != 0 {
		t.Fatalf("bans = %d, want 0", bans)
	}
}

func TestDecideThirdStrikeBans(t *testing.T) {
	t.Parallel()

	ledger := trust.NewLedger()
	controller := NewController(ledger, []int64{100})

	controller.Decide(testEvent(8), testVerdict())
	controller.Decide(testEvent(8), testVerdict())
	decision := controller.Decide(testEvent(8), testVerdict())

	if !decision.Banned {
		t.Fatal("third violation must ban")
	}
	if decision.WarningCount != 3 {
		t.Fatalf("warning count = %d, want 3", decision.WarningCount)
	}

	var banAction *moderation.BanUser
	var banNotice string
	for _, action := range decision.Actions {
		if action.Ban != nil {
			if banAction != nil {
				t.Fatal("expected exactly one ban action")
			}
			banAction = action.Ban
		}
		if action.Notice != nil {
			banNotice = action.Notice.Text
		}
	}
	if banAction == nil {
		t.Fatal("expected a ban action")
	}
	if banAction.UserID != 8 {
		t.Fatalf("ban targets user %d, want 8", banAction.UserID)
	}
	if !strings.Contains(banNotice, "PERMANENTLY BANNED") {
		t.Fatalf("ban notice = %q", banNotice)
	}
	if !strings.Contains(banNotice, "Violation 3") {
		t.Fatalf("ban notice missing full history: %q", banNotice)
	}

	// The ledger record is destroyed with the ban.
	if got := ledger.WarningCount(8); got != 0 {
		t.Fatalf("warning count after ban = %d, want 0", got)
	}
	if history := ledger.History(8); history != nil {
		t.Fatalf("history after ban = %v, want nil", history)
	}
}

func TestDecideRecordsEveryViolation(t *testing.T) {
	t.Parallel()

	ledger := trust.NewLedger()
	controller := NewController(ledger, nil)

	controller.Decide(testEvent(9), testVerdict())
	imageVerdict := moderation.Verdict{
		IsSafe:     false,
		Violations: []moderation.RuleHit{{Type: "competitor_logo", Severity: moderation.SeverityHigh}},
		Tier:       moderation.TierNormal,
	}
	event := testEvent(9)
	event.Kind = moderation.ContentKindImage
	controller.Decide(event, imageVerdict)

	history := ledger.History(9)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[1].ContentKind != moderation.ContentKindImage {
		t.Fatalf("second recorded kind = %s, want image", history[1].ContentKind)
	}
}

func TestDescribeViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hits []moderation.RuleHit
		want string
	}{
		{
			name: "no hits fall back to generic reason",
			hits: nil,
			want: "rule violation",
		},
		{
			name: "known categories get human wording",
			hits: []moderation.RuleHit{
				{Type: string(patterns.CategoryVulgar)},
				{Type: string(patterns.CategoryCompetitor)},
			},
			want: "inappropriate content; competitor name",
		},
		{
			name: "unknown category degrades to its name",
			hits: []moderation.RuleHit{{Type: "competitor_logo"}},
			want: "competitor logo",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := describeViolations(tt.hits); got != tt.want {
				t.Fatalf("describeViolations(%v) = %q, want %q", tt.hits, got, tt.want)
			}
		})
	}
}
