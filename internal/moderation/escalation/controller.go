// Package escalation turns an unsafe verdict into concrete moderation
// actions, driving the 3-strike warn/ban policy against the trust ledger.
package escalation

import (
	"fmt"
	"strings"

	"github.com/pborman/uuid"

	"github.com/prepguard/prepguard/internal/moderation"
	"github.com/prepguard/prepguard/internal/moderation/patterns"
	"github.com/prepguard/prepguard/internal/moderation/trust"
)

// WarningThreshold is the strike count that converts a warning into a ban.
const WarningThreshold = 3

type Decision struct {
	Actions      []moderation.Action
	Banned       bool
	WarningCount int
	CaseRef      string
}

type Controller struct {
	ledger   *trust.Ledger
	adminIDs []int64
}

func NewController(ledger *trust.Ledger, adminIDs []int64) *Controller {
	return &Controller{ledger: ledger, adminIDs: adminIDs}
}

// Decide records the violation and composes the full action set for it:
// always a delete first, then either a warning notice or a ban with a final
// report, plus a report to every admin. Deletion and escalation are
// independent effects of the same verdict; the caller must not skip the
// ledger mutation when the delete fails.
func (c *Controller) Decide(event moderation.ContentEvent, verdict moderation.Verdict) Decision {
	decision := Decision{CaseRef: uuid.NewRandom().String()}
	decision.Actions = append(decision.Actions, moderation.DeleteAction(event.ChatID, event.MessageID))

	warningCount := c.ledger.RecordViolation(event.UserID, event.Kind, verdict.Violations)
	decision.WarningCount = warningCount

	history := c.ledger.History(event.UserID)

	adminText := c.composeAdminReport(event, verdict, warningCount, decision.CaseRef)
	for _, adminID := range c.adminIDs {
		decision.Actions = append(decision.Actions, moderation.ReportAction(adminID, adminText))
	}

	if warningCount >= WarningThreshold {
		decision.Banned = true
		decision.Actions = append(decision.Actions,
			moderation.BanAction(event.ChatID, event.UserID),
			moderation.NoticeAction(event.ChatID, c.composeBanNotice(event, history)),
		)
		// User is gone, the ledger starts over if they ever come back.
		c.ledger.Reset(event.UserID)
		return decision
	}

	decision.Actions = append(decision.Actions,
		moderation.NoticeAction(event.ChatID, c.composeWarningNotice(event, verdict, warningCount)),
	)
	return decision
}

func (c *Controller) composeWarningNotice(event moderation.ContentEvent, verdict moderation.Verdict, warningCount int) string {
	return fmt.Sprintf(
		"⚠️ WARNING %d/%d — user %d\n\n❌ Message deleted for: %s\n📝 %d more violations = PERMANENT BAN",
		warningCount, WarningThreshold, event.UserID,
		describeViolations(verdict.Violations),
		WarningThreshold-warningCount,
	)
}

func (c *Controller) composeBanNotice(event moderation.ContentEvent, history []trust.Violation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚫 User %d PERMANENTLY BANNED\n\n", event.UserID)
	fmt.Fprintf(&b, "📊 Violations: %d/%d\n", WarningThreshold, WarningThreshold)
	fmt.Fprintf(&b, "📋 Final violation: %s message\n\nRemoval reasons:\n", strings.ToUpper(string(event.Kind)))
	for i, violation := range history {
		fmt.Fprintf(&b, "• Violation %d: %s", i+1, violation.ContentKind)
		if categories := hitCategories(violation.RuleHits); categories != "" {
			fmt.Fprintf(&b, " (%s)", categories)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nContact admins if you believe this was an error.")
	return b.String()
}

func (c *Controller) composeAdminReport(event moderation.ContentEvent, verdict moderation.Verdict, warningCount int, caseRef string) string {
	action := "Message deleted and user warned"
	if warningCount >= WarningThreshold {
		action = "Message deleted and user REMOVED"
	}
	return fmt.Sprintf(
		"🚨 Content violation\n\n👤 User: %d\n📝 Type: %s\n⚠️ Violations: %s\n📊 Warning count: %d/%d\n🔖 Case: %s\n\nAction: %s",
		event.UserID, event.Kind, hitCategories(verdict.Violations),
		warningCount, WarningThreshold, caseRef, action,
	)
}

func hitCategories(hits []moderation.RuleHit) string {
	if len(hits) == 0 {
		return ""
	}
	types := make([]string, 0, len(hits))
	for _, hit := range hits {
		types = append(types, hit.Type)
	}
	return strings.Join(types, ", ")
}

func describeViolations(hits []moderation.RuleHit) string {
	if len(hits) == 0 {
		return "rule violation"
	}
	details := make([]string, 0, len(hits))
	for _, hit := range hits {
		switch patterns.Category(hit.Type) {
		case patterns.CategoryVulgar:
			details = append(details, "inappropriate content")
		case patterns.CategoryCompetitor:
			details = append(details, "competitor name")
		case patterns.CategoryScreenshotThreat:
			details = append(details, "threatening content")
		case patterns.CategorySpam:
			details = append(details, "spam/promotional pattern")
		case patterns.CategoryCommercialSpam:
			details = append(details, "commercial promotion")
		case patterns.CategoryPromotional:
			details = append(details, "promotional content")
		default:
			details = append(details, strings.ReplaceAll(hit.Type, "_", " "))
		}
	}
	return strings.Join(details, "; ")
}
