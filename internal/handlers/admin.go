package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/prepguard/prepguard/internal/bot"
	"github.com/prepguard/prepguard/internal/i18n"
	"github.com/prepguard/prepguard/internal/moderation/retention"
	"github.com/prepguard/prepguard/internal/moderation/trust"
	"github.com/prepguard/prepguard/internal/observability"
)

const (
	oneShotWindowMin = 5
	oneShotWindowMax = 1440
	autoWindowMin    = 10
	autoWindowMax    = 1440

	// Windows past this require an explicit /confirm<minutes> follow-up.
	confirmGateMinutes = 180
	confirmTTL         = 5 * time.Minute
)

type windowDirective int

const (
	windowNone windowDirective = iota
	windowOneShot
	windowConfirm
	windowAuto
	windowPreview
)

var windowDirectiveRe = regexp.MustCompile(`^/(confirm|auto|preview)?(\d+)$`)

// parseWindowDirective recognizes the numeric deletion directives: /30,
// /confirm200, /auto60, /preview120.
func parseWindowDirective(text string) (windowDirective, int) {
	matches := windowDirectiveRe.FindStringSubmatch(strings.TrimSpace(text))
	if matches == nil {
		return windowNone, 0
	}
	minutes, err := strconv.Atoi(matches[2])
	if err != nil {
		return windowNone, 0
	}
	switch matches[1] {
	case "":
		return windowOneShot, minutes
	case "confirm":
		return windowConfirm, minutes
	case "auto":
		return windowAuto, minutes
	case "preview":
		return windowPreview, minutes
	}
	return windowNone, 0
}

type pendingConfirm struct {
	minutes   int
	expiresAt time.Time
}

// Admin executes moderator directives: deletion windows, trust management
// and whitelist maintenance.
type Admin struct {
	s          bot.Service
	scheduler  *retention.Scheduler
	ledger     *trust.Ledger
	moderation *Moderation

	confirmMu sync.Mutex
	confirms  map[int64]pendingConfirm

	notify func(ctx context.Context, chatID int64, text string) error
	now    func() time.Time
}

func NewAdmin(s bot.Service, scheduler *retention.Scheduler, ledger *trust.Ledger, moderation *Moderation) *Admin {
	return &Admin{
		s:          s,
		scheduler:  scheduler,
		ledger:     ledger,
		moderation: moderation,
		confirms:   make(map[int64]pendingConfirm),
		notify: func(ctx context.Context, chatID int64, text string) error {
			return bot.SendNotice(ctx, s.GetBot(), chatID, text)
		},
		now: time.Now,
	}
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if chat == nil || user == nil {
		return true, nil
	}

	switch {
	case
		u.Message == nil,
		user.IsBot,
		!strings.HasPrefix(u.Message.Text, "/"):
		return true, nil
	}
	m := u.Message

	isAdmin, err := a.s.IsAdmin(ctx, chat.ID, user.ID)
	if err != nil {
		return true, errors.WithMessage(err, "cant check admin status")
	}
	if !isAdmin {
		a.getLogEntry().Trace("not admin")
		return true, nil
	}

	entry := a.getLogEntry()
	entry.Trace("directive:", m.Text)
	lang := a.s.GetLanguage(ctx, chat.ID, user)

	text := strings.TrimSpace(m.Text)
	switch kind, minutes := parseWindowDirective(text); kind {
	case windowOneShot:
		return false, a.handleOneShot(ctx, chat.ID, minutes, lang)
	case windowConfirm:
		return false, a.handleConfirm(ctx, chat.ID, minutes, lang)
	case windowAuto:
		return false, a.handleAuto(ctx, chat.ID, minutes, lang)
	case windowPreview:
		return false, a.handlePreview(ctx, chat.ID, minutes, lang)
	}

	fields := strings.Fields(text)
	command := fields[0]
	args := fields[1:]

	switch command {
	case "/stop_auto":
		return false, a.handleStopAuto(ctx, chat.ID, args, lang)
	case "/list_auto":
		return false, a.handleListAuto(ctx, chat.ID, lang)
	case "/trust":
		return false, a.handleTrust(ctx, chat.ID, args, lang)
	case "/trust_info":
		return false, a.handleTrustInfo(ctx, chat.ID)
	case "/warnings":
		return false, a.handleWarnings(ctx, chat.ID, lang)
	case "/reset_warnings":
		return false, a.handleResetWarnings(ctx, chat.ID, args, lang)
	case "/whitelist":
		return false, a.handleWhitelist(ctx, chat.ID, args, lang)
	case "/status":
		return false, a.handleStatus(ctx, chat.ID)
	case "/start", "/help":
		return false, a.reply(ctx, chat.ID, helpText())
	}

	entry.Trace("unknown directive")
	return true, nil
}

func (a *Admin) handleOneShot(ctx context.Context, chatID int64, minutes int, lang string) error {
	if minutes < oneShotWindowMin || minutes > oneShotWindowMax {
		return a.reply(ctx, chatID, fmt.Sprintf(
			"❌ %s: %d–%d", i18n.Get("Window must be between", lang), oneShotWindowMin, oneShotWindowMax))
	}

	if minutes > confirmGateMinutes {
		a.confirmMu.Lock()
		a.confirms[chatID] = pendingConfirm{minutes: minutes, expiresAt: a.now().Add(confirmTTL)}
		a.confirmMu.Unlock()
		return a.reply(ctx, chatID, fmt.Sprintf(
			"⚠️ Deleting everything older than %d minutes is a big sweep.\nSend /confirm%d within %d minutes to proceed.",
			minutes, minutes, int(confirmTTL.Minutes())))
	}

	return a.runSweep(ctx, chatID, minutes)
}

func (a *Admin) handleConfirm(ctx context.Context, chatID int64, minutes int, lang string) error {
	a.confirmMu.Lock()
	pending, ok := a.confirms[chatID]
	if ok {
		delete(a.confirms, chatID)
	}
	a.confirmMu.Unlock()

	if !ok || pending.minutes != minutes || a.now().After(pending.expiresAt) {
		return a.reply(ctx, chatID, "❌ "+i18n.Get("Nothing to confirm, request a deletion window first", lang))
	}
	return a.runSweep(ctx, chatID, minutes)
}

func (a *Admin) runSweep(ctx context.Context, chatID int64, minutes int) error {
	cutoff := a.now().Add(-time.Duration(minutes) * time.Minute)
	startedAt := time.Now()
	result := a.scheduler.Sweep(ctx, chatID, cutoff)
	observability.RecordSweep(result.DeletedCount, time.Since(startedAt).Seconds())

	a.getLogEntry().WithFields(log.Fields{
		"chat_id": chatID,
		"window":  minutes,
		"deleted": result.DeletedCount,
		"errors":  result.ErrorCount,
	}).Info("one-shot sweep completed")

	return a.reply(ctx, chatID, fmt.Sprintf(
		"🧹 Deleted %d messages older than %d minutes (%d failures).",
		result.DeletedCount, minutes, result.ErrorCount))
}

func (a *Admin) handleAuto(ctx context.Context, chatID int64, minutes int, lang string) error {
	if minutes < autoWindowMin || minutes > autoWindowMax {
		return a.reply(ctx, chatID, fmt.Sprintf(
			"❌ %s: %d–%d", i18n.Get("Window must be between", lang), autoWindowMin, autoWindowMax))
	}

	if err := a.scheduler.StartAuto(chatID, minutes); err != nil {
		if errors.Is(err, retention.ErrDuplicateTask) {
			return a.reply(ctx, chatID, fmt.Sprintf(
				"❌ Auto-deletion for the %d minute window is already running.", minutes))
		}
		return errors.WithMessage(err, "cant start auto-deletion")
	}
	return a.reply(ctx, chatID, fmt.Sprintf(
		"♻️ Auto-deletion enabled: messages older than %d minutes will be swept every %d minutes.",
		minutes, int(retention.AutoCadence.Minutes())))
}

func (a *Admin) handlePreview(ctx context.Context, chatID int64, minutes int, lang string) error {
	if minutes < oneShotWindowMin || minutes > oneShotWindowMax {
		return a.reply(ctx, chatID, fmt.Sprintf(
			"❌ %s: %d–%d", i18n.Get("Window must be between", lang), oneShotWindowMin, oneShotWindowMax))
	}

	cutoff := a.now().Add(-time.Duration(minutes) * time.Minute)
	result := a.scheduler.Preview(chatID, cutoff)
	return a.reply(ctx, chatID, fmt.Sprintf(
		"🔍 Preview for the %d minute window:\n• Would delete: %d\n• Would keep: %d\n• Tracked total: %d\n• Oldest message: %s old",
		minutes, result.WillDeleteCount, result.WillSkipCount, result.TotalTracked,
		result.OldestAge.Round(time.Minute)))
}

func (a *Admin) handleStopAuto(ctx context.Context, chatID int64, args []string, lang string) error {
	if len(args) > 0 {
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return a.reply(ctx, chatID, "❌ "+i18n.Get("Usage", lang)+": /stop_auto [minutes]")
		}
		if !a.scheduler.StopAuto(chatID, minutes) {
			return a.reply(ctx, chatID, fmt.Sprintf(
				"❌ No auto-deletion running for the %d minute window.", minutes))
		}
		return a.reply(ctx, chatID, fmt.Sprintf("🛑 Auto-deletion for the %d minute window stopped.", minutes))
	}

	windows := a.scheduler.StopAllAuto(chatID)
	if len(windows) == 0 {
		return a.reply(ctx, chatID, "❌ "+i18n.Get("No auto-deletion tasks are running", lang))
	}
	return a.reply(ctx, chatID, fmt.Sprintf("🛑 Stopped auto-deletion windows: %s", joinInts(windows)))
}

func (a *Admin) handleListAuto(ctx context.Context, chatID int64, lang string) error {
	windows := a.scheduler.ListAuto(chatID)
	if len(windows) == 0 {
		return a.reply(ctx, chatID, "ℹ️ "+i18n.Get("No auto-deletion tasks are running", lang))
	}
	return a.reply(ctx, chatID, fmt.Sprintf("♻️ Active auto-deletion windows (minutes): %s", joinInts(windows)))
}

func (a *Admin) handleTrust(ctx context.Context, chatID int64, args []string, lang string) error {
	if len(args) == 0 {
		return a.reply(ctx, chatID, "❌ "+i18n.Get("Usage", lang)+": /trust <user_id> [score]")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return a.reply(ctx, chatID, "❌ "+i18n.Get("Invalid user id", lang))
	}

	if len(args) > 1 {
		score, err := strconv.Atoi(args[1])
		if err != nil {
			return a.reply(ctx, chatID, "❌ "+i18n.Get("Invalid score", lang))
		}
		// Out-of-range directives are rejected outright, nothing is applied.
		if score < 0 || score > 100 {
			return a.reply(ctx, chatID, "❌ "+i18n.Get("Trust score must be between 0 and 100", lang))
		}
		applied := a.ledger.SetScore(userID, score)
		return a.reply(ctx, chatID, fmt.Sprintf(
			"✅ Trust score for user %d set to %d (%s). The override holds until their next violation.",
			userID, applied, trust.LevelFor(applied)))
	}

	rec := a.ledger.Record(userID)
	return a.reply(ctx, chatID, fmt.Sprintf(
		"👤 User %d\n• Score: %d (%s)\n• Tier: %s\n• Warnings: %d/3\n• Violations: %d\n• First seen: %s",
		rec.UserID, rec.Score, trust.LevelFor(rec.Score), trust.TierFor(rec.Score),
		rec.WarningCount, len(rec.Violations), rec.JoinedAt.Format("2006-01-02 15:04")))
}

func (a *Admin) handleTrustInfo(ctx context.Context, chatID int64) error {
	counts, total := a.ledger.LevelCounts()
	var b strings.Builder
	b.WriteString("📊 Trust levels:\n")
	for _, level := range []string{"TRUSTED", "GOOD", "NEUTRAL", "MONITORED", "RESTRICTED"} {
		fmt.Fprintf(&b, "• %s: %d\n", level, counts[level])
	}
	fmt.Fprintf(&b, "Tracked users: %d", total)
	return a.reply(ctx, chatID, b.String())
}

func (a *Admin) handleWarnings(ctx context.Context, chatID int64, lang string) error {
	ids, counts := a.ledger.Warnings()
	if len(ids) == 0 {
		return a.reply(ctx, chatID, "✅ "+i18n.Get("Nobody has active warnings", lang))
	}
	var b strings.Builder
	b.WriteString("⚠️ Active warnings:\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "• User %d: %d/3\n", id, counts[id])
	}
	return a.reply(ctx, chatID, strings.TrimRight(b.String(), "\n"))
}

func (a *Admin) handleResetWarnings(ctx context.Context, chatID int64, args []string, lang string) error {
	if len(args) == 0 {
		return a.reply(ctx, chatID, "❌ "+i18n.Get("Usage", lang)+": /reset_warnings <user_id>")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return a.reply(ctx, chatID, "❌ "+i18n.Get("Invalid user id", lang))
	}
	if !a.ledger.ResetWarnings(userID) {
		return a.reply(ctx, chatID, fmt.Sprintf("ℹ️ User %d has no warnings to reset.", userID))
	}
	return a.reply(ctx, chatID, fmt.Sprintf("✅ Warnings for user %d cleared.", userID))
}

func (a *Admin) handleWhitelist(ctx context.Context, chatID int64, args []string, lang string) error {
	if len(args) == 0 {
		return a.reply(ctx, chatID, "❌ "+i18n.Get("Usage", lang)+": /whitelist <user_id>")
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return a.reply(ctx, chatID, "❌ "+i18n.Get("Invalid user id", lang))
	}
	a.moderation.Whitelist(userID)
	return a.reply(ctx, chatID, fmt.Sprintf("✅ User %d whitelisted, their content will not be filtered.", userID))
}

func (a *Admin) handleStatus(ctx context.Context, chatID int64) error {
	_, totalUsers := a.ledger.LevelCounts()
	auditCount, err := a.s.GetDB().CountAuditEvents(ctx, chatID)
	if err != nil {
		a.getLogEntry().WithError(err).Warn("cant count audit events")
	}
	return a.reply(ctx, chatID, fmt.Sprintf(
		"🟢 Running\n• Tracked messages: %d\n• Tracked users: %d\n• Auto-deletion windows: %s\n• Audit events: %d",
		a.scheduler.TrackedCount(chatID), totalUsers, joinInts(a.scheduler.ListAuto(chatID)), auditCount))
}

func (a *Admin) reply(ctx context.Context, chatID int64, text string) error {
	if err := a.notify(ctx, chatID, text); err != nil {
		a.getLogEntry().WithError(err).Warn("cant send reply")
	}
	return nil
}

func (a *Admin) getLogEntry() *log.Entry {
	return log.WithField("context", "admin")
}

func helpText() string {
	return strings.Join([]string{
		"🧹 Deletion:",
		"/<minutes> — delete messages older than the window (5–1440)",
		"/preview<minutes> — dry-run a deletion window",
		"/auto<minutes> — recurring deletion (10–1440)",
		"/stop_auto [minutes] — stop one or all recurring deletions",
		"/list_auto — list recurring deletions",
		"",
		"🛡 Trust:",
		"/trust <user_id> [score] — show or override a trust score",
		"/trust_info — trust level summary",
		"/warnings — users with active warnings",
		"/reset_warnings <user_id> — clear a user's warnings",
		"/whitelist <user_id> — exempt a user from filtering",
		"",
		"/status — engine status",
	}, "\n")
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}
