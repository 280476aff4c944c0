package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/prepguard/prepguard/internal/bot"
	"github.com/prepguard/prepguard/internal/config"
	"github.com/prepguard/prepguard/internal/db"
	"github.com/prepguard/prepguard/internal/moderation"
	"github.com/prepguard/prepguard/internal/moderation/escalation"
	"github.com/prepguard/prepguard/internal/moderation/imagefilter"
	"github.com/prepguard/prepguard/internal/moderation/retention"
	"github.com/prepguard/prepguard/internal/moderation/textfilter"
	"github.com/prepguard/prepguard/internal/moderation/trust"
	"github.com/prepguard/prepguard/internal/observability"
)

const fileDownloadTimeout = 30 * time.Second

// Moderation is the content pipeline: track, classify, escalate.
type Moderation struct {
	s          bot.Service
	textFilter *textfilter.Filter
	analyzer   *imagefilter.Analyzer
	ledger     *trust.Ledger
	controller *escalation.Controller
	scheduler  *retention.Scheduler

	whitelistMu sync.RWMutex
	whitelist   map[int64]bool

	httpClient *http.Client
}

func NewModeration(
	s bot.Service,
	textFilter *textfilter.Filter,
	analyzer *imagefilter.Analyzer,
	ledger *trust.Ledger,
	controller *escalation.Controller,
	scheduler *retention.Scheduler,
) *Moderation {
	return &Moderation{
		s:          s,
		textFilter: textFilter,
		analyzer:   analyzer,
		ledger:     ledger,
		controller: controller,
		scheduler:  scheduler,
		whitelist:  make(map[int64]bool),
		httpClient: &http.Client{Timeout: fileDownloadTimeout},
	}
}

// Whitelist exempts a user from classification. They are still tracked for
// retention sweeps.
func (h *Moderation) Whitelist(userID int64) {
	h.whitelistMu.Lock()
	defer h.whitelistMu.Unlock()
	h.whitelist[userID] = true
}

func (h *Moderation) IsWhitelisted(userID int64) bool {
	h.whitelistMu.RLock()
	defer h.whitelistMu.RUnlock()
	return h.whitelist[userID]
}

func (h *Moderation) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if chat == nil || user == nil {
		return true, nil
	}
	// With a configured home channel, everything else is out of scope.
	if channelID := config.Get().ChannelID; channelID != 0 && chat.ID != channelID {
		return true, nil
	}

	if u.EditedMessage != nil {
		return h.handleEdited(ctx, u.EditedMessage, chat, user)
	}

	m := u.Message
	if m == nil {
		return true, nil
	}

	if len(m.NewChatMembers) > 0 {
		return h.handleNewMembers(ctx, m, chat)
	}

	h.scheduler.Track(chat.ID, m.MessageID, time.Unix(int64(m.Date), 0))

	if user.IsBot {
		return true, nil
	}
	if strings.HasPrefix(m.Text, "/") {
		// Directives are someone else's business.
		return true, nil
	}

	isAdmin, err := h.s.IsAdmin(ctx, chat.ID, user.ID)
	if err != nil {
		h.getLogEntry().WithError(err).Warn("cant check admin status")
	}
	if isAdmin || h.IsWhitelisted(user.ID) {
		return true, nil
	}

	settings, err := h.s.GetSettings(ctx, chat.ID)
	if err != nil {
		return true, errors.WithMessage(err, "cant get settings")
	}
	if !settings.Enabled {
		return true, nil
	}

	event, err := h.buildEvent(ctx, m, chat, user)
	if err != nil {
		h.getLogEntry().WithError(err).Warn("cant build content event")
		return true, nil
	}

	tier := trust.TierFor(h.ledger.Score(user.ID))
	verdict := h.classify(event, tier)
	observability.RecordVerdict(string(event.Kind), string(tier), verdict.IsSafe)

	if verdict.IsSafe {
		return true, nil
	}

	decision := h.controller.Decide(event, verdict)
	h.dispatch(ctx, decision.Actions)

	auditAction := db.AuditActionWarned
	escalationLabel := "warn"
	if decision.Banned {
		auditAction = db.AuditActionBanned
		escalationLabel = "ban"
	}
	observability.RecordEscalation(escalationLabel)
	h.audit(ctx, event, verdict, auditAction, decision.WarningCount, decision.CaseRef)

	return false, nil
}

// handleEdited deletes any edit from a regular user outright. Edits defeat
// after-the-fact review, so the content is not even classified and no strike
// is recorded.
func (h *Moderation) handleEdited(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User) (bool, error) {
	if user.IsBot {
		return true, nil
	}
	isAdmin, err := h.s.IsAdmin(ctx, chat.ID, user.ID)
	if err != nil {
		h.getLogEntry().WithError(err).Warn("cant check admin status")
	}
	if isAdmin || h.IsWhitelisted(user.ID) {
		return true, nil
	}

	if err := bot.DeleteChatMessage(ctx, h.s.GetBot(), chat.ID, m.MessageID); err != nil {
		h.getLogEntry().WithError(err).WithFields(log.Fields{
			"chat_id":    chat.ID,
			"message_id": m.MessageID,
		}).Warn("cant delete edited message")
		return false, nil
	}

	event := moderation.ContentEvent{
		UserID:    user.ID,
		ChatID:    chat.ID,
		MessageID: m.MessageID,
		Kind:      moderation.ContentKindText,
	}
	h.audit(ctx, event, moderation.Verdict{}, db.AuditActionEditedDeleted, h.ledger.WarningCount(user.ID), "")

	notice := fmt.Sprintf("✏️ %s, edited messages are not allowed here and yours was removed. Please send a new message instead.", bot.GetUN(user))
	if err := bot.SendNotice(ctx, h.s.GetBot(), chat.ID, notice); err != nil {
		h.getLogEntry().WithError(err).Warn("cant send edit notice")
	}
	return false, nil
}

func (h *Moderation) handleNewMembers(ctx context.Context, m *api.Message, chat *api.Chat) (bool, error) {
	for _, member := range m.NewChatMembers {
		if member.IsBot {
			continue
		}
		// First touch starts the tenure clock.
		h.ledger.Score(member.ID)

		welcome := "👋 Welcome, " + bot.GetFullName(&member) + "! Keep it on-topic and be kind. Rule-breaking messages are removed, three removals mean a ban."
		if err := bot.SendNotice(ctx, h.s.GetBot(), chat.ID, welcome); err != nil {
			h.getLogEntry().WithError(err).Warn("cant send welcome")
		}
	}
	return true, nil
}

func (h *Moderation) buildEvent(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User) (moderation.ContentEvent, error) {
	event := moderation.ContentEvent{
		UserID:    user.ID,
		ChatID:    chat.ID,
		MessageID: m.MessageID,
		Timestamp: time.Unix(int64(m.Date), 0),
		Kind:      moderation.ContentKindText,
		Text:      m.Text,
		Caption:   m.Caption,
	}

	switch bot.GetMessageType(m) {
	case bot.MessageTypePhoto:
		if len(m.Photo) == 0 {
			break
		}
		event.Kind = moderation.ContentKindImage
		// Largest rendition is last.
		data, err := h.downloadFile(ctx, m.Photo[len(m.Photo)-1].FileID)
		if err != nil {
			return event, errors.WithMessage(err, "cant download photo")
		}
		event.ImageData = data
	case bot.MessageTypeDocument:
		event.Kind = moderation.ContentKindDocument
		if strings.HasPrefix(m.Document.MimeType, "image/") {
			data, err := h.downloadFile(ctx, m.Document.FileID)
			if err != nil {
				return event, errors.WithMessage(err, "cant download document")
			}
			event.ImageData = data
		}
	case bot.MessageTypeSticker, bot.MessageTypeVideo:
		// No payload worth scanning, the caption still goes through the
		// text rules.
	}
	return event, nil
}

func (h *Moderation) classify(event moderation.ContentEvent, tier moderation.Tier) moderation.Verdict {
	if len(event.ImageData) > 0 {
		result, err := h.analyzer.Classify(event.ImageData, event.Caption)
		if err != nil {
			h.getLogEntry().WithError(err).Warn("cant analyze image, removing it")
			return moderation.Verdict{IsSafe: false, Tier: tier}
		}
		if !result.IsSafe {
			return moderation.Verdict{
				IsSafe:     false,
				Violations: []moderation.RuleHit{{Type: result.Reason, Severity: moderation.SeverityHigh}},
				Tier:       tier,
			}
		}
		// Captions still go through the text rules.
		if event.Caption != "" {
			return h.textFilter.Classify(event.Caption, tier)
		}
		return moderation.Verdict{IsSafe: true, Tier: tier}
	}

	text := event.Text
	if text == "" {
		text = event.Caption
	}
	return h.textFilter.Classify(text, tier)
}

func (h *Moderation) dispatch(ctx context.Context, actions []moderation.Action) {
	b := h.s.GetBot()
	for _, action := range actions {
		var err error
		switch {
		case action.Delete != nil:
			err = bot.DeleteChatMessage(ctx, b, action.Delete.ChatID, action.Delete.MessageID)
		case action.Ban != nil:
			err = bot.BanUserFromChat(ctx, b, action.Ban.UserID, action.Ban.ChatID)
		case action.Notice != nil:
			err = bot.SendNotice(ctx, b, action.Notice.ChatID, action.Notice.Text)
		case action.Report != nil:
			err = bot.SendNotice(ctx, b, action.Report.AdminID, action.Report.Text)
		}
		if err != nil {
			h.getLogEntry().WithError(err).Warn("cant carry out moderation action")
		}
	}
}

func (h *Moderation) audit(ctx context.Context, event moderation.ContentEvent, verdict moderation.Verdict, action string, warningCount int, caseRef string) {
	categories := make([]string, 0, len(verdict.Violations))
	for _, hit := range verdict.Violations {
		categories = append(categories, hit.Type)
	}
	_, err := h.s.GetDB().InsertAuditEvent(ctx, &db.AuditEvent{
		ChatID:       event.ChatID,
		UserID:       event.UserID,
		MessageID:    event.MessageID,
		ContentKind:  string(event.Kind),
		Categories:   strings.Join(categories, ","),
		Action:       action,
		WarningCount: warningCount,
		CaseRef:      caseRef,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		h.getLogEntry().WithError(err).Warn("cant write audit event")
	}
}

func (h *Moderation) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := h.s.GetBot().GetFileDirectURL(fileID)
	if err != nil {
		return nil, errors.WithMessage(err, "cant resolve file url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithMessage(err, "cant fetch file")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected file fetch status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (h *Moderation) getLogEntry() *log.Entry {
	return log.WithField("context", "moderation")
}
