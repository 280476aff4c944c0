package bot

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/prepguard/prepguard/internal/config"
	"github.com/prepguard/prepguard/internal/db"
)

const adminCacheTTL = 10 * time.Minute

type adminCacheEntry struct {
	isAdmin   bool
	expiresAt time.Time
}

type service struct {
	bot *api.BotAPI
	db  db.Client

	adminMu    sync.Mutex
	adminCache map[int64]map[int64]adminCacheEntry
}

func NewService(bot *api.BotAPI, db db.Client) *service {
	return &service{
		bot:        bot,
		db:         db,
		adminCache: make(map[int64]map[int64]adminCacheEntry),
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

// IsAdmin reports whether the user moderates the chat. Operator IDs from the
// config are always admins; chat membership is checked live and cached.
func (s *service) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	for _, adminID := range config.Get().AdminIDs {
		if adminID == userID {
			return true, nil
		}
	}

	s.adminMu.Lock()
	if chatAdmins, ok := s.adminCache[chatID]; ok {
		if entry, ok := chatAdmins[userID]; ok && time.Now().Before(entry.expiresAt) {
			s.adminMu.Unlock()
			return entry.isAdmin, nil
		}
	}
	s.adminMu.Unlock()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	chatMember, err := s.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			UserID: userID,
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
		},
	})
	if err != nil {
		return false, errors.WithMessage(err, "cant get chat member")
	}

	var isAdmin bool
	switch {
	case
		chatMember.IsCreator(),
		chatMember.IsAdministrator() && chatMember.CanRestrictMembers:
		isAdmin = true
	}

	s.adminMu.Lock()
	if _, ok := s.adminCache[chatID]; !ok {
		s.adminCache[chatID] = make(map[int64]adminCacheEntry)
	}
	s.adminCache[chatID][userID] = adminCacheEntry{
		isAdmin:   isAdmin,
		expiresAt: time.Now().Add(adminCacheTTL),
	}
	s.adminMu.Unlock()

	return isAdmin, nil
}

func (s *service) GetSettings(ctx context.Context, chatID int64) (*db.Settings, error) {
	settings, err := s.db.GetSettings(ctx, chatID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.DefaultSettings(chatID), nil
		}
		return nil, errors.WithMessage(err, "cant get settings")
	}
	return settings, nil
}

func (s *service) SetSettings(ctx context.Context, settings *db.Settings) error {
	return s.db.SetSettings(ctx, settings)
}

func (s *service) GetLanguage(ctx context.Context, chatID int64, user *api.User) string {
	settings, err := s.GetSettings(ctx, chatID)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("cant get chat language")
	}
	if settings != nil && settings.Language != "" {
		return settings.Language
	}
	if user != nil && user.LanguageCode != "" {
		return user.LanguageCode
	}
	return config.Get().DefaultLanguage
}
