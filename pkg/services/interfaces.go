package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goalcast/core/pkg/database"
)

// The stores below are satisfied by *database.Queries.

type ChannelStore interface {
	ListChannels(ctx context.Context, activeOnly bool) ([]database.Channel, error)
	GetChannel(ctx context.Context, id int32) (database.Channel, error)
	GetChannelsByIDs(ctx context.Context, ids []int32) ([]database.Channel, error)
}

type LogStore interface {
	CreateLog(ctx context.Context, arg database.CreateLogParams) (database.AutomationLog, error)
}

type SettingStore interface {
	GetSetting(ctx context.Context, key string) (database.Setting, error)
}

type AutomationStore interface {
	ChannelStore
	LogStore
	SettingStore
	ListRules(ctx context.Context, enabledOnly bool) ([]database.AutomationRule, error)
	GetRule(ctx context.Context, id int32) (database.AutomationRule, error)
	TouchRule(ctx context.Context, id int32, at time.Time) error
	HasSuccessfulSlot(ctx context.Context, slotKey string, channelID int32) (bool, error)
	CountSlotFailures(ctx context.Context, slotKey string, channelID int32) (int64, error)
	CountChannelPostsSince(ctx context.Context, channelID int32, since time.Time) (int64, error)
	CountLogsByStatusSince(ctx context.Context, since time.Time) ([]database.StatusCount, error)
	CountContentUniqueness(ctx context.Context) (int64, error)
}

type ManualPostStore interface {
	ChannelStore
	LogStore
	ListManualPosts(ctx context.Context, status *string, limit, offset int32) ([]database.ManualPost, error)
	GetManualPost(ctx context.Context, id int32) (database.ManualPost, error)
	CreateManualPost(ctx context.Context, arg database.ManualPostParams) (database.ManualPost, error)
	UpdateManualPost(ctx context.Context, id int32, arg database.ManualPostParams) (database.ManualPost, error)
	DeleteManualPost(ctx context.Context, id int32) error
	SetManualPostResult(ctx context.Context, id int32, status string, sentAt *time.Time, errMsg *string) error
	ClaimDueManualPosts(ctx context.Context, now time.Time, limit int32) ([]database.ManualPost, error)
}

type AuthStore interface {
	GetManagerByEmail(ctx context.Context, email string) (database.Manager, error)
	UpsertManager(ctx context.Context, arg database.CreateManagerParams) (database.Manager, error)
	TouchManagerLogin(ctx context.Context, id int32, at time.Time) error
	CreateSession(ctx context.Context, token string, managerID int32, expiresAt time.Time) (database.ManagerSession, error)
	GetSessionManager(ctx context.Context, token string, now time.Time) (database.Manager, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type RSSStore interface {
	ListRSSSources(ctx context.Context, activeOnly bool, language *string) ([]database.RSSSource, error)
	GetRSSSource(ctx context.Context, id int32) (database.RSSSource, error)
	RecordRSSFetch(ctx context.Context, id int32, at time.Time, fetchErr *string, itemCount int32) error
	InsertRSSSourceIfMissing(ctx context.Context, arg database.RSSSourceParams) (bool, error)
}

// Marker records and checks posted content keys per channel. MarkUsed
// reports false when the key is already taken.
type Marker interface {
	IsUsed(ctx context.Context, channelID int32, contentType, key string) (bool, error)
	MarkUsed(ctx context.Context, channelID int32, contentType, key string) (bool, error)
	Release(ctx context.Context, channelID int32, contentType, key string) error
}

// Setting keys understood by the services.
const (
	SettingAutomationEnabled = "automation_enabled"
	SettingTelegramBotToken  = "telegram_bot_token"
	SettingDefaultLanguage   = "default_language"
	// JSON array of extra terms that zero a news item's score.
	SettingNewsExclusions = "news_exclusions"
)

// settingBool reads a JSON boolean setting, returning def when it is
// missing or malformed.
func settingBool(ctx context.Context, store SettingStore, key string, def bool) bool {
	s, err := store.GetSetting(ctx, key)
	if err != nil {
		return def
	}
	var v bool
	if err := json.Unmarshal(s.Value, &v); err != nil {
		return def
	}
	return v
}

// SettingString reads a JSON string setting; "" when missing.
func SettingString(ctx context.Context, store SettingStore, key string) string {
	s, err := store.GetSetting(ctx, key)
	if err != nil {
		return ""
	}
	var v string
	if err := json.Unmarshal(s.Value, &v); err != nil {
		return ""
	}
	return v
}

// SettingStrings reads a JSON string array setting; missing or malformed
// values yield nil.
func SettingStrings(ctx context.Context, store SettingStore, key string) []string {
	s, err := store.GetSetting(ctx, key)
	if err != nil {
		return nil
	}
	var v []string
	if err := json.Unmarshal(s.Value, &v); err != nil {
		return nil
	}
	return v
}
