package database

import (
	"encoding/json"
	"time"
)

const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
	LogStatusSkipped = "skipped"

	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusSent      = "sent"
	PostStatusFailed    = "failed"
)

type Channel struct {
	ID             int32     `json:"id"`
	Name           string    `json:"name"`
	TelegramChatID string    `json:"telegram_chat_id"`
	Language       string    `json:"language"`
	Timezone       string    `json:"timezone"`
	ContentTypes   []string  `json:"content_types"`
	MaxPostsPerDay int32     `json:"max_posts_per_day"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Accepts reports whether the channel takes the given content type.
// An empty list accepts everything.
func (c Channel) Accepts(contentType string) bool {
	if len(c.ContentTypes) == 0 {
		return true
	}
	for _, t := range c.ContentTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

type AutomationRule struct {
	ID            int32      `json:"id"`
	Name          string     `json:"name"`
	ContentType   string     `json:"content_type"`
	ChannelIDs    []int32    `json:"channel_ids"`
	TimeSlots     []string   `json:"time_slots"`
	JitterMinutes int32      `json:"jitter_minutes"`
	DaysOfWeek    []int32    `json:"days_of_week"`
	UseAI         bool       `json:"use_ai"`
	IncludeImage  bool       `json:"include_image"`
	Enabled       bool       `json:"enabled"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type AutomationLog struct {
	ID             int64     `json:"id"`
	RuleID         *int32    `json:"rule_id,omitempty"`
	ChannelID      *int32    `json:"channel_id,omitempty"`
	ContentType    string    `json:"content_type"`
	SlotKey        *string   `json:"slot_key,omitempty"`
	Status         string    `json:"status"`
	MessageID      *int64    `json:"message_id,omitempty"`
	Error          *string   `json:"error,omitempty"`
	ContentPreview *string   `json:"content_preview,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ManualPost struct {
	ID          int32      `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	ImageURL    *string    `json:"image_url,omitempty"`
	ChannelIDs  []int32    `json:"channel_ids"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedBy   *int32     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type RSSSource struct {
	ID            int32      `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Language      string     `json:"language"`
	Category      string     `json:"category"`
	Priority      int32      `json:"priority"`
	IsActive      bool       `json:"is_active"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`
	ItemCount     int32      `json:"item_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Coupon struct {
	ID           int32      `json:"id"`
	Title        string     `json:"title"`
	Code         string     `json:"code"`
	Bookmaker    string     `json:"bookmaker"`
	AffiliateURL *string    `json:"affiliate_url,omitempty"`
	Description  *string    `json:"description,omitempty"`
	TotalOdds    *float64   `json:"total_odds,omitempty"`
	IsActive     bool       `json:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ContentUniqueness struct {
	ID          int64     `json:"id"`
	ChannelID   int32     `json:"channel_id"`
	ContentType string    `json:"content_type"`
	ContentHash string    `json:"content_hash"`
	ContentKey  string    `json:"content_key"`
	CreatedAt   time.Time `json:"created_at"`
}

type SportsAPI struct {
	ID            int32      `json:"id"`
	Name          string     `json:"name"`
	Provider      string     `json:"provider"`
	BaseURL       string     `json:"base_url"`
	APIKey        string     `json:"-"`
	Priority      int32      `json:"priority"`
	IsActive      bool       `json:"is_active"`
	DailyLimit    int32      `json:"daily_limit"`
	RequestsToday int32      `json:"requests_today"`
	UsageDate     *time.Time `json:"usage_date,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Manager struct {
	ID           int32      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ManagerSession struct {
	Token     string    `json:"token"`
	ManagerID int32     `json:"manager_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
