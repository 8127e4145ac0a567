package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/services"
)

// Store is satisfied by *database.Queries.
type Store interface {
	ListSettings(ctx context.Context) ([]database.Setting, error)
	UpsertSetting(ctx context.Context, key string, value json.RawMessage) (database.Setting, error)
}

// TokenSetter is satisfied by *telegram.Client.
type TokenSetter interface {
	SetToken(token string)
}

// ExclusionSetter is satisfied by *scoring.NewsScorer.
type ExclusionSetter interface {
	SetExclusions(terms ...string)
}

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

const maskedValue = `"********"`

type Handler struct {
	store  Store
	bot    TokenSetter
	scorer ExclusionSetter
	logger *logger.Logger
}

func NewHandler(store Store, bot TokenSetter, scorer ExclusionSetter, logger *logger.Logger) *Handler {
	return &Handler{
		store:  store,
		bot:    bot,
		scorer: scorer,
		logger: logger,
	}
}

// List handles GET /api/automation/settings. Secrets are masked.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListSettings(r.Context())
	if err != nil {
		handlers.Fail(w, h.logger, "list_settings", err)
		return
	}
	for i := range rows {
		if rows[i].Key == services.SettingTelegramBotToken {
			rows[i].Value = json.RawMessage(maskedValue)
		}
	}
	handlers.OK(w, h.logger, rows, nil)
}

type putRequest struct {
	Value json.RawMessage `json:"value"`
}

// Put handles PUT /api/automation/settings/{key} with body {"value": <json>}
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !keyPattern.MatchString(key) {
		handlers.Fail(w, h.logger, "put_setting", handlers.Invalid("invalid setting key %q", key))
		return
	}
	var req putRequest
	if err := handlers.Decode(r, &req); err != nil {
		handlers.Fail(w, h.logger, "put_setting", err)
		return
	}
	if len(req.Value) == 0 {
		handlers.Fail(w, h.logger, "put_setting", handlers.Invalid("value is required"))
		return
	}

	var token string
	var exclusions []string
	switch key {
	case services.SettingAutomationEnabled:
		var b bool
		if json.Unmarshal(req.Value, &b) != nil {
			handlers.Fail(w, h.logger, "put_setting", handlers.Invalid("%s must be a boolean", key))
			return
		}
	case services.SettingTelegramBotToken, services.SettingDefaultLanguage:
		if json.Unmarshal(req.Value, &token) != nil {
			handlers.Fail(w, h.logger, "put_setting", handlers.Invalid("%s must be a string", key))
			return
		}
	case services.SettingNewsExclusions:
		if json.Unmarshal(req.Value, &exclusions) != nil {
			handlers.Fail(w, h.logger, "put_setting", handlers.Invalid("%s must be an array of strings", key))
			return
		}
	}

	s, err := h.store.UpsertSetting(r.Context(), key, req.Value)
	if err != nil {
		handlers.Fail(w, h.logger, "put_setting", err)
		return
	}

	if key == services.SettingTelegramBotToken {
		if h.bot != nil && token != "" {
			h.bot.SetToken(token)
		}
		s.Value = json.RawMessage(maskedValue)
	}
	if key == services.SettingNewsExclusions && h.scorer != nil {
		h.scorer.SetExclusions(exclusions...)
	}

	h.logger.Info().
		Str("action", "setting_updated").
		Str("key", key).
		Msg("Setting updated")
	handlers.OK(w, h.logger, s, nil)
}
