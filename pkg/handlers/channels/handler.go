package channels

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goalcast/core/pkg/content"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
)

// Store is satisfied by *database.Queries.
type Store interface {
	ListChannels(ctx context.Context, activeOnly bool) ([]database.Channel, error)
	GetChannel(ctx context.Context, id int32) (database.Channel, error)
	CreateChannel(ctx context.Context, arg database.ChannelParams) (database.Channel, error)
	UpdateChannel(ctx context.Context, id int32, arg database.ChannelParams) (database.Channel, error)
	DeleteChannel(ctx context.Context, id int32) error
}

type Handler struct {
	store  Store
	logger *logger.Logger
}

func NewHandler(store Store, logger *logger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// List handles GET /api/automation/channels
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	channels, err := h.store.ListChannels(r.Context(), activeOnly)
	if err != nil {
		handlers.Fail(w, h.logger, "list_channels", err)
		return
	}
	handlers.OK(w, h.logger, channels, map[string]interface{}{"total": len(channels)})
}

// Get handles GET /api/automation/channels/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "get_channel", err)
		return
	}
	ch, err := h.store.GetChannel(r.Context(), id)
	if err != nil {
		handlers.Fail(w, h.logger, "get_channel", err)
		return
	}
	handlers.OK(w, h.logger, ch, nil)
}

// Create handles POST /api/automation/channels
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	arg := database.ChannelParams{Language: "en", Timezone: "UTC", IsActive: true}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "create_channel", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "create_channel", err)
		return
	}
	ch, err := h.store.CreateChannel(r.Context(), arg)
	if err != nil {
		handlers.Fail(w, h.logger, "create_channel", err)
		return
	}
	h.logger.Info().
		Str("action", "channel_created").
		Int32("channel_id", ch.ID).
		Str("chat", ch.TelegramChatID).
		Msg("Channel created")
	handlers.Created(w, h.logger, ch)
}

// Update handles PUT /api/automation/channels/{id}. Omitted fields keep
// their current values.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "update_channel", err)
		return
	}
	current, err := h.store.GetChannel(r.Context(), id)
	if err != nil {
		handlers.Fail(w, h.logger, "update_channel", err)
		return
	}

	arg := database.ChannelParams{
		Name:           current.Name,
		TelegramChatID: current.TelegramChatID,
		Language:       current.Language,
		Timezone:       current.Timezone,
		ContentTypes:   current.ContentTypes,
		MaxPostsPerDay: current.MaxPostsPerDay,
		IsActive:       current.IsActive,
	}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "update_channel", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "update_channel", err)
		return
	}

	ch, err := h.store.UpdateChannel(r.Context(), id, arg)
	if err != nil {
		handlers.Fail(w, h.logger, "update_channel", err)
		return
	}
	handlers.OK(w, h.logger, ch, nil)
}

// Delete handles DELETE /api/automation/channels/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "delete_channel", err)
		return
	}
	if err := h.store.DeleteChannel(r.Context(), id); err != nil {
		handlers.Fail(w, h.logger, "delete_channel", err)
		return
	}
	handlers.Message(w, h.logger, "channel deleted")
}

func validate(arg *database.ChannelParams) error {
	arg.Name = strings.TrimSpace(arg.Name)
	arg.TelegramChatID = strings.TrimSpace(arg.TelegramChatID)
	arg.Language = strings.ToLower(strings.TrimSpace(arg.Language))

	if arg.Name == "" {
		return handlers.Invalid("name is required")
	}
	if arg.TelegramChatID == "" {
		return handlers.Invalid("telegram_chat_id is required")
	}
	if arg.Language == "" {
		arg.Language = "en"
	}
	if arg.Timezone == "" {
		arg.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(arg.Timezone); err != nil {
		return handlers.Invalid("unknown timezone %q", arg.Timezone)
	}
	if arg.MaxPostsPerDay < 0 {
		return handlers.Invalid("max_posts_per_day must not be negative")
	}
	for _, t := range arg.ContentTypes {
		if !content.ValidType(t) {
			return handlers.Invalid("unknown content type %q", t)
		}
	}
	return nil
}
