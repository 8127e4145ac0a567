package sportsapis

import (
	"context"
	"net/http"
	"strings"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/services"
)

// Store is satisfied by *database.Queries.
type Store interface {
	ListSportsAPIs(ctx context.Context, activeOnly bool) ([]database.SportsAPI, error)
	CreateSportsAPI(ctx context.Context, arg database.SportsAPIParams) (database.SportsAPI, error)
	UpdateSportsAPI(ctx context.Context, id int32, arg database.SportsAPIParams) (database.SportsAPI, error)
	DeleteSportsAPI(ctx context.Context, id int32) error
}

// Invalidator is satisfied by *services.SportsProviders.
type Invalidator interface {
	Invalidate()
}

// Handler manages sports API credentials. Keys are write-only: responses
// never carry them.
type Handler struct {
	store     Store
	providers Invalidator
	logger    *logger.Logger
}

func NewHandler(store Store, providers Invalidator, logger *logger.Logger) *Handler {
	return &Handler{
		store:     store,
		providers: providers,
		logger:    logger,
	}
}

// List handles GET /api/automation/sports-apis
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListSportsAPIs(r.Context(), false)
	if err != nil {
		handlers.Fail(w, h.logger, "list_sports_apis", err)
		return
	}
	handlers.OK(w, h.logger, rows, map[string]interface{}{"total": len(rows)})
}

// Create handles POST /api/automation/sports-apis
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	arg := database.SportsAPIParams{Provider: "api-football", IsActive: true}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "create_sports_api", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "create_sports_api", err)
		return
	}
	if arg.APIKey == "" {
		handlers.Fail(w, h.logger, "create_sports_api", handlers.Invalid("api_key is required"))
		return
	}
	row, err := h.store.CreateSportsAPI(r.Context(), arg)
	if err != nil {
		handlers.Fail(w, h.logger, "create_sports_api", err)
		return
	}
	h.providers.Invalidate()
	h.logger.Info().
		Str("action", "sports_api_created").
		Int32("sports_api_id", row.ID).
		Str("provider", row.Provider).
		Msg("Sports API added")
	handlers.Created(w, h.logger, row)
}

// Update handles PUT /api/automation/sports-apis/{id}. An empty api_key
// keeps the stored one.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "update_sports_api", err)
		return
	}
	current, err := h.find(r.Context(), id)
	if err != nil {
		handlers.Fail(w, h.logger, "update_sports_api", err)
		return
	}
	arg := database.SportsAPIParams{
		Name:       current.Name,
		Provider:   current.Provider,
		BaseURL:    current.BaseURL,
		Priority:   current.Priority,
		IsActive:   current.IsActive,
		DailyLimit: current.DailyLimit,
	}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "update_sports_api", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "update_sports_api", err)
		return
	}
	row, err := h.store.UpdateSportsAPI(r.Context(), id, arg)
	if err != nil {
		handlers.Fail(w, h.logger, "update_sports_api", err)
		return
	}
	h.providers.Invalidate()
	handlers.OK(w, h.logger, row, nil)
}

// Delete handles DELETE /api/automation/sports-apis/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "delete_sports_api", err)
		return
	}
	if err := h.store.DeleteSportsAPI(r.Context(), id); err != nil {
		handlers.Fail(w, h.logger, "delete_sports_api", err)
		return
	}
	h.providers.Invalidate()
	handlers.Message(w, h.logger, "sports api deleted")
}

func (h *Handler) find(ctx context.Context, id int32) (database.SportsAPI, error) {
	rows, err := h.store.ListSportsAPIs(ctx, false)
	if err != nil {
		return database.SportsAPI{}, err
	}
	for _, row := range rows {
		if row.ID == id {
			return row, nil
		}
	}
	return database.SportsAPI{}, database.ErrNotFound
}

func validate(arg *database.SportsAPIParams) error {
	arg.Name = strings.TrimSpace(arg.Name)
	arg.Provider = strings.ToLower(strings.TrimSpace(arg.Provider))
	arg.APIKey = strings.TrimSpace(arg.APIKey)
	if arg.Name == "" {
		return handlers.Invalid("name is required")
	}
	if !services.SupportedProvider(arg.Provider) {
		return handlers.Invalid("unsupported provider %q", arg.Provider)
	}
	if arg.DailyLimit < 0 {
		return handlers.Invalid("daily_limit must not be negative")
	}
	return nil
}
