package rsssources

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/services"
)

// Store is satisfied by *database.Queries.
type Store interface {
	ListRSSSources(ctx context.Context, activeOnly bool, language *string) ([]database.RSSSource, error)
	GetRSSSource(ctx context.Context, id int32) (database.RSSSource, error)
	CreateRSSSource(ctx context.Context, arg database.RSSSourceParams) (database.RSSSource, error)
	UpdateRSSSource(ctx context.Context, id int32, arg database.RSSSourceParams) (database.RSSSource, error)
	DeleteRSSSource(ctx context.Context, id int32) error
}

// News is satisfied by *services.NewsService.
type News interface {
	TestSource(ctx context.Context, id int32) (*services.SourceTestResult, error)
	Invalidate()
}

type Handler struct {
	store  Store
	news   News
	logger *logger.Logger
}

func NewHandler(store Store, news News, logger *logger.Logger) *Handler {
	return &Handler{
		store:  store,
		news:   news,
		logger: logger,
	}
}

// List handles GET /api/automation/rss-sources
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListRSSSources(r.Context(), r.URL.Query().Get("active") == "true", handlers.QueryString(r, "language"))
	if err != nil {
		handlers.Fail(w, h.logger, "list_rss_sources", err)
		return
	}
	handlers.OK(w, h.logger, sources, map[string]interface{}{"total": len(sources)})
}

// Create handles POST /api/automation/rss-sources
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	arg := database.RSSSourceParams{Language: "en", Category: "general", IsActive: true}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "create_rss_source", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "create_rss_source", err)
		return
	}
	src, err := h.store.CreateRSSSource(r.Context(), arg)
	if err != nil {
		handlers.Fail(w, h.logger, "create_rss_source", err)
		return
	}
	h.news.Invalidate()
	h.logger.Info().
		Str("action", "rss_source_created").
		Int32("source_id", src.ID).
		Str("url", src.URL).
		Msg("RSS source created")
	handlers.Created(w, h.logger, src)
}

// Update handles PUT /api/automation/rss-sources/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "update_rss_source", err)
		return
	}
	current, err := h.store.GetRSSSource(r.Context(), id)
	if err != nil {
		handlers.Fail(w, h.logger, "update_rss_source", err)
		return
	}
	arg := database.RSSSourceParams{
		Name:     current.Name,
		URL:      current.URL,
		Language: current.Language,
		Category: current.Category,
		Priority: current.Priority,
		IsActive: current.IsActive,
	}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "update_rss_source", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "update_rss_source", err)
		return
	}
	src, err := h.store.UpdateRSSSource(r.Context(), id, arg)
	if err != nil {
		handlers.Fail(w, h.logger, "update_rss_source", err)
		return
	}
	h.news.Invalidate()
	handlers.OK(w, h.logger, src, nil)
}

// Delete handles DELETE /api/automation/rss-sources/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "delete_rss_source", err)
		return
	}
	if err := h.store.DeleteRSSSource(r.Context(), id); err != nil {
		handlers.Fail(w, h.logger, "delete_rss_source", err)
		return
	}
	h.news.Invalidate()
	handlers.Message(w, h.logger, "rss source deleted")
}

// Test handles POST /api/automation/rss-sources/{id}/test
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "test_rss_source", err)
		return
	}
	res, err := h.news.TestSource(r.Context(), id)
	if err != nil {
		handlers.Fail(w, h.logger, "test_rss_source", err)
		return
	}
	handlers.OK(w, h.logger, res, nil)
}

func validate(arg *database.RSSSourceParams) error {
	arg.Name = strings.TrimSpace(arg.Name)
	arg.URL = strings.TrimSpace(arg.URL)
	arg.Language = strings.ToLower(strings.TrimSpace(arg.Language))
	if arg.Name == "" {
		return handlers.Invalid("name is required")
	}
	u, err := url.Parse(arg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return handlers.Invalid("url must be an absolute http(s) URL")
	}
	if arg.Language == "" {
		arg.Language = "en"
	}
	return nil
}
