package automation

import (
	"context"
	"net/http"
	"time"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/models/api"
	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/scheduler"
	"github.com/goalcast/core/pkg/scoring"
	"github.com/goalcast/core/pkg/services"
	"github.com/goalcast/core/pkg/sportsapi"
)

// Runner is satisfied by *services.AutomationService.
type Runner interface {
	Generate(ctx context.Context, req services.GenerateRequest, now time.Time) (*services.GenerateResult, error)
	Timeline(ctx context.Context, date time.Time) ([]scheduler.Slot, error)
	Stats(ctx context.Context, now time.Time) (*services.Stats, error)
	RunDue(ctx context.Context, now time.Time) (services.RunSummary, error)
}

// Dispatcher is satisfied by *services.ManualPostService.
type Dispatcher interface {
	DispatchScheduled(ctx context.Context, now time.Time) (int, error)
}

// NewsSource is satisfied by *services.NewsService.
type NewsSource interface {
	News(ctx context.Context, language string) ([]rss.Item, error)
}

// Fixtures is satisfied by any sportsapi.Provider.
type Fixtures interface {
	FixturesByDate(ctx context.Context, date time.Time, tz string) ([]sportsapi.Fixture, error)
	LiveFixtures(ctx context.Context) ([]sportsapi.Fixture, error)
}

// LogStore is satisfied by *database.Queries.
type LogStore interface {
	ListLogs(ctx context.Context, arg database.ListLogsParams) ([]database.AutomationLog, error)
}

type Deps struct {
	Runner     Runner
	Dispatcher Dispatcher
	News       NewsSource
	Fixtures   Fixtures
	Logs       LogStore
	Scorer     *scoring.NewsScorer
	Location   *time.Location
	PublicURL  string
}

// Handler serves content generation, previews and the run endpoints.
type Handler struct {
	deps   Deps
	logger *logger.Logger
	now    func() time.Time
}

func NewHandler(deps Deps, logger *logger.Logger) *Handler {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Scorer == nil {
		deps.Scorer = scoring.NewNewsScorer()
	}
	return &Handler{deps: deps, logger: logger, now: time.Now}
}

// Generate handles POST /api/automation/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req services.GenerateRequest
	if err := handlers.Decode(r, &req); err != nil {
		handlers.Fail(w, h.logger, "generate", err)
		return
	}
	if req.ChannelID <= 0 {
		handlers.Fail(w, h.logger, "generate", handlers.Invalid("channel_id is required"))
		return
	}

	res, err := h.deps.Runner.Generate(r.Context(), req, h.now())
	if err != nil && res != nil {
		// Generated but Telegram refused it; the attempt is logged.
		handlers.JSON(w, h.logger, http.StatusBadGateway, api.Response{Success: false, Data: res, Error: err.Error()})
		return
	}
	if err != nil {
		handlers.Fail(w, h.logger, "generate", err)
		return
	}
	handlers.OK(w, h.logger, res, nil)
}

// News handles GET /api/automation/news?language=en&limit=20
func (h *Handler) News(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("language")
	if lang == "" {
		lang = "en"
	}
	limit := handlers.QueryInt(r, "limit", 20, 100)

	items, err := h.deps.News.News(r.Context(), lang)
	if err != nil {
		handlers.Fail(w, h.logger, "news", err)
		return
	}
	ranked := h.deps.Scorer.Rank(items, h.now())
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	handlers.OK(w, h.logger, ranked, map[string]interface{}{"total": len(items), "language": lang})
}

// Matches handles GET /api/automation/matches?date=2006-01-02 or ?live=true
func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	if h.deps.Fixtures == nil {
		handlers.Fail(w, h.logger, "matches", handlers.Invalid("no sports API configured"))
		return
	}
	now := h.now()

	var (
		fixtures []sportsapi.Fixture
		err      error
	)
	if r.URL.Query().Get("live") == "true" {
		fixtures, err = h.deps.Fixtures.LiveFixtures(r.Context())
	} else {
		var date time.Time
		if date, err = h.parseDate(r, now); err != nil {
			handlers.Fail(w, h.logger, "matches", err)
			return
		}
		fixtures, err = h.deps.Fixtures.FixturesByDate(r.Context(), date, h.deps.Location.String())
	}
	if err != nil {
		handlers.Fail(w, h.logger, "matches", err)
		return
	}

	limit := handlers.QueryInt(r, "limit", 50, 200)
	ranked := scoring.RankMatches(fixtures, now)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	handlers.OK(w, h.logger, ranked, map[string]interface{}{"total": len(fixtures)})
}

// Timeline handles GET /api/automation/timeline?date=2006-01-02
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	date, err := h.parseDate(r, now)
	if err != nil {
		handlers.Fail(w, h.logger, "timeline", err)
		return
	}
	slots, err := h.deps.Runner.Timeline(r.Context(), date)
	if err != nil {
		handlers.Fail(w, h.logger, "timeline", err)
		return
	}
	handlers.OK(w, h.logger, slots, map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"timezone": h.deps.Location.String(),
		"total":    len(slots),
		"upcoming": len(scheduler.Upcoming(slots, now, len(slots))),
	})
}

// Stats handles GET /api/automation/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Runner.Stats(r.Context(), h.now())
	if err != nil {
		handlers.Fail(w, h.logger, "stats", err)
		return
	}
	handlers.OK(w, h.logger, stats, nil)
}

type cronResult struct {
	Automation  services.RunSummary `json:"automation"`
	ManualPosts int                 `json:"manual_posts"`
}

// Cron handles POST /api/automation/cron for external schedulers.
func (h *Handler) Cron(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	var res cronResult

	summary, err := h.deps.Runner.RunDue(r.Context(), now)
	if err != nil {
		handlers.Fail(w, h.logger, "cron_run_due", err)
		return
	}
	res.Automation = summary

	if h.deps.Dispatcher != nil {
		if res.ManualPosts, err = h.deps.Dispatcher.DispatchScheduled(r.Context(), now); err != nil {
			handlers.Fail(w, h.logger, "cron_dispatch", err)
			return
		}
	}

	h.logger.Info().
		Str("action", "cron_run").
		Int("due", summary.Due).
		Int("posted", summary.Posted).
		Int("failed", summary.Failed).
		Int("manual_posts", res.ManualPosts).
		Msg("External cron run completed")
	handlers.OK(w, h.logger, res, nil)
}

func (h *Handler) parseDate(r *http.Request, now time.Time) (time.Time, error) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return now.In(h.deps.Location), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, h.deps.Location)
	if err != nil {
		return time.Time{}, handlers.Invalid("date must be YYYY-MM-DD")
	}
	return d, nil
}
