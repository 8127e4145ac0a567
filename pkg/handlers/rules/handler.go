package rules

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goalcast/core/pkg/content"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/scheduler"
	"github.com/goalcast/core/pkg/services"
)

const maxJitterMinutes = 180

// Store is satisfied by *database.Queries.
type Store interface {
	ListRules(ctx context.Context, enabledOnly bool) ([]database.AutomationRule, error)
	GetRule(ctx context.Context, id int32) (database.AutomationRule, error)
	CreateRule(ctx context.Context, arg database.RuleParams) (database.AutomationRule, error)
	UpdateRule(ctx context.Context, id int32, arg database.RuleParams) (database.AutomationRule, error)
	DeleteRule(ctx context.Context, id int32) error
}

// Runner is satisfied by *services.AutomationService.
type Runner interface {
	RunRule(ctx context.Context, ruleID int32, now time.Time) (services.RunSummary, error)
}

type Handler struct {
	store  Store
	runner Runner
	logger *logger.Logger
}

func NewHandler(store Store, runner Runner, logger *logger.Logger) *Handler {
	return &Handler{
		store:  store,
		runner: runner,
		logger: logger,
	}
}

// List handles GET /api/automation/rules
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListRules(r.Context(), r.URL.Query().Get("enabled") == "true")
	if err != nil {
		handlers.Fail(w, h.logger, "list_rules", err)
		return
	}
	handlers.OK(w, h.logger, rules, map[string]interface{}{"total": len(rules)})
}

// Create handles POST /api/automation/rules
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	arg := database.RuleParams{Enabled: true}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "create_rule", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "create_rule", err)
		return
	}
	rule, err := h.store.CreateRule(r.Context(), arg)
	if err != nil {
		handlers.Fail(w, h.logger, "create_rule", err)
		return
	}
	h.logger.Info().
		Str("action", "rule_created").
		Int32("rule_id", rule.ID).
		Str("content_type", rule.ContentType).
		Msg("Automation rule created")
	handlers.Created(w, h.logger, rule)
}

// Update handles PUT /api/automation/rules/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "update_rule", err)
		return
	}
	current, err := h.store.GetRule(r.Context(), id)
	if err != nil {
		handlers.Fail(w, h.logger, "update_rule", err)
		return
	}

	arg := database.RuleParams{
		Name:          current.Name,
		ContentType:   current.ContentType,
		ChannelIDs:    current.ChannelIDs,
		TimeSlots:     current.TimeSlots,
		JitterMinutes: current.JitterMinutes,
		DaysOfWeek:    current.DaysOfWeek,
		UseAI:         current.UseAI,
		IncludeImage:  current.IncludeImage,
		Enabled:       current.Enabled,
	}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "update_rule", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "update_rule", err)
		return
	}

	rule, err := h.store.UpdateRule(r.Context(), id, arg)
	if err != nil {
		handlers.Fail(w, h.logger, "update_rule", err)
		return
	}
	handlers.OK(w, h.logger, rule, nil)
}

// Delete handles DELETE /api/automation/rules/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "delete_rule", err)
		return
	}
	if err := h.store.DeleteRule(r.Context(), id); err != nil {
		handlers.Fail(w, h.logger, "delete_rule", err)
		return
	}
	handlers.Message(w, h.logger, "rule deleted")
}

// Run handles POST /api/automation/rules/{id}/run
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "run_rule", err)
		return
	}
	summary, err := h.runner.RunRule(r.Context(), id, time.Now())
	if err != nil {
		handlers.Fail(w, h.logger, "run_rule", err)
		return
	}
	handlers.OK(w, h.logger, summary, nil)
}

func validate(arg *database.RuleParams) error {
	arg.Name = strings.TrimSpace(arg.Name)
	if arg.Name == "" {
		return handlers.Invalid("name is required")
	}
	if !content.ValidType(arg.ContentType) {
		return handlers.Invalid("unknown content type %q", arg.ContentType)
	}
	if len(arg.ChannelIDs) == 0 {
		return handlers.Invalid("at least one channel is required")
	}
	if len(arg.TimeSlots) == 0 {
		return handlers.Invalid("at least one time slot is required")
	}
	for i, slot := range arg.TimeSlots {
		hour, minute, err := scheduler.ParseClock(slot)
		if err != nil {
			return handlers.Invalid("%v", err)
		}
		arg.TimeSlots[i] = clock(hour, minute)
	}
	if arg.JitterMinutes < 0 || arg.JitterMinutes > maxJitterMinutes {
		return handlers.Invalid("jitter_minutes must be between 0 and %d", maxJitterMinutes)
	}
	for _, d := range arg.DaysOfWeek {
		if d < 0 || d > 6 {
			return handlers.Invalid("days_of_week holds 0 (Sunday) to 6, got %d", d)
		}
	}
	return nil
}

func clock(hour, minute int) string {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}
