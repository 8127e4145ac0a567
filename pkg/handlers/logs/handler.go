package logs

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/models/api"
)

// Store is satisfied by *database.Queries.
type Store interface {
	ListLogs(ctx context.Context, arg database.ListLogsParams) ([]database.AutomationLog, error)
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

// List handles GET /api/automation/logs
// Filters: channel_id, rule_id, status, content_type, since (RFC3339), limit, offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	arg := database.ListLogsParams{
		Status:      handlers.QueryString(r, "status"),
		ContentType: handlers.QueryString(r, "content_type"),
		Limit:       int32(handlers.QueryInt(r, "limit", 50, 500)),
		Offset:      int32(handlers.QueryInt(r, "offset", 0, 1<<20)),
	}

	var err error
	if arg.ChannelID, err = optionalID(r, "channel_id"); err != nil {
		handlers.Fail(w, h.logger, "list_logs", err)
		return
	}
	if arg.RuleID, err = optionalID(r, "rule_id"); err != nil {
		handlers.Fail(w, h.logger, "list_logs", err)
		return
	}
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			handlers.Fail(w, h.logger, "list_logs", handlers.Invalid("since must be RFC3339"))
			return
		}
		arg.Since = &since
	}

	rows, err := h.store.ListLogs(r.Context(), arg)
	if err != nil {
		handlers.Fail(w, h.logger, "list_logs", err)
		return
	}
	handlers.OK(w, h.logger, rows, api.PaginationInfo{
		Limit:  int(arg.Limit),
		Offset: int(arg.Offset),
		Count:  len(rows),
	})
}

func optionalID(r *http.Request, key string) (*int32, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return nil, handlers.Invalid("invalid %s %q", key, v)
	}
	out := int32(id)
	return &out, nil
}
