package posts

import (
	"context"
	"net/http"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/middleware"
	"github.com/goalcast/core/pkg/models/api"
)

// Service is satisfied by *services.ManualPostService.
type Service interface {
	List(ctx context.Context, status *string, limit, offset int32) ([]database.ManualPost, error)
	Get(ctx context.Context, id int32) (database.ManualPost, error)
	Create(ctx context.Context, arg database.ManualPostParams) (database.ManualPost, error)
	Update(ctx context.Context, id int32, arg database.ManualPostParams) (database.ManualPost, error)
	Delete(ctx context.Context, id int32) error
	Send(ctx context.Context, id int32) (database.ManualPost, error)
}

// Handler serves the manual post endpoints.
type Handler struct {
	service Service
	logger  *logger.Logger
}

func NewHandler(service Service, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// List handles GET /api/automation/manual-posts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := handlers.QueryInt(r, "limit", 50, 100)
	offset := handlers.QueryInt(r, "offset", 0, 1<<20)
	posts, err := h.service.List(r.Context(), handlers.QueryString(r, "status"), int32(limit), int32(offset))
	if err != nil {
		handlers.Fail(w, h.logger, "list_manual_posts", err)
		return
	}
	handlers.OK(w, h.logger, posts, api.PaginationInfo{Limit: limit, Offset: offset, Count: len(posts)})
}

// Create handles POST /api/automation/manual-posts
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var arg database.ManualPostParams
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "create_manual_post", err)
		return
	}
	if m, ok := middleware.ManagerFromContext(r.Context()); ok {
		arg.CreatedBy = &m.ID
	}
	post, err := h.service.Create(r.Context(), arg)
	if err != nil {
		handlers.Fail(w, h.logger, "create_manual_post", err)
		return
	}
	h.logger.Info().
		Str("action", "manual_post_created").
		Int32("post_id", post.ID).
		Str("status", post.Status).
		Msg("Manual post created")
	handlers.Created(w, h.logger, post)
}

// Update handles PUT /api/automation/manual-posts/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "update_manual_post", err)
		return
	}
	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		handlers.Fail(w, h.logger, "update_manual_post", err)
		return
	}
	arg := database.ManualPostParams{
		Title:       current.Title,
		Content:     current.Content,
		ImageURL:    current.ImageURL,
		ChannelIDs:  current.ChannelIDs,
		ScheduledAt: current.ScheduledAt,
		CreatedBy:   current.CreatedBy,
	}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "update_manual_post", err)
		return
	}
	post, err := h.service.Update(r.Context(), id, arg)
	if err != nil {
		handlers.Fail(w, h.logger, "update_manual_post", err)
		return
	}
	handlers.OK(w, h.logger, post, nil)
}

// Delete handles DELETE /api/automation/manual-posts/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "delete_manual_post", err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		handlers.Fail(w, h.logger, "delete_manual_post", err)
		return
	}
	handlers.Message(w, h.logger, "manual post deleted")
}

// Send handles POST /api/automation/manual-posts/{id}/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "send_manual_post", err)
		return
	}
	post, err := h.service.Send(r.Context(), id)
	if err != nil && post.Status == database.PostStatusFailed {
		// Every channel rejected the post; the post itself was updated.
		h.logger.Warn().
			Err(err).
			Str("action", "manual_post_failed").
			Int32("post_id", id).
			Msg("Manual post could not be delivered")
		handlers.JSON(w, h.logger, http.StatusBadGateway, api.Response{Success: false, Data: post, Error: err.Error()})
		return
	}
	if err != nil {
		handlers.Fail(w, h.logger, "send_manual_post", err)
		return
	}
	handlers.OK(w, h.logger, post, nil)
}
