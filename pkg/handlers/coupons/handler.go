package coupons

import (
	"context"
	"net/http"
	"strings"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
)

// Store is satisfied by *database.Queries.
type Store interface {
	ListCoupons(ctx context.Context) ([]database.Coupon, error)
	CreateCoupon(ctx context.Context, arg database.CouponParams) (database.Coupon, error)
	UpdateCoupon(ctx context.Context, id int32, arg database.CouponParams) (database.Coupon, error)
	DeleteCoupon(ctx context.Context, id int32) error
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

// List handles GET /api/automation/coupons
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListCoupons(r.Context())
	if err != nil {
		handlers.Fail(w, h.logger, "list_coupons", err)
		return
	}
	handlers.OK(w, h.logger, rows, map[string]interface{}{"total": len(rows)})
}

// Create handles POST /api/automation/coupons
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	arg := database.CouponParams{IsActive: true}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "create_coupon", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "create_coupon", err)
		return
	}
	c, err := h.store.CreateCoupon(r.Context(), arg)
	if err != nil {
		handlers.Fail(w, h.logger, "create_coupon", err)
		return
	}
	handlers.Created(w, h.logger, c)
}

// Update handles PUT /api/automation/coupons/{id}. The body replaces the
// coupon.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "update_coupon", err)
		return
	}
	arg := database.CouponParams{IsActive: true}
	if err := handlers.Decode(r, &arg); err != nil {
		handlers.Fail(w, h.logger, "update_coupon", err)
		return
	}
	if err := validate(&arg); err != nil {
		handlers.Fail(w, h.logger, "update_coupon", err)
		return
	}
	c, err := h.store.UpdateCoupon(r.Context(), id, arg)
	if err != nil {
		handlers.Fail(w, h.logger, "update_coupon", err)
		return
	}
	handlers.OK(w, h.logger, c, nil)
}

// Delete handles DELETE /api/automation/coupons/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.Fail(w, h.logger, "delete_coupon", err)
		return
	}
	if err := h.store.DeleteCoupon(r.Context(), id); err != nil {
		handlers.Fail(w, h.logger, "delete_coupon", err)
		return
	}
	handlers.Message(w, h.logger, "coupon deleted")
}

func validate(arg *database.CouponParams) error {
	arg.Title = strings.TrimSpace(arg.Title)
	arg.Code = strings.TrimSpace(arg.Code)
	arg.Bookmaker = strings.TrimSpace(arg.Bookmaker)
	switch {
	case arg.Title == "":
		return handlers.Invalid("title is required")
	case arg.Code == "":
		return handlers.Invalid("code is required")
	case arg.Bookmaker == "":
		return handlers.Invalid("bookmaker is required")
	case arg.TotalOdds != nil && *arg.TotalOdds < 1:
		return handlers.Invalid("total_odds must be at least 1.0")
	}
	return nil
}
