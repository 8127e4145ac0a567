package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/middleware"
	"github.com/goalcast/core/pkg/services"
)

// Sessions is satisfied by *services.AuthService.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Logout(ctx context.Context, token string) error
}

type Handler struct {
	sessions     Sessions
	secureCookie bool
	logger       *logger.Logger
}

func NewHandler(sessions Sessions, secureCookie bool, logger *logger.Logger) *Handler {
	return &Handler{
		sessions:     sessions,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := handlers.Decode(r, &req); err != nil {
		handlers.Fail(w, h.logger, "login", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		handlers.Fail(w, h.logger, "login", handlers.Invalid("email and password are required"))
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handlers.Fail(w, h.logger, "login", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info().
		Str("action", "login").
		Int32("manager_id", sess.Manager.ID).
		Msg("Manager logged in")
	handlers.OK(w, h.logger, sess, nil)
}

// Logout handles POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			handlers.Fail(w, h.logger, "logout", err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	handlers.Message(w, h.logger, "logged out")
}

// Me handles GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	m, ok := middleware.ManagerFromContext(r.Context())
	if !ok {
		handlers.Fail(w, h.logger, "me", services.ErrUnauthorized)
		return
	}
	handlers.OK(w, h.logger, m, nil)
}
