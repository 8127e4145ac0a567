package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/models/api"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "goalcast_session"

type managerKey struct{}

// Authenticator resolves a session token to its manager.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (database.Manager, error)
}

// ManagerFromContext returns the manager attached by RequireManager.
func ManagerFromContext(ctx context.Context) (database.Manager, bool) {
	m, ok := ctx.Value(managerKey{}).(database.Manager)
	return m, ok
}

// WithManager attaches a manager to ctx.
func WithManager(ctx context.Context, m database.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, m)
}

// SessionToken reads the bearer token, falling back to the session cookie.
func SessionToken(r *http.Request) string {
	if token := bearer(r); token != "" {
		return token
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireManager rejects requests without a valid manager session
func RequireManager(auth Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := auth.Authenticate(r.Context(), SessionToken(r))
		if err != nil {
			unauthorized(w)
			return
		}
		next(w, r.WithContext(WithManager(r.Context(), m)))
	}
}

// CronSecret guards endpoints invoked by an external scheduler. An empty
// secret disables the endpoint entirely.
func CronSecret(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			unauthorized(w)
			return
		}
		next(w, r)
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(api.Response{Success: false, Error: "unauthorized"})
}
