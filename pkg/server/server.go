package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goalcast/core/internal/app"
	"github.com/goalcast/core/pkg/handlers"
	"github.com/goalcast/core/pkg/handlers/auth"
	"github.com/goalcast/core/pkg/handlers/automation"
	"github.com/goalcast/core/pkg/handlers/channels"
	"github.com/goalcast/core/pkg/handlers/coupons"
	"github.com/goalcast/core/pkg/handlers/health"
	"github.com/goalcast/core/pkg/handlers/logs"
	"github.com/goalcast/core/pkg/handlers/posts"
	"github.com/goalcast/core/pkg/handlers/rsssources"
	"github.com/goalcast/core/pkg/handlers/rules"
	"github.com/goalcast/core/pkg/handlers/settings"
	"github.com/goalcast/core/pkg/handlers/sportsapis"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/middleware"
	"github.com/goalcast/core/pkg/models/api"
)

// Server represents the API server
type Server struct {
	router     *http.ServeMux
	httpServer *http.Server
	app        *app.App
	logger     *logger.Logger
	cors       middleware.CORSConfig
	handlers   struct {
		health     *health.Handler
		auth       *auth.Handler
		channels   *channels.Handler
		rules      *rules.Handler
		logs       *logs.Handler
		posts      *posts.Handler
		rssSources *rsssources.Handler
		sportsAPIs *sportsapis.Handler
		coupons    *coupons.Handler
		settings   *settings.Handler
		automation *automation.Handler
	}
}

// New creates a new server instance on top of the wired services
func New(a *app.App) *Server {
	cfg := a.Config
	log := a.Logger

	server := &Server{
		router: http.NewServeMux(),
		app:    a,
		logger: log,
		cors:   middleware.CORSConfig{Origins: cfg.Server.Origins},
	}

	q := a.Queries
	server.handlers.health = health.NewHandler(a.Pool, a.Providers, a.Text.Name(), log)
	server.handlers.auth = auth.NewHandler(a.Auth, strings.HasPrefix(cfg.Server.PublicURL, "https://"), log)
	server.handlers.channels = channels.NewHandler(q, log)
	server.handlers.rules = rules.NewHandler(q, a.Automation, log)
	server.handlers.logs = logs.NewHandler(q, log)
	server.handlers.posts = posts.NewHandler(a.ManualPosts, log)
	server.handlers.rssSources = rsssources.NewHandler(q, a.News, log)
	server.handlers.sportsAPIs = sportsapis.NewHandler(q, a.Providers, log)
	server.handlers.coupons = coupons.NewHandler(q, log)
	server.handlers.settings = settings.NewHandler(q, a.Telegram, a.Scorer, log)
	server.handlers.automation = automation.NewHandler(automation.Deps{
		Runner:     a.Automation,
		Dispatcher: a.ManualPosts,
		News:       a.News,
		Fixtures:   a.Providers,
		Logs:       q,
		Scorer:     a.Scorer,
		Location:   cfg.Location(),
		PublicURL:  cfg.Server.PublicURL,
	}, log)

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           middleware.RequestLogger(log, server.router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Generate may wait on AI and Telegram.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	return server
}

// Handler exposes the routed handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) public(h http.HandlerFunc) http.HandlerFunc {
	return s.cors.CORS(h)
}

func (s *Server) protected(h http.HandlerFunc) http.HandlerFunc {
	return s.cors.CORS(middleware.RequireManager(s.app.Auth, h))
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	r := s.router
	h := &s.handlers

	// Catch-all: answers preflights for every path, 404 for the rest
	r.HandleFunc("/", s.public(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSON(w, s.logger, http.StatusNotFound, api.Response{Success: false, Error: "not found"})
	}))

	// Health check endpoint
	r.HandleFunc("GET /health", s.public(h.health.HealthCheck))

	// Simple root endpoint
	r.HandleFunc("GET /{$}", s.public(func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintf(w, "Goalcast API Service - OK"); err != nil {
			http.Error(w, "Failed to write response", http.StatusInternalServerError)
		}
	}))

	// Auth endpoints
	r.HandleFunc("POST /api/auth/login", s.public(h.auth.Login))
	r.HandleFunc("POST /api/auth/logout", s.public(h.auth.Logout))
	r.HandleFunc("GET /api/auth/me", s.protected(h.auth.Me))

	// Channels
	r.HandleFunc("GET /api/automation/channels", s.protected(h.channels.List))
	r.HandleFunc("POST /api/automation/channels", s.protected(h.channels.Create))
	r.HandleFunc("GET /api/automation/channels/{id}", s.protected(h.channels.Get))
	r.HandleFunc("PUT /api/automation/channels/{id}", s.protected(h.channels.Update))
	r.HandleFunc("DELETE /api/automation/channels/{id}", s.protected(h.channels.Delete))

	// Rules
	r.HandleFunc("GET /api/automation/rules", s.protected(h.rules.List))
	r.HandleFunc("POST /api/automation/rules", s.protected(h.rules.Create))
	r.HandleFunc("PUT /api/automation/rules/{id}", s.protected(h.rules.Update))
	r.HandleFunc("DELETE /api/automation/rules/{id}", s.protected(h.rules.Delete))
	r.HandleFunc("POST /api/automation/rules/{id}/run", s.protected(h.rules.Run))

	// Logs
	r.HandleFunc("GET /api/automation/logs", s.protected(h.logs.List))

	// Manual posts
	r.HandleFunc("GET /api/automation/manual-posts", s.protected(h.posts.List))
	r.HandleFunc("POST /api/automation/manual-posts", s.protected(h.posts.Create))
	r.HandleFunc("PUT /api/automation/manual-posts/{id}", s.protected(h.posts.Update))
	r.HandleFunc("DELETE /api/automation/manual-posts/{id}", s.protected(h.posts.Delete))
	r.HandleFunc("POST /api/automation/manual-posts/{id}/send", s.protected(h.posts.Send))

	// RSS sources
	r.HandleFunc("GET /api/automation/rss-sources", s.protected(h.rssSources.List))
	r.HandleFunc("POST /api/automation/rss-sources", s.protected(h.rssSources.Create))
	r.HandleFunc("PUT /api/automation/rss-sources/{id}", s.protected(h.rssSources.Update))
	r.HandleFunc("DELETE /api/automation/rss-sources/{id}", s.protected(h.rssSources.Delete))
	r.HandleFunc("POST /api/automation/rss-sources/{id}/test", s.protected(h.rssSources.Test))

	// Sports APIs
	r.HandleFunc("GET /api/automation/sports-apis", s.protected(h.sportsAPIs.List))
	r.HandleFunc("POST /api/automation/sports-apis", s.protected(h.sportsAPIs.Create))
	r.HandleFunc("PUT /api/automation/sports-apis/{id}", s.protected(h.sportsAPIs.Update))
	r.HandleFunc("DELETE /api/automation/sports-apis/{id}", s.protected(h.sportsAPIs.Delete))

	// Coupons
	r.HandleFunc("GET /api/automation/coupons", s.protected(h.coupons.List))
	r.HandleFunc("POST /api/automation/coupons", s.protected(h.coupons.Create))
	r.HandleFunc("PUT /api/automation/coupons/{id}", s.protected(h.coupons.Update))
	r.HandleFunc("DELETE /api/automation/coupons/{id}", s.protected(h.coupons.Delete))

	// Settings
	r.HandleFunc("GET /api/automation/settings", s.protected(h.settings.List))
	r.HandleFunc("PUT /api/automation/settings/{key}", s.protected(h.settings.Put))

	// Content and runs
	r.HandleFunc("POST /api/automation/generate", s.protected(h.automation.Generate))
	r.HandleFunc("GET /api/automation/news", s.protected(h.automation.News))
	r.HandleFunc("GET /api/automation/matches", s.protected(h.automation.Matches))
	r.HandleFunc("GET /api/automation/timeline", s.protected(h.automation.Timeline))
	r.HandleFunc("GET /api/automation/stats", s.protected(h.automation.Stats))
	r.HandleFunc("POST /api/automation/cron", s.public(middleware.CronSecret(s.app.Config.Server.CronSecret, h.automation.Cron)))
	r.HandleFunc("GET /api/automation/feed.xml", s.public(h.automation.Feed))
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info().
		Str("action", "server_start").
		Str("addr", s.httpServer.Addr).
		Msg("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Str("action", "server_shutdown").Msg("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
