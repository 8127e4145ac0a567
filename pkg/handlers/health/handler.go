package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/goalcast/core/pkg/database/pool"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/models/api"
	"github.com/goalcast/core/pkg/sportsapi"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderChain exposes the sports provider chain for breaker reporting.
type ProviderChain interface {
	Chain(ctx context.Context) *sportsapi.MultiProvider
}

// Handler handles health check requests
type Handler struct {
	db        Pinger
	providers ProviderChain
	aiName    string
	logger    *logger.Logger
}

// NewHandler creates a new health handler. providers may be nil.
func NewHandler(db Pinger, providers ProviderChain, aiName string, log *logger.Logger) *Handler {
	return &Handler{
		db:        db,
		providers: providers,
		aiName:    aiName,
		logger:    log,
	}
}

// HealthCheck handles the /health endpoint
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	response := api.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		AI:        h.aiName,
	}
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn().
			Err(err).
			Str("action", "health_db_ping_failed").
			Msg("Database ping failed")
		response.Status = "degraded"
		response.Database = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	if p, ok := h.db.(*pgxpool.Pool); ok {
		stats := pool.GetStats(p)
		response.Pool = &stats
	}

	if h.providers != nil {
		response.Providers = map[string]string{}
		for _, p := range h.providers.Chain(ctx).Providers() {
			state := "n/a"
			if b, ok := p.(interface{ BreakerState() string }); ok {
				state = b.BreakerState()
			}
			response.Providers[p.Name()] = state
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().
			Err(err).
			Str("action", "health_check_failed").
			Str("endpoint", "/health").
			Msg("Failed to encode health response")
		return
	}

	h.logger.Debug().
		Str("action", "health_check").
		Str("endpoint", "/health").
		Str("method", r.Method).
		Str("remote_addr", r.RemoteAddr).
		Int("status_code", statusCode).
		Dur("duration", time.Since(start)).
		Msg("Health check completed")
}
