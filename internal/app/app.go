// Package app wires the services shared by the api and cron binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goalcast/core/internal/config"
	"github.com/goalcast/core/pkg/ai"
	"github.com/goalcast/core/pkg/content"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/database/pool"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/scoring"
	"github.com/goalcast/core/pkg/services"
	"github.com/goalcast/core/pkg/telegram"
	"github.com/goalcast/core/pkg/uniqueness"
)

type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Pool    *pgxpool.Pool
	Queries *database.Queries

	Telegram   *telegram.Client
	Text       ai.TextGenerator
	Images     ai.ImageGenerator
	Providers  *services.SportsProviders
	News       *services.NewsService
	Uniqueness *uniqueness.Checker
	Scorer     *scoring.NewsScorer
	Registry   *content.Registry

	Automation  *services.AutomationService
	ManualPosts *services.ManualPostService
	Auth        *services.AuthService
}

// New connects to Postgres, applies the schema and builds every service.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, poolCfg *pool.Config) (*App, error) {
	db, err := connect(ctx, cfg.DatabaseURL(), poolCfg, log)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.LogDatabaseOperation("migrate", "schema", 0, time.Since(start), nil)

	queries := database.New(db)

	bot := telegram.NewClient(telegram.Config{
		Token:   cfg.Telegram.BotToken,
		Timeout: cfg.Telegram.Timeout,
		DryRun:  cfg.Telegram.DryRun,
	}, nil, log.WithComponent("telegram"))
	// A token saved from the dashboard wins over the environment.
	if token := services.SettingString(ctx, queries, services.SettingTelegramBotToken); token != "" {
		bot.SetToken(token)
	}

	text, images, err := ai.New(ctx, cfg.AI, &http.Client{Timeout: cfg.AI.Timeout}, log.WithComponent("ai"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure ai: %w", err)
	}

	fetchCfg := rss.DefaultFetcherConfig()
	fetchCfg.Workers = cfg.Automation.FetchWorkers
	fetchCfg.MaxAge = cfg.Automation.NewsMaxAge
	fetcher := rss.NewFetcher(nil, fetchCfg, log.WithComponent("rss"))

	providers := services.NewSportsProviders(queries, cfg.Sports, nil)
	news := services.NewNewsService(queries, fetcher, cfg.Automation.NewsCacheTTL)
	checker := uniqueness.New(queries)
	scorer := scoring.NewNewsScorer(services.SettingStrings(ctx, queries, services.SettingNewsExclusions)...)

	registry := content.NewRegistry(content.Deps{
		News:     news,
		Matches:  providers,
		Coupons:  queries,
		Text:     text,
		Images:   images,
		Dedupe:   checker,
		Scorer:   scorer,
		Timezone: cfg.Location(),
		Logger:   log.WithComponent("content"),
	})

	a := &App{
		Config:     cfg,
		Logger:     log,
		Pool:       db,
		Queries:    queries,
		Telegram:   bot,
		Text:       text,
		Images:     images,
		Providers:  providers,
		News:       news,
		Uniqueness: checker,
		Scorer:     scorer,
		Registry:   registry,
		Automation: services.NewAutomationService(queries, registry, bot, checker, services.AutomationOptions{
			Timezone:  cfg.Location(),
			DueWindow: cfg.Automation.DueWindow,
		}),
		ManualPosts: services.NewManualPostService(queries, bot),
		Auth:        services.NewAuthService(queries, cfg.Auth.SessionTTL),
	}

	log.Info().
		Str("action", "app_ready").
		Str("ai", text.Name()).
		Str("timezone", cfg.Automation.Timezone).
		Bool("telegram_dry_run", cfg.Telegram.DryRun).
		Msg("Services initialized")
	return a, nil
}

// Close releases the AI client and the pool.
func (a *App) Close() {
	ai.Close(a.Text)
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info().Msg("Database connection pool closed")
	}
}

// connect opens the pool, retrying the first ping while the database
// comes up.
func connect(ctx context.Context, url string, poolCfg *pool.Config, log *logger.Logger) (*pgxpool.Pool, error) {
	const maxRetries = 3
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		db, err := pool.New(ctx, url, poolCfg)
		if err == nil {
			log.Info().
				Str("action", "db_connected").
				Msg("Database connection pool established")
			return db, nil
		}
		lastErr = err

		log.Warn().
			Err(err).
			Int("attempt", i+1).
			Str("action", "db_ping_retry").
			Msg("Retrying database connection")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d retries: %w", maxRetries, lastErr)
}
