package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goalcast/core/internal/app"
	"github.com/goalcast/core/internal/config"
	"github.com/goalcast/core/pkg/database/pool"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/server"
)

func main() {
	// Setup structured logging
	logger.SetupLogger()
	log := logger.New("api-service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "config_load_failed").
			Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, pool.DefaultConfig())
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "app_init_failed").
			Msg("Failed to initialize services")
	}
	defer a.Close()

	if err := a.Auth.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Error().
			Err(err).
			Str("action", "admin_seed_failed").
			Msg("Failed to ensure admin manager")
	}

	srv := server.New(a)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().
				Err(err).
				Str("action", "server_failed").
				Msg("Server failed to start")
			a.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().
				Err(err).
				Str("action", "shutdown_failed").
				Msg("Graceful shutdown failed")
		}
	}
}
