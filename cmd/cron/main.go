package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goalcast/core/internal/app"
	"github.com/goalcast/core/internal/config"
	"github.com/goalcast/core/pkg/database/pool"
	"github.com/goalcast/core/pkg/jobs"
	"github.com/goalcast/core/pkg/logger"
)

func main() {
	var (
		jobName = flag.String("job", "", "Run one job and exit (automation_run, manual_posts_dispatch, live_updates, rss_refresh, uniqueness_cleanup, session_cleanup, logs_cleanup, seed_sources)")
		once    = flag.Bool("once", false, "Run the job given by -job once and exit")
		status  = flag.Bool("status", false, "Print job schedules and lock state as JSON and exit")
	)
	flag.Parse()

	logger.SetupLogger()
	log := logger.New("cron-service")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "config_load_failed").
			Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, pool.WorkerConfig())
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "app_init_failed").
			Msg("Failed to initialize services")
	}
	defer a.Close()

	manager := jobs.NewProductionJobManager(
		jobs.NewPostgreSQLLockManager(a.Pool, log),
		&jobs.ProductionJobManagerConfig{
			EnableLocking: true,
			Location:      cfg.Location(),
			StartupJobs:   []string{"rss_refresh"},
		},
		log,
	)
	if err := register(manager, a, cfg, log); err != nil {
		log.Fatal().
			Err(err).
			Str("action", "job_register_failed").
			Msg("Failed to register jobs")
	}

	if *status {
		st, err := manager.GetJobStatus(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("action", "job_status_failed").Msg("Failed to read job status")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(st)
		return
	}

	if *once && *jobName != "" {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		if err := manager.RunOnce(runCtx, strings.TrimSpace(*jobName)); err != nil {
			log.Error().
				Err(err).
				Str("action", "job_once_failed").
				Str("job_name", *jobName).
				Msg("Job failed")
			a.Close()
			os.Exit(1)
		}
		return
	}

	manager.Start()
	log.Info().
		Str("action", "cron_started").
		Int("job_count", len(manager.GetJobs())).
		Str("timezone", cfg.Automation.Timezone).
		Msg("Cron job service started")

	<-ctx.Done()

	log.Info().Str("action", "cron_stopping").Msg("Shutting down cron job service")
	manager.Stop()
}

func register(m *jobs.ProductionJobManager, a *app.App, cfg *config.Config, log *logger.Logger) error {
	for _, job := range []jobs.Job{
		jobs.NewAutomationRunJob(a.Automation),
		jobs.NewManualPostsJob(a.ManualPosts),
		jobs.NewLiveUpdatesJob(a.Automation),
		jobs.NewUniquenessCleanupJob(a.Uniqueness, cfg.Automation.UniqueRetention),
		jobs.NewSessionCleanupJob(a.Auth),
		jobs.NewLogsCleanupJob(a.Queries, cfg.Automation.LogRetention),
	} {
		if err := m.RegisterJob(job); err != nil {
			return err
		}
	}

	// Feeds flap; give the refresh a couple of retries.
	if err := m.RegisterJobWithConfig(jobs.NewRSSRefreshJob(a.News), &jobs.ProductionJobConfig{
		SkipIfLocked: true,
		RetryOnError: true,
		MaxRetries:   2,
	}); err != nil {
		return err
	}

	m.AddOnDemand(jobs.NewSeedSourcesJob(a.News, cfg.Automation.FeedsFile))

	log.Debug().Str("action", "jobs_registered").Msg("All jobs registered")
	return nil
}
