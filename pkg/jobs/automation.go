package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/services"
)

type DueRunner interface {
	RunDue(ctx context.Context, now time.Time) (services.RunSummary, error)
}

type LiveUpdater interface {
	PostLiveUpdates(ctx context.Context, now time.Time) (services.RunSummary, error)
}

type ScheduledDispatcher interface {
	DispatchScheduled(ctx context.Context, now time.Time) (int, error)
}

type NewsRefresher interface {
	Refresh(ctx context.Context) ([]rss.SourceResult, error)
}

type SourceSeeder interface {
	Seed(ctx context.Context, path string) (int, error)
}

type UsageCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

type LogPruner interface {
	DeleteLogsBefore(ctx context.Context, before time.Time) (int64, error)
}

type SessionCleaner interface {
	CleanupSessions(ctx context.Context) (int64, error)
}

// tally keeps the counters of the last run.
type tally struct {
	processed, failed int
}

func (t *tally) LastRun() (int, int) { return t.processed, t.failed }

func (t *tally) set(processed, failed int) {
	t.processed, t.failed = processed, failed
}

// AutomationRunJob posts every due timeline slot.
type AutomationRunJob struct {
	tally
	runner DueRunner
	now    func() time.Time
}

func NewAutomationRunJob(runner DueRunner) *AutomationRunJob {
	return &AutomationRunJob{runner: runner, now: time.Now}
}

func (j *AutomationRunJob) Name() string     { return "automation_run" }
func (j *AutomationRunJob) Schedule() string { return "* * * * *" }

func (j *AutomationRunJob) Execute(ctx context.Context) error {
	summary, err := j.runner.RunDue(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to run due slots: %w", err)
	}
	j.set(summary.Posted, summary.Failed)

	if summary.Due > 0 || summary.Reason != "" {
		logger.WithContext(ctx, "jobs").Info().
			Str("action", "automation_run").
			Int("due", summary.Due).
			Int("posted", summary.Posted).
			Int("skipped", summary.Skipped).
			Int("failed", summary.Failed).
			Str("reason", summary.Reason).
			Msg("Automation run finished")
	}
	return nil
}

// ManualPostsJob sends manual posts whose scheduled time has passed.
type ManualPostsJob struct {
	tally
	dispatcher ScheduledDispatcher
	now        func() time.Time
}

func NewManualPostsJob(dispatcher ScheduledDispatcher) *ManualPostsJob {
	return &ManualPostsJob{dispatcher: dispatcher, now: time.Now}
}

func (j *ManualPostsJob) Name() string     { return "manual_posts_dispatch" }
func (j *ManualPostsJob) Schedule() string { return "* * * * *" }

func (j *ManualPostsJob) Execute(ctx context.Context) error {
	sent, err := j.dispatcher.DispatchScheduled(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to dispatch manual posts: %w", err)
	}
	j.set(sent, 0)
	return nil
}

// LiveUpdatesJob posts goals and results for channels that opted in.
type LiveUpdatesJob struct {
	tally
	updater LiveUpdater
	now     func() time.Time
}

func NewLiveUpdatesJob(updater LiveUpdater) *LiveUpdatesJob {
	return &LiveUpdatesJob{updater: updater, now: time.Now}
}

func (j *LiveUpdatesJob) Name() string     { return "live_updates" }
func (j *LiveUpdatesJob) Schedule() string { return "*/5 * * * *" }

func (j *LiveUpdatesJob) Execute(ctx context.Context) error {
	summary, err := j.updater.PostLiveUpdates(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to post live updates: %w", err)
	}
	j.set(summary.Posted, summary.Failed)
	return nil
}

// RSSRefreshJob re-fetches every active feed and records source health.
type RSSRefreshJob struct {
	tally
	news NewsRefresher
}

func NewRSSRefreshJob(news NewsRefresher) *RSSRefreshJob {
	return &RSSRefreshJob{news: news}
}

func (j *RSSRefreshJob) Name() string     { return "rss_refresh" }
func (j *RSSRefreshJob) Schedule() string { return "*/15 * * * *" }

func (j *RSSRefreshJob) Execute(ctx context.Context) error {
	results, err := j.news.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh feeds: %w", err)
	}

	log := logger.WithContext(ctx, "jobs")
	items, failed := 0, 0
	for _, r := range results {
		items += r.Items
		if r.Err != nil {
			failed++
			log.Warn().
				Err(r.Err).
				Str("action", "rss_source_failed").
				Str("source", r.Source.Name).
				Msg("Feed fetch failed")
		}
	}
	j.set(items, failed)
	return nil
}

// SeedSourcesJob loads the bundled feed list into rss_sources. It only
// runs on demand.
type SeedSourcesJob struct {
	tally
	seeder SourceSeeder
	path   string
}

func NewSeedSourcesJob(seeder SourceSeeder, path string) *SeedSourcesJob {
	return &SeedSourcesJob{seeder: seeder, path: path}
}

func (j *SeedSourcesJob) Name() string     { return "seed_sources" }
func (j *SeedSourcesJob) Schedule() string { return "" }

func (j *SeedSourcesJob) Execute(ctx context.Context) error {
	added, err := j.seeder.Seed(ctx, j.path)
	if err != nil {
		return fmt.Errorf("failed to seed sources from %s: %w", j.path, err)
	}
	j.set(added, 0)
	return nil
}

// UniquenessCleanupJob drops dedupe keys older than the retention window.
type UniquenessCleanupJob struct {
	tally
	cleaner   UsageCleaner
	retention time.Duration
}

func NewUniquenessCleanupJob(cleaner UsageCleaner, retention time.Duration) *UniquenessCleanupJob {
	return &UniquenessCleanupJob{cleaner: cleaner, retention: retention}
}

func (j *UniquenessCleanupJob) Name() string     { return "uniqueness_cleanup" }
func (j *UniquenessCleanupJob) Schedule() string { return "30 3 * * *" }

func (j *UniquenessCleanupJob) Execute(ctx context.Context) error {
	removed, err := j.cleaner.Cleanup(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("failed to clean used content: %w", err)
	}
	j.set(int(removed), 0)
	return nil
}

// SessionCleanupJob deletes expired manager sessions.
type SessionCleanupJob struct {
	tally
	cleaner SessionCleaner
}

func NewSessionCleanupJob(cleaner SessionCleaner) *SessionCleanupJob {
	return &SessionCleanupJob{cleaner: cleaner}
}

func (j *SessionCleanupJob) Name() string     { return "session_cleanup" }
func (j *SessionCleanupJob) Schedule() string { return "@hourly" }

func (j *SessionCleanupJob) Execute(ctx context.Context) error {
	removed, err := j.cleaner.CleanupSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean sessions: %w", err)
	}
	j.set(int(removed), 0)
	return nil
}

// LogsCleanupJob prunes automation logs past the retention window.
type LogsCleanupJob struct {
	tally
	pruner    LogPruner
	retention time.Duration
	now       func() time.Time
}

func NewLogsCleanupJob(pruner LogPruner, retention time.Duration) *LogsCleanupJob {
	return &LogsCleanupJob{pruner: pruner, retention: retention, now: time.Now}
}

func (j *LogsCleanupJob) Name() string     { return "logs_cleanup" }
func (j *LogsCleanupJob) Schedule() string { return "45 3 * * *" }

func (j *LogsCleanupJob) Execute(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}
	removed, err := j.pruner.DeleteLogsBefore(ctx, j.now().Add(-j.retention))
	if err != nil {
		return fmt.Errorf("failed to prune automation logs: %w", err)
	}
	j.set(int(removed), 0)
	return nil
}
