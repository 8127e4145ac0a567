package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/services"
)

type fakeAutomation struct {
	at      time.Time
	summary services.RunSummary
	err     error
}

func (f *fakeAutomation) RunDue(_ context.Context, now time.Time) (services.RunSummary, error) {
	f.at = now
	return f.summary, f.err
}

func (f *fakeAutomation) PostLiveUpdates(_ context.Context, now time.Time) (services.RunSummary, error) {
	f.at = now
	return f.summary, f.err
}

type fakeNewsRefresher struct{}

func (fakeNewsRefresher) Refresh(context.Context) ([]rss.SourceResult, error) {
	return []rss.SourceResult{
		{Source: rss.Source{Name: "BBC Sport"}, Items: 12},
		{Source: rss.Source{Name: "Dead feed"}, Err: errors.New("404")},
		{Source: rss.Source{Name: "ESPN"}, Items: 8},
	}, nil
}

type fakeDispatcher struct{}

func (fakeDispatcher) DispatchScheduled(context.Context, time.Time) (int, error) {
	return 3, nil
}

type fakeCleaner struct{ retention time.Duration }

func (f *fakeCleaner) Cleanup(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 7, nil
}

func (f *fakeCleaner) CleanupSessions(context.Context) (int64, error) {
	return 2, nil
}

type fakePruner struct{ before time.Time }

func (f *fakePruner) DeleteLogsBefore(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 11, nil
}

func TestAutomationRunJob(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 1, 0, 0, time.UTC)
	fake := &fakeAutomation{summary: services.RunSummary{Due: 3, Posted: 2, Failed: 1}}
	job := NewAutomationRunJob(fake)
	job.now = func() time.Time { return now }

	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fake.at.Equal(now) {
		t.Errorf("RunDue called with %v", fake.at)
	}
	if p, f := job.LastRun(); p != 2 || f != 1 {
		t.Errorf("LastRun() = %d, %d", p, f)
	}

	fake.err = errors.New("db down")
	if err := job.Execute(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestJobCounters(t *testing.T) {
	cleaner := &fakeCleaner{}

	tests := []struct {
		name          string
		job           interface {
			Job
			Counter
		}
		wantProcessed int
		wantFailed    int
	}{
		{name: "live updates", job: NewLiveUpdatesJob(&fakeAutomation{summary: services.RunSummary{Posted: 4}}), wantProcessed: 4},
		{name: "manual posts", job: NewManualPostsJob(fakeDispatcher{}), wantProcessed: 3},
		{name: "rss refresh", job: NewRSSRefreshJob(fakeNewsRefresher{}), wantProcessed: 20, wantFailed: 1},
		{name: "uniqueness cleanup", job: NewUniquenessCleanupJob(cleaner, 720*time.Hour), wantProcessed: 7},
		{name: "session cleanup", job: NewSessionCleanupJob(cleaner), wantProcessed: 2},
		{name: "logs cleanup", job: NewLogsCleanupJob(&fakePruner{}, 90*24*time.Hour), wantProcessed: 11},
		{name: "logs cleanup disabled", job: NewLogsCleanupJob(&fakePruner{}, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.job.Execute(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			p, f := tt.job.LastRun()
			if p != tt.wantProcessed || f != tt.wantFailed {
				t.Errorf("LastRun() = %d, %d; want %d, %d", p, f, tt.wantProcessed, tt.wantFailed)
			}
		})
	}

	if cleaner.retention != 720*time.Hour {
		t.Errorf("retention not passed through: %v", cleaner.retention)
	}
}

func TestSchedulesParse(t *testing.T) {
	manager := NewJobManager(logger.Nop(), nil)
	for _, job := range []Job{
		NewAutomationRunJob(&fakeAutomation{}),
		NewLiveUpdatesJob(&fakeAutomation{}),
		NewManualPostsJob(fakeDispatcher{}),
		NewRSSRefreshJob(fakeNewsRefresher{}),
		NewUniquenessCleanupJob(&fakeCleaner{}, time.Hour),
		NewSessionCleanupJob(&fakeCleaner{}),
		NewLogsCleanupJob(&fakePruner{}, time.Hour),
	} {
		if err := manager.RegisterJob(job); err != nil {
			t.Errorf("%s: %v", job.Name(), err)
		}
	}
}

func TestLogsCleanupCutoff(t *testing.T) {
	now := time.Date(2026, 3, 14, 3, 45, 0, 0, time.UTC)
	pruner := &fakePruner{}
	job := NewLogsCleanupJob(pruner, 48*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !pruner.before.Equal(want) {
		t.Errorf("cutoff = %v, want %v", pruner.before, want)
	}
}
