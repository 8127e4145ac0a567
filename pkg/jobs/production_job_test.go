package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goalcast/core/pkg/logger"
)

func TestProductionJobSkipsWhenLocked(t *testing.T) {
	mockDB := NewMockDB()
	other := newLockManager(mockDB.acquirer(), logger.Nop())
	ctx := context.Background()

	if ok, _ := other.AcquireLock(ctx, "automation_run"); !ok {
		t.Fatal("setup: expected lock")
	}

	inner := &mockJob{name: "automation_run", schedule: "* * * * *"}
	job := NewProductionJob(inner, newLockManager(mockDB.acquirer(), logger.Nop()), nil, logger.Nop())

	if err := job.Execute(ctx); err != nil {
		t.Fatalf("skipped run should not fail: %v", err)
	}
	if inner.executed() {
		t.Fatal("job must not run while another instance holds the lock")
	}
}

func TestProductionJobFailsWhenLockRequired(t *testing.T) {
	mockDB := NewMockDB()
	other := newLockManager(mockDB.acquirer(), logger.Nop())
	ctx := context.Background()
	other.AcquireLock(ctx, "seed_sources")

	inner := &mockJob{name: "seed_sources"}
	job := NewProductionJob(inner, newLockManager(mockDB.acquirer(), logger.Nop()), &ProductionJobConfig{
		LockTimeout:  300 * time.Millisecond,
		SkipIfLocked: false,
	}, logger.Nop())

	if err := job.Execute(ctx); err == nil {
		t.Fatal("expected error when the lock stays taken")
	}
}

func TestProductionJobReleasesLock(t *testing.T) {
	mockDB := NewMockDB()
	locks := newLockManager(mockDB.acquirer(), logger.Nop())
	ctx := context.Background()

	inner := &mockJob{name: "rss_refresh", executeFunc: func(context.Context) error {
		return errors.New("feed down")
	}}
	job := NewProductionJob(inner, locks, nil, logger.Nop())

	if err := job.Execute(ctx); err == nil {
		t.Fatal("expected job error to propagate")
	}
	if locked, _ := locks.IsLocked(ctx, "rss_refresh"); locked {
		t.Fatal("lock must be released after a failed run")
	}
}

func TestProductionJobRetry(t *testing.T) {
	tests := []struct {
		name     string
		errs     []error
		retries  int
		wantRuns int32
		wantErr  bool
	}{
		{name: "recovers", errs: []error{errors.New("timeout"), nil}, retries: 2, wantRuns: 2},
		{name: "gives up", errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}, retries: 2, wantRuns: 3, wantErr: true},
		{name: "cancellation not retried", errs: []error{context.Canceled}, retries: 2, wantRuns: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &mockJob{name: "retry-" + tt.name}
			inner.executeFunc = func(context.Context) error {
				return tt.errs[inner.runs.Load()-1]
			}

			job := NewProductionJob(inner, newLockManager(NewMockDB().acquirer(), logger.Nop()), &ProductionJobConfig{
				SkipIfLocked: true,
				RetryOnError: true,
				MaxRetries:   tt.retries,
			}, logger.Nop())
			job.backoff = time.Millisecond

			err := job.Execute(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := inner.runs.Load(); got != tt.wantRuns {
				t.Errorf("runs = %d, want %d", got, tt.wantRuns)
			}
		})
	}
}

func TestProductionJobManager(t *testing.T) {
	locks := newLockManager(NewMockDB().acquirer(), logger.Nop())
	manager := NewProductionJobManager(locks, &ProductionJobManagerConfig{EnableLocking: true}, logger.Nop())

	scheduled := &mockJob{name: "session_cleanup", schedule: "@hourly"}
	seed := &mockJob{name: "seed_sources"}

	if err := manager.RegisterJob(scheduled); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	manager.AddOnDemand(seed)

	jobs := manager.GetJobs()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 scheduled job, got %d", len(jobs))
	}
	if _, ok := jobs[0].(*ProductionJob); !ok {
		t.Error("scheduled job should be wrapped with the lock")
	}

	ctx := context.Background()
	if err := manager.RunOnce(ctx, "seed_sources"); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if !seed.executed() {
		t.Error("on-demand job did not run")
	}
	if err := manager.RunOnce(ctx, "nope"); err == nil {
		t.Error("expected unknown job error")
	}

	status, err := manager.GetJobStatus(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	s, ok := status["session_cleanup"]
	if !ok || s.NextRun == nil || s.IsLocked {
		t.Errorf("unexpected status %+v", s)
	}
}
