package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goalcast/core/pkg/logger"
)

// ProductionJob wraps a regular job with an advisory lock and retries, so
// several cron instances never run the same job at once.
type ProductionJob struct {
	job         Job
	lockManager JobLockManager
	logger      *logger.Logger

	lockTimeout  time.Duration
	skipIfLocked bool
	retryOnError bool
	maxRetries   int
	backoff      time.Duration
}

// ProductionJobConfig holds configuration for production job wrapper
type ProductionJobConfig struct {
	LockTimeout  time.Duration // How long to wait for lock acquisition
	SkipIfLocked bool          // Skip execution if lock can't be acquired
	RetryOnError bool          // Retry job execution on failure
	MaxRetries   int           // Maximum retry attempts
}

// DefaultProductionJobConfig returns the defaults for minute-level jobs:
// no waiting for the lock, since the next tick comes soon.
func DefaultProductionJobConfig() *ProductionJobConfig {
	return &ProductionJobConfig{
		LockTimeout:  0,
		SkipIfLocked: true,
		RetryOnError: false,
		MaxRetries:   0,
	}
}

// NewProductionJob creates a production-ready job wrapper
func NewProductionJob(job Job, lockManager JobLockManager, config *ProductionJobConfig, log *logger.Logger) *ProductionJob {
	if config == nil {
		config = DefaultProductionJobConfig()
	}

	return &ProductionJob{
		job:          job,
		lockManager:  lockManager,
		logger:       log,
		lockTimeout:  config.LockTimeout,
		skipIfLocked: config.SkipIfLocked,
		retryOnError: config.RetryOnError,
		maxRetries:   config.MaxRetries,
		backoff:      time.Second,
	}
}

// Name returns the underlying job name
func (p *ProductionJob) Name() string {
	return p.job.Name()
}

// Schedule returns the underlying job schedule
func (p *ProductionJob) Schedule() string {
	return p.job.Schedule()
}

// LastRun forwards the wrapped job's counters.
func (p *ProductionJob) LastRun() (int, int) {
	return counts(p.job)
}

// Execute runs the job with distributed locking and error handling
func (p *ProductionJob) Execute(ctx context.Context) error {
	jobName := p.job.Name()
	lockGuard := NewLockGuard(p.lockManager, jobName)

	var acquired bool
	var err error
	if p.lockTimeout > 0 {
		acquired, err = lockGuard.AcquireWithTimeout(ctx, p.lockTimeout)
	} else {
		acquired, err = lockGuard.Acquire(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock for job %s: %w", jobName, err)
	}

	if !acquired {
		if p.skipIfLocked {
			p.logger.Info().
				Str("job_name", jobName).
				Str("action", "job_skipped_locked").
				Msg("Job skipped - another instance is running")
			return nil
		}
		return fmt.Errorf("could not acquire lock for job %s within timeout", jobName)
	}

	defer func() {
		// The job context may already be done; the unlock must still go out.
		if releaseErr := lockGuard.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			p.logger.Error().
				Err(releaseErr).
				Str("job_name", jobName).
				Str("action", "lock_release_error").
				Msg("Failed to release distributed lock")
		}
	}()

	return p.executeWithRetry(ctx)
}

// executeWithRetry executes the job with exponential backoff between attempts
func (p *ProductionJob) executeWithRetry(ctx context.Context) error {
	var lastErr error
	maxAttempts := p.maxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			p.logger.Warn().
				Int("attempt", attempt).
				Int("max_attempts", maxAttempts).
				Err(lastErr).
				Str("job_name", p.job.Name()).
				Str("action", "job_retry").
				Msg("Retrying job execution after failure")

			select {
			case <-time.After(p.backoff << uint(attempt-2)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := p.job.Execute(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.retryOnError || !shouldRetryError(err) {
			break
		}
	}

	return lastErr
}

func shouldRetryError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
