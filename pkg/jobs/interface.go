package jobs

import "context"

// Job represents a schedulable job that can be executed by the cron service
type Job interface {
	// Execute runs the job with the given context
	Execute(ctx context.Context) error

	// Name returns a human-readable name for the job
	Name() string

	// Schedule returns the cron schedule expression for this job
	// Format: "minute hour day month weekday" or "@every duration"
	// Examples: "*/5 * * * *" (every 5 minutes), "@every 1h" (every hour)
	Schedule() string
}

// Counter is implemented by jobs that report what their last run touched.
type Counter interface {
	LastRun() (processed, failed int)
}

// JobManager manages and schedules multiple jobs
type JobManager interface {
	// RegisterJob adds a job to the manager
	RegisterJob(job Job) error

	// Start begins executing all registered jobs according to their schedules
	Start()

	// Stop gracefully shuts down the job manager
	Stop()

	// GetJobs returns all registered jobs
	GetJobs() []Job
}

func counts(job Job) (int, int) {
	if c, ok := job.(Counter); ok {
		return c.LastRun()
	}
	return 0, 0
}
