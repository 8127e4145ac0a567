package jobs

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/goalcast/core/pkg/logger"
)

// ProductionJobManager extends the regular job manager with distributed locking
type ProductionJobManager struct {
	cron        *cron.Cron
	jobs        []Job
	onDemand    []Job
	logger      *logger.Logger
	lockManager JobLockManager

	enableLocking bool
	defaultConfig *ProductionJobConfig
	startupJobs   []string
	location      *time.Location
}

// ProductionJobManagerConfig holds configuration for the production job manager
type ProductionJobManagerConfig struct {
	EnableLocking bool                 // Enable distributed locking for all jobs
	DefaultConfig *ProductionJobConfig // Default configuration for wrapped jobs
	Location      *time.Location       // Zone the schedules are evaluated in
	StartupJobs   []string             // Jobs run once before the scheduler starts
}

// NewProductionJobManager creates a job manager with distributed locking
func NewProductionJobManager(lockManager JobLockManager, config *ProductionJobManagerConfig, log *logger.Logger) *ProductionJobManager {
	if config == nil {
		config = &ProductionJobManagerConfig{EnableLocking: true}
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.DefaultConfig == nil {
		config.DefaultConfig = DefaultProductionJobConfig()
	}

	return &ProductionJobManager{
		cron:          newCron(log, config.Location),
		jobs:          make([]Job, 0),
		logger:        log,
		lockManager:   lockManager,
		enableLocking: config.EnableLocking && lockManager != nil,
		defaultConfig: config.DefaultConfig,
		startupJobs:   config.StartupJobs,
		location:      config.Location,
	}
}

// RegisterJob adds a job to the manager, wrapping it with the lock when enabled
func (m *ProductionJobManager) RegisterJob(job Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}

	finalJob := job
	if m.enableLocking {
		if _, isProduction := job.(*ProductionJob); !isProduction {
			finalJob = NewProductionJob(job, m.lockManager, m.defaultConfig, m.logger)
		}
	}
	return m.schedule(finalJob)
}

// RegisterJobWithConfig registers a job with custom production configuration
func (m *ProductionJobManager) RegisterJobWithConfig(job Job, config *ProductionJobConfig) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if m.lockManager == nil {
		return m.schedule(job)
	}
	return m.schedule(NewProductionJob(job, m.lockManager, config, m.logger))
}

func (m *ProductionJobManager) schedule(job Job) error {
	_, isProduction := job.(*ProductionJob)

	m.logger.Info().
		Str("action", "register_job").
		Str("job_name", job.Name()).
		Str("schedule", job.Schedule()).
		Bool("locking_enabled", isProduction).
		Msg("Registering job")

	_, err := m.cron.AddFunc(job.Schedule(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		_ = run(ctx, m.logger, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}

	m.jobs = append(m.jobs, job)
	return nil
}

// Start runs the startup jobs once and then begins scheduling
func (m *ProductionJobManager) Start() {
	m.logger.Info().
		Str("action", "start").
		Int("job_count", len(m.jobs)).
		Bool("locking_enabled", m.enableLocking).
		Msg("Starting production job manager")

	m.runStartupJobs()
	m.cron.Start()
}

func (m *ProductionJobManager) runStartupJobs() {
	for _, job := range m.jobs {
		if !slices.Contains(m.startupJobs, job.Name()) {
			continue
		}

		m.logger.Info().
			Str("job_name", job.Name()).
			Str("action", "startup_job_start").
			Msg("Running job on startup")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		_ = run(ctx, m.logger, job)
		cancel()
	}
}

// AddOnDemand registers a job that only runs through RunOnce.
func (m *ProductionJobManager) AddOnDemand(job Job) {
	if m.enableLocking {
		job = NewProductionJob(job, m.lockManager, m.defaultConfig, m.logger)
	}
	m.onDemand = append(m.onDemand, job)
}

// RunOnce executes a job by name, outside the schedule.
func (m *ProductionJobManager) RunOnce(ctx context.Context, name string) error {
	for _, job := range append(m.GetJobs(), m.onDemand...) {
		if job.Name() == name {
			return run(ctx, m.logger, job)
		}
	}
	return fmt.Errorf("unknown job: %s", name)
}

// Stop gracefully shuts down the job manager
func (m *ProductionJobManager) Stop() {
	m.logger.Info().
		Str("action", "stop_initiated").
		Msg("Stopping production job manager")

	ctx := m.cron.Stop()
	<-ctx.Done()

	m.logger.Info().
		Str("action", "stopped").
		Msg("Production job manager stopped")
}

// GetJobs returns all registered jobs
func (m *ProductionJobManager) GetJobs() []Job {
	return append([]Job(nil), m.jobs...)
}

// GetJobStatus returns schedule and lock state for every job
func (m *ProductionJobManager) GetJobStatus(ctx context.Context) (map[string]JobStatus, error) {
	status := make(map[string]JobStatus, len(m.jobs))
	now := time.Now().In(m.location)

	for _, job := range m.jobs {
		s := JobStatus{Name: job.Name(), Schedule: job.Schedule()}

		if sched, err := cron.ParseStandard(job.Schedule()); err == nil {
			next := sched.Next(now)
			s.NextRun = &next
		}

		if m.lockManager != nil {
			locked, err := m.lockManager.IsLocked(ctx, job.Name())
			if err != nil {
				return nil, fmt.Errorf("failed to check lock status for job %s: %w", job.Name(), err)
			}
			s.IsLocked = locked
		}
		status[job.Name()] = s
	}

	return status, nil
}

// JobStatus represents the current status of a job
type JobStatus struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	IsLocked bool       `json:"is_locked"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}
