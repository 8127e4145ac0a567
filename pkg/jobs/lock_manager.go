package jobs

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goalcast/core/pkg/logger"
)

// JobLockManager provides distributed locking for job execution
type JobLockManager interface {
	// AcquireLock attempts to acquire a distributed lock for the given job
	// Returns true if lock was acquired, false if already locked by another instance
	AcquireLock(ctx context.Context, jobName string) (bool, error)

	// ReleaseLock releases the distributed lock for the given job
	ReleaseLock(ctx context.Context, jobName string) error

	// IsLocked checks if a job is currently locked
	IsLocked(ctx context.Context, jobName string) (bool, error)

	// AcquireLockWithTimeout attempts to acquire a lock with a timeout
	AcquireLockWithTimeout(ctx context.Context, jobName string, timeout time.Duration) (bool, error)
}

// lockConn is one pooled session. Advisory locks belong to a session, so
// the connection that took a lock must be the one that releases it.
type lockConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

type connAcquirer func(ctx context.Context) (lockConn, error)

// PostgreSQLLockManager implements distributed locking using PostgreSQL advisory locks
type PostgreSQLLockManager struct {
	acquire connAcquirer
	logger  *logger.Logger

	mu   sync.Mutex
	held map[string]lockConn
}

// NewPostgreSQLLockManager creates a lock manager that pins a pool
// connection for as long as each lock is held.
func NewPostgreSQLLockManager(db *pgxpool.Pool, log *logger.Logger) *PostgreSQLLockManager {
	return newLockManager(func(ctx context.Context) (lockConn, error) {
		conn, err := db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, log)
}

func newLockManager(acquire connAcquirer, log *logger.Logger) *PostgreSQLLockManager {
	return &PostgreSQLLockManager{
		acquire: acquire,
		logger:  log.WithComponent("job-lock-manager"),
		held:    make(map[string]lockConn),
	}
}

// generateLockID creates a consistent numeric lock ID from job name
// PostgreSQL advisory locks require int64 keys
func generateLockID(jobName string) int64 {
	hash := md5.Sum([]byte("goalcast:" + jobName))

	lockID := int64(0)
	for i := 0; i < 8; i++ {
		lockID = lockID<<8 + int64(hash[i])
	}
	if lockID < 0 {
		lockID = -lockID
	}
	return lockID
}

// AcquireLock attempts to acquire a distributed lock for the given job
func (p *PostgreSQLLockManager) AcquireLock(ctx context.Context, jobName string) (bool, error) {
	lockID := generateLockID(jobName)

	p.mu.Lock()
	_, mine := p.held[jobName]
	p.mu.Unlock()
	if mine {
		// Advisory locks are re-entrant per session; report the local holder as busy.
		return false, nil
	}

	conn, err := p.acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire connection for job %s: %w", jobName, err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Release()
		p.logger.Error().
			Err(err).
			Str("job_name", jobName).
			Int64("lock_id", lockID).
			Str("action", "acquire_lock_failed").
			Msg("Failed to acquire distributed lock")
		return false, fmt.Errorf("failed to acquire lock for job %s: %w", jobName, err)
	}

	if !acquired {
		conn.Release()
		p.logger.Debug().
			Str("job_name", jobName).
			Int64("lock_id", lockID).
			Str("action", "lock_already_held").
			Msg("Lock already held by another instance")
		return false, nil
	}

	p.mu.Lock()
	p.held[jobName] = conn
	p.mu.Unlock()

	p.logger.Debug().
		Str("job_name", jobName).
		Int64("lock_id", lockID).
		Str("action", "lock_acquired").
		Msg("Acquired distributed lock")
	return true, nil
}

// ReleaseLock releases the distributed lock for the given job
func (p *PostgreSQLLockManager) ReleaseLock(ctx context.Context, jobName string) error {
	lockID := generateLockID(jobName)

	p.mu.Lock()
	conn, ok := p.held[jobName]
	delete(p.held, jobName)
	p.mu.Unlock()

	if !ok {
		p.logger.Warn().
			Str("job_name", jobName).
			Int64("lock_id", lockID).
			Str("action", "lock_not_held").
			Msg("Attempted to release lock that was not held")
		return nil
	}
	defer conn.Release()

	var released bool
	if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", lockID).Scan(&released); err != nil {
		return fmt.Errorf("failed to release lock for job %s: %w", jobName, err)
	}
	if !released {
		p.logger.Warn().
			Str("job_name", jobName).
			Int64("lock_id", lockID).
			Str("action", "lock_not_held").
			Msg("Session did not hold the advisory lock")
	}
	return nil
}

// IsLocked checks if a job is currently locked
func (p *PostgreSQLLockManager) IsLocked(ctx context.Context, jobName string) (bool, error) {
	p.mu.Lock()
	_, mine := p.held[jobName]
	p.mu.Unlock()
	if mine {
		return true, nil
	}

	lockID := generateLockID(jobName)
	conn, err := p.acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire connection for job %s: %w", jobName, err)
	}
	defer conn.Release()

	var canAcquire bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&canAcquire); err != nil {
		return false, fmt.Errorf("failed to check lock status for job %s: %w", jobName, err)
	}
	if !canAcquire {
		return true, nil
	}

	var released bool
	if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", lockID).Scan(&released); err != nil {
		p.logger.Warn().
			Err(err).
			Str("job_name", jobName).
			Msg("Failed to release lock after check")
	}
	return false, nil
}

// AcquireLockWithTimeout attempts to acquire a lock with polling and timeout.
// A timeout is reported as (false, nil).
func (p *PostgreSQLLockManager) AcquireLockWithTimeout(ctx context.Context, jobName string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	acquired, err := p.AcquireLock(waitCtx, jobName)
	if err != nil || acquired {
		return acquired, err
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			p.logger.Debug().
				Str("job_name", jobName).
				Dur("timeout", timeout).
				Str("action", "lock_wait_timeout").
				Msg("Lock acquisition timed out")
			return false, nil
		case <-ticker.C:
			acquired, err := p.AcquireLock(waitCtx, jobName)
			if err != nil {
				return false, err
			}
			if acquired {
				return true, nil
			}
		}
	}
}

// LockGuard releases a held lock on defer
type LockGuard struct {
	lockManager JobLockManager
	jobName     string
	acquired    bool
}

// NewLockGuard creates a new lock guard
func NewLockGuard(lockManager JobLockManager, jobName string) *LockGuard {
	return &LockGuard{
		lockManager: lockManager,
		jobName:     jobName,
	}
}

// Acquire attempts to acquire the lock
func (lg *LockGuard) Acquire(ctx context.Context) (bool, error) {
	acquired, err := lg.lockManager.AcquireLock(ctx, lg.jobName)
	if err != nil {
		return false, err
	}
	lg.acquired = acquired
	return acquired, nil
}

// AcquireWithTimeout attempts to acquire the lock with timeout
func (lg *LockGuard) AcquireWithTimeout(ctx context.Context, timeout time.Duration) (bool, error) {
	acquired, err := lg.lockManager.AcquireLockWithTimeout(ctx, lg.jobName, timeout)
	if err != nil {
		return false, err
	}
	lg.acquired = acquired
	return acquired, nil
}

// Release releases the lock if it was acquired
func (lg *LockGuard) Release(ctx context.Context) error {
	if !lg.acquired {
		return nil
	}
	if err := lg.lockManager.ReleaseLock(ctx, lg.jobName); err != nil {
		return err
	}
	lg.acquired = false
	return nil
}

// IsAcquired returns whether the lock is currently held by this guard
func (lg *LockGuard) IsAcquired() bool {
	return lg.acquired
}
