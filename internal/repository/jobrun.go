package repository

import (
	"context"
	"time"

	"github.com/relaysched/relay/internal/domain"
)

// JobRunRepository is the sole source of truth for JobRun state. Every
// method here is a short, independent transaction.
type JobRunRepository interface {
	// LatestForJob returns the run with the greatest scheduled_time for
	// jobID, or nil if the job has never fired. Used by the materializer
	// as the base time for cron_next when it exists.
	LatestForJob(ctx context.Context, jobID int64) (*domain.JobRun, error)

	// Materialize inserts a new PENDING run at scheduledTime. A uniqueness
	// conflict on (job_id, scheduled_time) is translated to
	// domain.ErrDuplicateRun so the caller can swallow it silently.
	Materialize(ctx context.Context, jobID int64, scheduledTime time.Time) (*domain.JobRun, error)

	// Claim atomically transitions the oldest eligible PENDING/RETRY run
	// due at or before now to RUNNING under FOR UPDATE SKIP LOCKED, and
	// returns it. Returns nil, nil when nothing is claimable.
	Claim(ctx context.Context, workerID string) (*domain.JobRun, error)

	// Heartbeat refreshes last_heartbeat_at for a run this worker still
	// holds. It is a no-op (not an error) if the run is no longer RUNNING
	// (e.g. the reaper already reclaimed it).
	Heartbeat(ctx context.Context, runID int64) error

	// Succeed marks a run SUCCESS and stamps finished_at.
	Succeed(ctx context.Context, runID int64) error

	// Retry records a worker-observed synthetic failure that still has
	// attempts remaining: attempt_number is set, finished_at is stamped,
	// status becomes RETRY, and scheduled_time advances to nextAttemptAt.
	Retry(ctx context.Context, runID int64, attemptNumber int, errMsg string, nextAttemptAt time.Time) error

	// Fail records a worker-observed synthetic failure that exhausts
	// max_retries: attempt_number is set, finished_at is stamped, status
	// becomes FAILED. scheduled_time is left untouched.
	Fail(ctx context.Context, runID int64, attemptNumber int, errMsg string) error

	// ReapToRetry transitions up to limit zombie RUNNING runs (heartbeat
	// older than staleCutoff) that still have attempts remaining into
	// RETRY, leaving scheduled_time unchanged for immediate
	// re-eligibility. Returns the count reaped.
	ReapToRetry(ctx context.Context, staleCutoff time.Time, limit int) (int, error)

	// ReapToFailed transitions up to limit zombie RUNNING runs that have
	// exhausted max_retries into FAILED. Returns the count reaped.
	ReapToFailed(ctx context.Context, staleCutoff time.Time, limit int) (int, error)

	// GetByID reads a single run, for control-plane lookups.
	GetByID(ctx context.Context, id int64) (*domain.JobRun, error)

	// ListByJob returns a job's runs ordered by scheduled_time DESC,
	// for control-plane history reads.
	ListByJob(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error)
}
