package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaysched/relay/internal/domain"
)

type JobRunRepository struct {
	pool *pgxpool.Pool
}

func NewJobRunRepository(pool *pgxpool.Pool) *JobRunRepository {
	return &JobRunRepository{pool: pool}
}

const jobRunColumns = `id, job_id, scheduled_time, status, attempt_number,
	started_at, finished_at, last_heartbeat_at, worker_id, error_message, created_at`

func (r *JobRunRepository) LatestForJob(ctx context.Context, jobID int64) (*domain.JobRun, error) {
	query := `SELECT ` + jobRunColumns + `
		FROM job_runs
		WHERE job_id = $1
		ORDER BY scheduled_time DESC
		LIMIT 1`

	row := r.pool.QueryRow(ctx, query, jobID)
	run, err := scanJobRun(row)
	if errors.Is(err, domain.ErrRunNotFound) {
		return nil, nil
	}
	return run, err
}

func (r *JobRunRepository) Materialize(ctx context.Context, jobID int64, scheduledTime time.Time) (*domain.JobRun, error) {
	query := `
		INSERT INTO job_runs (job_id, scheduled_time, status, attempt_number)
		VALUES ($1, $2, 'PENDING', 0)
		RETURNING ` + jobRunColumns

	row := r.pool.QueryRow(ctx, query, jobID, scheduledTime)
	run, err := scanJobRun(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateRun
		}
		return nil, err
	}
	return run, nil
}

// Claim is the handoff point between scheduler and worker: FOR UPDATE
// SKIP LOCKED on the claimable predicate is the only concurrency control
// this needs — no external lock manager. Before commit, no party sees
// the run as owned; after commit, this worker is the sole writer until
// terminal.
func (r *JobRunRepository) Claim(ctx context.Context, workerID string) (*domain.JobRun, error) {
	query := `
		UPDATE job_runs
		SET    status            = 'RUNNING',
		       started_at        = NOW(),
		       last_heartbeat_at = NOW(),
		       worker_id         = $1
		WHERE id IN (
			SELECT id FROM job_runs
			WHERE  status IN ('PENDING', 'RETRY')
			  AND  scheduled_time <= NOW()
			ORDER BY scheduled_time ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobRunColumns

	row := r.pool.QueryRow(ctx, query, workerID)
	run, err := scanJobRun(row)
	if errors.Is(err, domain.ErrRunNotFound) {
		return nil, nil
	}
	return run, err
}

func (r *JobRunRepository) Heartbeat(ctx context.Context, runID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE job_runs SET last_heartbeat_at = NOW()
		WHERE id = $1 AND status = 'RUNNING'`, runID)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

func (r *JobRunRepository) Succeed(ctx context.Context, runID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE job_runs SET status = 'SUCCESS', finished_at = NOW()
		WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("succeed: %w", err)
	}
	return nil
}

func (r *JobRunRepository) Retry(ctx context.Context, runID int64, attemptNumber int, errMsg string, nextAttemptAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE job_runs
		SET    status         = 'RETRY',
		       attempt_number = $2,
		       finished_at    = NOW(),
		       error_message  = $3,
		       scheduled_time = $4,
		       worker_id      = NULL
		WHERE id = $1`,
		runID, attemptNumber, errMsg, nextAttemptAt)
	if err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

func (r *JobRunRepository) Fail(ctx context.Context, runID int64, attemptNumber int, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE job_runs
		SET    status         = 'FAILED',
		       attempt_number = $2,
		       finished_at    = NOW(),
		       error_message  = $3
		WHERE id = $1`,
		runID, attemptNumber, errMsg)
	if err != nil {
		return fmt.Errorf("fail: %w", err)
	}
	return nil
}

// ReapToRetry and ReapToFailed only ever touch RUNNING rows whose
// heartbeat has lapsed — the claim query only ever touches PENDING/RETRY,
// so the two never race on the same row. Neither sets finished_at: run
// completion is strictly worker-asserted.
func (r *JobRunRepository) ReapToRetry(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE job_runs
		SET    status    = 'RETRY',
		       worker_id = NULL
		WHERE id IN (
			SELECT jr.id FROM job_runs jr
			JOIN jobs j ON j.id = jr.job_id
			WHERE  jr.status            = 'RUNNING'
			  AND  jr.last_heartbeat_at < $1
			  AND  jr.attempt_number    < j.max_retries
			ORDER BY jr.last_heartbeat_at ASC
			LIMIT $2
			FOR UPDATE OF jr SKIP LOCKED
		)`, staleCutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("reap to retry: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *JobRunRepository) ReapToFailed(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE job_runs
		SET    status = 'FAILED'
		WHERE id IN (
			SELECT jr.id FROM job_runs jr
			JOIN jobs j ON j.id = jr.job_id
			WHERE  jr.status            = 'RUNNING'
			  AND  jr.last_heartbeat_at < $1
			  AND  jr.attempt_number    >= j.max_retries
			ORDER BY jr.last_heartbeat_at ASC
			LIMIT $2
			FOR UPDATE OF jr SKIP LOCKED
		)`, staleCutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("reap to failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *JobRunRepository) GetByID(ctx context.Context, id int64) (*domain.JobRun, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobRunColumns+` FROM job_runs WHERE id = $1`, id)
	return scanJobRun(row)
}

func (r *JobRunRepository) ListByJob(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobRunColumns+`
		FROM job_runs
		WHERE job_id = $1
		ORDER BY scheduled_time DESC
		LIMIT $2`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanJobRun(row rowScanner) (*domain.JobRun, error) {
	var run domain.JobRun
	err := row.Scan(
		&run.ID, &run.JobID, &run.ScheduledTime, &run.Status, &run.AttemptNumber,
		&run.StartedAt, &run.FinishedAt, &run.LastHeartbeatAt, &run.WorkerID,
		&run.ErrorMessage, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("scan job run: %w", err)
	}
	return &run, nil
}
