package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaysched/relay/internal/domain"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	query := `
		INSERT INTO jobs (
			name, schedule, execution_time_sec, failure_probability,
			max_retries, retry_delay_sec, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, name, schedule, execution_time_sec, failure_probability,
		          max_retries, retry_delay_sec, is_active, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query,
		job.Name,
		job.Schedule,
		job.ExecutionTimeSec,
		job.FailureProbability,
		job.MaxRetries,
		job.RetryDelaySec,
		job.IsActive,
	)

	return scanJob(row)
}

func (r *JobRepository) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	query := `
		SELECT id, name, schedule, execution_time_sec, failure_probability,
		       max_retries, retry_delay_sec, is_active, created_at, updated_at
		FROM jobs
		WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	return scanJob(row)
}

func (r *JobRepository) List(ctx context.Context) ([]*domain.Job, error) {
	return r.query(ctx, `
		SELECT id, name, schedule, execution_time_sec, failure_probability,
		       max_retries, retry_delay_sec, is_active, created_at, updated_at
		FROM jobs
		ORDER BY id ASC`)
}

func (r *JobRepository) ListActive(ctx context.Context) ([]*domain.Job, error) {
	return r.query(ctx, `
		SELECT id, name, schedule, execution_time_sec, failure_probability,
		       max_retries, retry_delay_sec, is_active, created_at, updated_at
		FROM jobs
		WHERE is_active
		ORDER BY id ASC`)
}

func (r *JobRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *JobRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.Name, &j.Schedule, &j.ExecutionTimeSec, &j.FailureProbability,
		&j.MaxRetries, &j.RetryDelaySec, &j.IsActive, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}
