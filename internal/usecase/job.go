// Package usecase sits between the control-plane HTTP handlers and the
// repository layer: request-shaped input structs in, domain types out,
// validation and defaulting live here rather than in the handler.
package usecase

import (
	"context"
	"fmt"

	"github.com/relaysched/relay/internal/cronutil"
	"github.com/relaysched/relay/internal/domain"
	"github.com/relaysched/relay/internal/repository"
)

const (
	defaultMaxRetries    = 3
	defaultRetryDelaySec = 30
	defaultRunHistory    = 20
	maxRunHistory        = 200
)

type JobUsecase struct {
	jobs repository.JobRepository
	runs repository.JobRunRepository
}

func NewJobUsecase(jobs repository.JobRepository, runs repository.JobRunRepository) *JobUsecase {
	return &JobUsecase{jobs: jobs, runs: runs}
}

// MaxRetries and RetryDelaySec are pointers so an explicit 0 ("a single
// attempt", "retry immediately") can be told apart from an unset field
// that should fall back to the default.
type CreateJobInput struct {
	Name               string
	Schedule           string
	ExecutionTimeSec   int
	FailureProbability float64
	MaxRetries         *int
	RetryDelaySec      *int
}

func (u *JobUsecase) CreateJob(ctx context.Context, input CreateJobInput) (*domain.Job, error) {
	if !cronutil.Valid(input.Schedule) {
		return nil, domain.ErrInvalidCronExpr
	}

	maxRetries := defaultMaxRetries
	if input.MaxRetries != nil {
		maxRetries = *input.MaxRetries
	}
	retryDelaySec := defaultRetryDelaySec
	if input.RetryDelaySec != nil {
		retryDelaySec = *input.RetryDelaySec
	}

	job := &domain.Job{
		Name:               input.Name,
		Schedule:           input.Schedule,
		ExecutionTimeSec:   input.ExecutionTimeSec,
		FailureProbability: input.FailureProbability,
		MaxRetries:         maxRetries,
		RetryDelaySec:      retryDelaySec,
		IsActive:           true,
	}

	created, err := u.jobs.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return created, nil
}

func (u *JobUsecase) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	jobs, err := u.jobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// JobDetail bundles a job with its most recent run history in one
// round trip.
type JobDetail struct {
	Job  *domain.Job
	Runs []*domain.JobRun
}

func (u *JobUsecase) GetJob(ctx context.Context, id int64) (*JobDetail, error) {
	job, err := u.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	runs, err := u.runs.ListByJob(ctx, id, defaultRunHistory)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}

	return &JobDetail{Job: job, Runs: runs}, nil
}

func (u *JobUsecase) SetActive(ctx context.Context, id int64, active bool) error {
	if err := u.jobs.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

func (u *JobUsecase) ListRuns(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error) {
	if limit <= 0 {
		limit = defaultRunHistory
	}
	if limit > maxRunHistory {
		limit = maxRunHistory
	}

	// GetByID surfaces domain.ErrJobNotFound for an unknown job_id rather
	// than silently returning an empty run list.
	if _, err := u.jobs.GetByID(ctx, jobID); err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	runs, err := u.runs.ListByJob(ctx, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
