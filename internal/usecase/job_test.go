package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relaysched/relay/internal/domain"
	"github.com/relaysched/relay/internal/usecase"
)

type fakeJobRepo struct {
	create     func(ctx context.Context, job *domain.Job) (*domain.Job, error)
	getByID    func(ctx context.Context, id int64) (*domain.Job, error)
	list       func(ctx context.Context) ([]*domain.Job, error)
	setActive  func(ctx context.Context, id int64, active bool) error
	listActive func(ctx context.Context) ([]*domain.Job, error)
}

func (r *fakeJobRepo) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	return r.create(ctx, job)
}
func (r *fakeJobRepo) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	return r.getByID(ctx, id)
}
func (r *fakeJobRepo) List(ctx context.Context) ([]*domain.Job, error) { return r.list(ctx) }
func (r *fakeJobRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.setActive(ctx, id, active)
}
func (r *fakeJobRepo) ListActive(ctx context.Context) ([]*domain.Job, error) { return r.listActive(ctx) }

type fakeJobRunRepo struct {
	latestForJob func(ctx context.Context, jobID int64) (*domain.JobRun, error)
	materialize  func(ctx context.Context, jobID int64, scheduledTime time.Time) (*domain.JobRun, error)
	claim        func(ctx context.Context, workerID string) (*domain.JobRun, error)
	listByJob    func(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error)
}

func (r *fakeJobRunRepo) LatestForJob(ctx context.Context, jobID int64) (*domain.JobRun, error) {
	return r.latestForJob(ctx, jobID)
}
func (r *fakeJobRunRepo) Materialize(ctx context.Context, jobID int64, scheduledTime time.Time) (*domain.JobRun, error) {
	return r.materialize(ctx, jobID, scheduledTime)
}
func (r *fakeJobRunRepo) Claim(ctx context.Context, workerID string) (*domain.JobRun, error) {
	return r.claim(ctx, workerID)
}
func (r *fakeJobRunRepo) Heartbeat(ctx context.Context, runID int64) error { return nil }
func (r *fakeJobRunRepo) Succeed(ctx context.Context, runID int64) error  { return nil }
func (r *fakeJobRunRepo) Retry(ctx context.Context, runID int64, attemptNumber int, errMsg string, nextAttemptAt time.Time) error {
	return nil
}
func (r *fakeJobRunRepo) Fail(ctx context.Context, runID int64, attemptNumber int, errMsg string) error {
	return nil
}
func (r *fakeJobRunRepo) ReapToRetry(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	return 0, nil
}
func (r *fakeJobRunRepo) ReapToFailed(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	return 0, nil
}
func (r *fakeJobRunRepo) GetByID(ctx context.Context, id int64) (*domain.JobRun, error) { return nil, nil }
func (r *fakeJobRunRepo) ListByJob(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error) {
	return r.listByJob(ctx, jobID, limit)
}

func TestCreateJob_RejectsInvalidCron(t *testing.T) {
	jobs := &fakeJobRepo{}
	runs := &fakeJobRunRepo{}
	uc := usecase.NewJobUsecase(jobs, runs)

	_, err := uc.CreateJob(context.Background(), usecase.CreateJobInput{
		Name:     "bad",
		Schedule: "not a cron expression",
	})
	if !errors.Is(err, domain.ErrInvalidCronExpr) {
		t.Fatalf("expected ErrInvalidCronExpr, got %v", err)
	}
}

func TestCreateJob_AppliesDefaults(t *testing.T) {
	var created *domain.Job
	jobs := &fakeJobRepo{
		create: func(ctx context.Context, job *domain.Job) (*domain.Job, error) {
			created = job
			job.ID = 1
			return job, nil
		},
	}
	runs := &fakeJobRunRepo{}
	uc := usecase.NewJobUsecase(jobs, runs)

	got, err := uc.CreateJob(context.Background(), usecase.CreateJobInput{
		Name:     "nightly",
		Schedule: "0 2 * * *",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MaxRetries != 3 {
		t.Fatalf("expected default max_retries 3, got %d", got.MaxRetries)
	}
	if got.RetryDelaySec != 30 {
		t.Fatalf("expected default retry_delay_sec 30, got %d", got.RetryDelaySec)
	}
	if !created.IsActive {
		t.Fatal("expected new job to be active by default")
	}
}

func TestCreateJob_PreservesExplicitZeroMaxRetries(t *testing.T) {
	var created *domain.Job
	jobs := &fakeJobRepo{
		create: func(ctx context.Context, job *domain.Job) (*domain.Job, error) {
			created = job
			job.ID = 1
			return job, nil
		},
	}
	runs := &fakeJobRunRepo{}
	uc := usecase.NewJobUsecase(jobs, runs)

	zero := 0
	got, err := uc.CreateJob(context.Background(), usecase.CreateJobInput{
		Name:          "one-shot",
		Schedule:      "0 2 * * *",
		MaxRetries:    &zero,
		RetryDelaySec: &zero,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MaxRetries != 0 {
		t.Fatalf("expected explicit max_retries 0 to be preserved, got %d", got.MaxRetries)
	}
	if got.RetryDelaySec != 0 {
		t.Fatalf("expected explicit retry_delay_sec 0 to be preserved, got %d", got.RetryDelaySec)
	}
	if !created.IsActive {
		t.Fatal("expected new job to be active by default")
	}
}

func TestGetJob_ReturnsJobAndRecentRuns(t *testing.T) {
	job := &domain.Job{ID: 5, Name: "x"}
	recentRuns := []*domain.JobRun{{ID: 100, JobID: 5}}

	jobs := &fakeJobRepo{
		getByID: func(ctx context.Context, id int64) (*domain.Job, error) { return job, nil },
	}
	runs := &fakeJobRunRepo{
		listByJob: func(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error) {
			return recentRuns, nil
		},
	}
	uc := usecase.NewJobUsecase(jobs, runs)

	detail, err := uc.GetJob(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Job != job {
		t.Fatal("expected returned job to match repo result")
	}
	if len(detail.Runs) != 1 {
		t.Fatalf("expected 1 recent run, got %d", len(detail.Runs))
	}
}

func TestListRuns_PropagatesJobNotFound(t *testing.T) {
	jobs := &fakeJobRepo{
		getByID: func(ctx context.Context, id int64) (*domain.Job, error) { return nil, domain.ErrJobNotFound },
	}
	runs := &fakeJobRunRepo{}
	uc := usecase.NewJobUsecase(jobs, runs)

	_, err := uc.ListRuns(context.Background(), 404, 10)
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListRuns_ClampsLimit(t *testing.T) {
	var gotLimit int
	jobs := &fakeJobRepo{
		getByID: func(ctx context.Context, id int64) (*domain.Job, error) { return &domain.Job{ID: id}, nil },
	}
	runs := &fakeJobRunRepo{
		listByJob: func(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	uc := usecase.NewJobUsecase(jobs, runs)

	if _, err := uc.ListRuns(context.Background(), 1, 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 200 {
		t.Fatalf("expected limit clamped to 200, got %d", gotLimit)
	}
}
