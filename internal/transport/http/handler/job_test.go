package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaysched/relay/internal/domain"
	"github.com/relaysched/relay/internal/transport/http/handler"
	"github.com/relaysched/relay/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJobRepo struct {
	create    func(ctx context.Context, job *domain.Job) (*domain.Job, error)
	getByID   func(ctx context.Context, id int64) (*domain.Job, error)
	list      func(ctx context.Context) ([]*domain.Job, error)
	setActive func(ctx context.Context, id int64, active bool) error
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
func (r *fakeJobRepo) ListActive(ctx context.Context) ([]*domain.Job, error) { return nil, nil }

type fakeJobRunRepo struct {
	listByJob func(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error)
}

func (r *fakeJobRunRepo) LatestForJob(ctx context.Context, jobID int64) (*domain.JobRun, error) {
	return nil, nil
}
func (r *fakeJobRunRepo) Materialize(ctx context.Context, jobID int64, scheduledTime time.Time) (*domain.JobRun, error) {
	return nil, nil
}
func (r *fakeJobRunRepo) Claim(ctx context.Context, workerID string) (*domain.JobRun, error) {
	return nil, nil
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

func newTestEngine(jobs *fakeJobRepo, runs *fakeJobRunRepo) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := usecase.NewJobUsecase(jobs, runs)
	h := handler.NewJobHandler(uc, logger)

	r := gin.New()
	jobsGroup := r.Group("/jobs")
	jobsGroup.POST("", h.Create)
	jobsGroup.GET("", h.List)
	jobsGroup.GET("/:id", h.GetByID)
	jobsGroup.PATCH("/:id/active", h.SetActive)
	jobsGroup.GET("/:id/runs", h.ListRuns)
	return r
}

func TestCreate_InvalidJSON_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{bad json}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(&fakeJobRepo{}, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreate_InvalidCron_Returns400(t *testing.T) {
	jobs := &fakeJobRepo{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"name":"bad","schedule":"not a cron"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(jobs, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreate_Success_Returns201(t *testing.T) {
	jobs := &fakeJobRepo{
		create: func(ctx context.Context, job *domain.Job) (*domain.Job, error) {
			job.ID = 42
			return job, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"name":"nightly","schedule":"0 2 * * *"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(jobs, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"id":42`) {
		t.Errorf("expected body to contain created job id, got %s", w.Body.String())
	}
}

func TestCreate_ExplicitZeroMaxRetries_IsPreserved(t *testing.T) {
	var captured *domain.Job
	jobs := &fakeJobRepo{
		create: func(ctx context.Context, job *domain.Job) (*domain.Job, error) {
			job.ID = 1
			captured = job
			return job, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"name":"one-shot","schedule":"0 2 * * *","max_retries":0,"retry_delay_sec":0}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(jobs, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", w.Code, w.Body.String())
	}
	if captured.MaxRetries != 0 {
		t.Errorf("expected explicit max_retries 0 to reach the created job, got %d", captured.MaxRetries)
	}
	if captured.RetryDelaySec != 0 {
		t.Errorf("expected explicit retry_delay_sec 0 to reach the created job, got %d", captured.RetryDelaySec)
	}
}

func TestGetByID_NotFound_Returns404(t *testing.T) {
	jobs := &fakeJobRepo{
		getByID: func(ctx context.Context, id int64) (*domain.Job, error) { return nil, domain.ErrJobNotFound },
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/404", nil)
	newTestEngine(jobs, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetByID_MalformedID_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/not-a-number", nil)
	newTestEngine(&fakeJobRepo{}, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetByID_Success_IncludesRecentRuns(t *testing.T) {
	jobs := &fakeJobRepo{
		getByID: func(ctx context.Context, id int64) (*domain.Job, error) {
			return &domain.Job{ID: id, Name: "nightly"}, nil
		},
	}
	runs := &fakeJobRunRepo{
		listByJob: func(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error) {
			return []*domain.JobRun{{ID: 1, JobID: jobID, Status: domain.StatusSuccess}}, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/7", nil)
	newTestEngine(jobs, runs).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"recent_runs"`) {
		t.Errorf("expected body to contain recent_runs, got %s", w.Body.String())
	}
}

func TestSetActive_NotFound_Returns404(t *testing.T) {
	jobs := &fakeJobRepo{
		setActive: func(ctx context.Context, id int64, active bool) error { return domain.ErrJobNotFound },
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/jobs/9/active", strings.NewReader(`{"active":false}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(jobs, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSetActive_Success_Returns204(t *testing.T) {
	jobs := &fakeJobRepo{
		setActive: func(ctx context.Context, id int64, active bool) error { return nil },
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/jobs/9/active", strings.NewReader(`{"active":true}`))
	req.Header.Set("Content-Type", "application/json")
	newTestEngine(jobs, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestListRuns_JobNotFound_Returns404(t *testing.T) {
	jobs := &fakeJobRepo{
		getByID: func(ctx context.Context, id int64) (*domain.Job, error) { return nil, domain.ErrJobNotFound },
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/404/runs", nil)
	newTestEngine(jobs, &fakeJobRunRepo{}).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListRuns_Success_Returns200(t *testing.T) {
	jobs := &fakeJobRepo{
		getByID: func(ctx context.Context, id int64) (*domain.Job, error) { return &domain.Job{ID: id}, nil },
	}
	runs := &fakeJobRunRepo{
		listByJob: func(ctx context.Context, jobID int64, limit int) ([]*domain.JobRun, error) {
			return []*domain.JobRun{{ID: 1, JobID: jobID}, {ID: 2, JobID: jobID}}, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/3/runs?limit=5", nil)
	newTestEngine(jobs, runs).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
}
