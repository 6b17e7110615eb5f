package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaysched/relay/internal/domain"
	"github.com/relaysched/relay/internal/usecase"
)

type JobHandler struct {
	uc     *usecase.JobUsecase
	logger *slog.Logger
}

func NewJobHandler(uc *usecase.JobUsecase, logger *slog.Logger) *JobHandler {
	return &JobHandler{uc: uc, logger: logger.With("component", "job_handler")}
}

// MaxRetries and RetryDelaySec are pointers so a request that omits them
// gets the usecase defaults, while an explicit 0 is passed through as-is.
type createJobRequest struct {
	Name               string  `json:"name" binding:"required,max=256"`
	Schedule           string  `json:"schedule" binding:"required"`
	ExecutionTimeSec   int     `json:"execution_time_sec" binding:"omitempty,min=0,max=3600"`
	FailureProbability float64 `json:"failure_probability" binding:"omitempty,min=0,max=1"`
	MaxRetries         *int    `json:"max_retries" binding:"omitempty,min=0,max=20"`
	RetryDelaySec      *int    `json:"retry_delay_sec" binding:"omitempty,min=0,max=3600"`
}

type jobResponse struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Schedule           string    `json:"schedule"`
	ExecutionTimeSec   int       `json:"execution_time_sec"`
	FailureProbability float64   `json:"failure_probability"`
	MaxRetries         int       `json:"max_retries"`
	RetryDelaySec      int       `json:"retry_delay_sec"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:                 j.ID,
		Name:               j.Name,
		Schedule:           j.Schedule,
		ExecutionTimeSec:   j.ExecutionTimeSec,
		FailureProbability: j.FailureProbability,
		MaxRetries:         j.MaxRetries,
		RetryDelaySec:      j.RetryDelaySec,
		IsActive:           j.IsActive,
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
	}
}

type jobRunResponse struct {
	ID              int64      `json:"id"`
	JobID           int64      `json:"job_id"`
	ScheduledTime   time.Time  `json:"scheduled_time"`
	Status          string     `json:"status"`
	AttemptNumber   int        `json:"attempt_number"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`
	WorkerID        *string    `json:"worker_id,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
}

func toJobRunResponse(r *domain.JobRun) jobRunResponse {
	return jobRunResponse{
		ID:              r.ID,
		JobID:           r.JobID,
		ScheduledTime:   r.ScheduledTime,
		Status:          string(r.Status),
		AttemptNumber:   r.AttemptNumber,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		LastHeartbeatAt: r.LastHeartbeatAt,
		WorkerID:        r.WorkerID,
		ErrorMessage:    r.ErrorMessage,
	}
}

func (h *JobHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.uc.CreateJob(c.Request.Context(), usecase.CreateJobInput{
		Name:               req.Name,
		Schedule:           req.Schedule,
		ExecutionTimeSec:   req.ExecutionTimeSec,
		FailureProbability: req.FailureProbability,
		MaxRetries:         req.MaxRetries,
		RetryDelaySec:      req.RetryDelaySec,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCronExpr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCronExpr})
			return
		}
		h.logger.Error("create job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusCreated, toJobResponse(job))
}

func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.uc.ListJobs(c.Request.Context())
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]jobResponse, len(jobs))
	for i, j := range jobs {
		items[i] = toJobResponse(j)
	}
	c.JSON(http.StatusOK, gin.H{"jobs": items})
}

func (h *JobHandler) GetByID(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detail, err := h.uc.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
			return
		}
		h.logger.Error("get job", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	runs := make([]jobRunResponse, len(detail.Runs))
	for i, r := range detail.Runs {
		runs[i] = toJobRunResponse(r)
	}

	resp := toJobResponse(detail.Job)
	c.JSON(http.StatusOK, gin.H{
		"job":         resp,
		"recent_runs": runs,
	})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *JobHandler) SetActive(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.uc.SetActive(c.Request.Context(), id, req.Active); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
			return
		}
		h.logger.Error("set active", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *JobHandler) ListRuns(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	runs, err := h.uc.ListRuns(c.Request.Context(), id, limit)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
			return
		}
		h.logger.Error("list runs", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]jobRunResponse, len(runs))
	for i, r := range runs {
		items[i] = toJobRunResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": items})
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
