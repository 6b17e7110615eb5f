// Package worker claims PENDING/RETRY JobRuns and executes them using a
// concurrency-limited claim loop and a synthetic execution/outcome model.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/relaysched/relay/internal/domain"
	"github.com/relaysched/relay/internal/metrics"
	"github.com/relaysched/relay/internal/presence"
	"github.com/relaysched/relay/internal/repository"
)

type Worker struct {
	id           string
	jobs         repository.JobRepository
	runs         repository.JobRunRepository
	executor     *Executor
	presence     *presence.Store
	pollInterval time.Duration
	heartbeat    time.Duration
	concurrency  int
	logger       *slog.Logger
}

func New(
	id string,
	jobs repository.JobRepository,
	runs repository.JobRunRepository,
	pres *presence.Store,
	pollInterval, heartbeatInterval time.Duration,
	concurrency int,
	logger *slog.Logger,
) *Worker {
	if id == "" {
		hostname, _ := os.Hostname()
		id = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}
	return &Worker{
		id:           id,
		jobs:         jobs,
		runs:         runs,
		executor:     NewExecutor(),
		presence:     pres,
		pollInterval: pollInterval,
		heartbeat:    heartbeatInterval,
		concurrency:  concurrency,
		logger:       logger.With("component", "worker", "worker_id", id),
	}
}

// Run blocks, polling for claimable work until ctx is canceled. Up to
// concurrency runs execute concurrently; a full pool simply skips claiming
// until a slot frees up on the next tick.
func (w *Worker) Run(ctx context.Context) {
	metrics.WorkerStartTime.SetToCurrentTime()
	w.logger.Info("worker_booted", "concurrency", w.concurrency, "poll_interval", w.pollInterval.String())

	slots := make(chan struct{}, w.concurrency)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			metrics.WorkerShutdownsTotal.Inc()
			w.logger.Info("worker shutting down")
			return
		case <-ticker.C:
			w.fillSlots(ctx, slots)
		}
	}
}

func (w *Worker) fillSlots(ctx context.Context, slots chan struct{}) {
	for {
		select {
		case slots <- struct{}{}:
		default:
			return // pool full
		}

		run, err := w.runs.Claim(ctx, w.id)
		if err != nil {
			w.logger.Error("claim failed", "error", err)
			<-slots
			return
		}
		if run == nil {
			<-slots
			return
		}

		metrics.JobPickupLatency.Observe(time.Since(run.ScheduledTime).Seconds())
		metrics.JobsInFlight.Inc()

		go func() {
			defer func() { <-slots; metrics.JobsInFlight.Dec() }()
			w.execute(ctx, run)
		}()
	}
}

func (w *Worker) execute(ctx context.Context, run *domain.JobRun) {
	job, err := w.jobs.GetByID(ctx, run.JobID)
	if err != nil {
		w.logger.Error("job lookup failed during execution", "job_id", run.JobID, "run_id", run.ID, "error", err)
		return
	}

	w.logger.Info("job_claimed", "run_id", run.ID, "job_id", job.ID, "job_name", job.Name)

	if w.presence != nil {
		_ = w.presence.MarkRunning(ctx, run.ID)
		defer func() { _ = w.presence.ClearRunning(ctx, run.ID) }()
	}

	hb := newHeartbeatActivity(w.runs, w.presence, run.ID, w.id, w.heartbeat, w.logger)
	hb.start(ctx)

	w.logger.Info("job_started", "run_id", run.ID, "job_id", job.ID, "attempt", run.AttemptNumber+1)

	result := w.executor.Run(ctx, job)
	hb.stop()

	status := "success"
	defer func() {
		metrics.JobExecutionDuration.WithLabelValues(status).Observe(result.Duration.Seconds())
		metrics.JobsCompletedTotal.WithLabelValues(status).Inc()
	}()

	if result.Err == nil {
		if err := w.runs.Succeed(ctx, run.ID); err != nil {
			w.logger.Error("mark success failed", "run_id", run.ID, "error", err)
			return
		}
		w.logger.Info("job_success", "run_id", run.ID, "job_id", job.ID, "duration", result.Duration.String())
		return
	}

	attempt := run.AttemptNumber + 1
	if attempt <= job.MaxRetries {
		status = "retry"
		nextAttemptAt := time.Now().UTC().Add(time.Duration(job.RetryDelaySec) * time.Second)
		if err := w.runs.Retry(ctx, run.ID, attempt, result.Err.Error(), nextAttemptAt); err != nil {
			w.logger.Error("mark retry failed", "run_id", run.ID, "error", err)
			return
		}
		w.logger.Warn("job_retry", "run_id", run.ID, "job_id", job.ID,
			"attempt", attempt, "max_retries", job.MaxRetries, "next_attempt_at", nextAttemptAt, "error", result.Err)
		return
	}

	status = "failed"
	if err := w.runs.Fail(ctx, run.ID, attempt, result.Err.Error()); err != nil {
		w.logger.Error("mark failed failed", "run_id", run.ID, "error", err)
		return
	}
	w.logger.Error("job_failed", "run_id", run.ID, "job_id", job.ID, "attempt", attempt, "error", result.Err)
}
