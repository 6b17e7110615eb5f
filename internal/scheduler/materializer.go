// Package scheduler runs the two control loops that own a Job's lifecycle
// before a worker ever touches it: materialization (turning a cron schedule
// into concrete PENDING JobRuns) and zombie reaping (recovering runs whose
// claiming worker died mid-execution). Neither loop executes job work
// itself — that is internal/worker's job.
package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/relaysched/relay/internal/cronutil"
	"github.com/relaysched/relay/internal/domain"
	"github.com/relaysched/relay/internal/metrics"
	"github.com/relaysched/relay/internal/presence"
	"github.com/relaysched/relay/internal/repository"
)

// Materializer ticks on Config.SchedulerInterval, and for every active Job
// whose next cron firing is due, inserts exactly one PENDING JobRun. The
// (job_id, scheduled_time) unique constraint makes a double materialization
// a no-op rather than a duplicate run.
type Materializer struct {
	jobs     repository.JobRepository
	runs     repository.JobRunRepository
	presence *presence.Store
	logger   *slog.Logger
}

func NewMaterializer(jobs repository.JobRepository, runs repository.JobRunRepository, pres *presence.Store, logger *slog.Logger) *Materializer {
	return &Materializer{
		jobs:     jobs,
		runs:     runs,
		presence: pres,
		logger:   logger.With("component", "materializer"),
	}
}

// Run blocks, ticking every interval until ctx is canceled.
func (m *Materializer) Run(ctx context.Context, interval time.Duration) {
	m.logger.Info("scheduler_started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Materializer) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.MaterializeCycleDuration.Observe(time.Since(start).Seconds())
	}()

	m.logClusterState(ctx)

	jobs, err := m.jobs.ListActive(ctx)
	if err != nil {
		m.logger.Error("list active jobs failed", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if err := m.materializeOne(ctx, job, now); err != nil {
			m.logger.Error("materialize failed", "job_id", job.ID, "error", err)
		}
	}
}

// materializeOne computes the job's next due firing relative to its last
// materialized run (or its creation time, for a job that has never fired)
// and inserts a PENDING run if that firing is already due. It only ever
// materializes one run per tick per job — a job that missed many firings
// while deactivated catches up one tick at a time, not in a burst.
func (m *Materializer) materializeOne(ctx context.Context, job *domain.Job, now time.Time) error {
	base := job.CreatedAt
	if latest, err := m.runs.LatestForJob(ctx, job.ID); err != nil {
		return err
	} else if latest != nil {
		base = latest.ScheduledTime
	}

	next, err := cronutil.Next(job.Schedule, base)
	if err != nil {
		m.logger.Error("invalid cron expression", "job_id", job.ID, "schedule", job.Schedule, "error", err)
		return nil
	}

	if next.After(now) {
		return nil
	}

	run, err := m.runs.Materialize(ctx, job.ID, next)
	if err != nil {
		if err == domain.ErrDuplicateRun {
			return nil
		}
		return err
	}

	metrics.RunsMaterializedTotal.WithLabelValues(strconv.FormatInt(job.ID, 10)).Inc()
	m.logger.Info("job_scheduled",
		"job_id", job.ID,
		"job_name", job.Name,
		"run_id", run.ID,
		"scheduled_time", run.ScheduledTime,
	)
	return nil
}

// logClusterState emits an observational snapshot — active worker count
// and in-flight run count, read from the presence store. Never used for
// a scheduling decision.
func (m *Materializer) logClusterState(ctx context.Context) {
	if m.presence == nil {
		return
	}
	state, err := m.presence.ClusterState(ctx)
	if err != nil {
		m.logger.Warn("cluster state unavailable", "error", err)
		return
	}
	m.logger.Info("cluster_state",
		"active_workers", state.ActiveWorkers,
		"running_jobs", state.RunningJobs,
	)
}
