package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/relaysched/relay/internal/metrics"
	"github.com/relaysched/relay/internal/repository"
)

// Reaper ticks on Config.SchedulerInterval and recovers RUNNING runs whose
// worker has stopped heartbeating for longer than Config.ZombieTimeout.
// It only ever touches rows the claim query can't see, so the two never
// race on the same run.
type Reaper struct {
	runs      repository.JobRunRepository
	batchSize int
	timeout   time.Duration
	logger    *slog.Logger
}

func NewReaper(runs repository.JobRunRepository, batchSize int, timeout time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		runs:      runs,
		batchSize: batchSize,
		timeout:   timeout,
		logger:    logger.With("component", "reaper"),
	}
}

func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.ReaperCycleDuration.Observe(time.Since(start).Seconds())
	}()

	cutoff := time.Now().UTC().Add(-r.timeout)

	retried, err := r.runs.ReapToRetry(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.Error("reap to retry failed", "error", err)
	} else if retried > 0 {
		metrics.ReaperRescuedTotal.WithLabelValues("retry").Add(float64(retried))
		r.logger.Warn("zombie_recovered", "count", retried, "cutoff", cutoff)
	}

	failed, err := r.runs.ReapToFailed(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.Error("reap to failed failed", "error", err)
	} else if failed > 0 {
		metrics.ReaperRescuedTotal.WithLabelValues("failed").Add(float64(failed))
		r.logger.Warn("zombie_failed", "count", failed, "cutoff", cutoff)
	}

	if retried > 0 || failed > 0 {
		r.logger.Info("zombie_detected", "retried", retried, "failed_out", failed, "cutoff", cutoff)
	}
}
