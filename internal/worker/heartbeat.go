package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/relaysched/relay/internal/metrics"
	"github.com/relaysched/relay/internal/presence"
	"github.com/relaysched/relay/internal/repository"
)

// heartbeatActivity refreshes last_heartbeat_at on its own ticker, running
// concurrently with the job execution it accompanies as a second,
// independent activity: it shares no mutable state with the execution
// goroutine beyond the read-only run/worker IDs, and talks to Postgres
// over the pool's own connection rather than borrowing the
// execution goroutine's.
type heartbeatActivity struct {
	runs     repository.JobRunRepository
	presence *presence.Store
	runID    int64
	workerID string
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func newHeartbeatActivity(
	runs repository.JobRunRepository,
	pres *presence.Store,
	runID int64,
	workerID string,
	interval time.Duration,
	logger *slog.Logger,
) *heartbeatActivity {
	return &heartbeatActivity{
		runs:     runs,
		presence: pres,
		runID:    runID,
		workerID: workerID,
		interval: interval,
		logger:   logger,
	}
}

func (h *heartbeatActivity) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	h.cancel = cancel
	h.done = make(chan struct{})

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.beat(ctx)
			}
		}
	}()
}

func (h *heartbeatActivity) beat(ctx context.Context) {
	if err := h.runs.Heartbeat(ctx, h.runID); err != nil {
		h.logger.Error("heartbeat failed", "run_id", h.runID, "error", err)
		return
	}
	metrics.HeartbeatsTotal.Inc()
	h.logger.Debug("heartbeat", "run_id", h.runID)

	if h.presence != nil {
		runID := h.runID
		if err := h.presence.Heartbeat(ctx, h.workerID, h.interval*3, &runID); err != nil {
			h.logger.Warn("presence heartbeat failed", "error", err)
		}
	}
}

// stop signals the heartbeat goroutine and waits for it to exit, so the
// caller never races a heartbeat write against a terminal status write.
func (h *heartbeatActivity) stop() {
	h.cancel()
	<-h.done
}
