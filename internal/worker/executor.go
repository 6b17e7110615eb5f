package worker

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/relaysched/relay/internal/domain"
)

// Executor runs a synthetic workload in place of a real job payload:
// sleep for execution_time_sec, then fail with probability
// failure_probability.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

type ExecutionResult struct {
	Err      error
	Duration time.Duration
}

func (e *Executor) Run(ctx context.Context, job *domain.Job) ExecutionResult {
	start := time.Now()

	select {
	case <-ctx.Done():
		return ExecutionResult{Err: ctx.Err(), Duration: time.Since(start)}
	case <-time.After(time.Duration(job.ExecutionTimeSec) * time.Second):
	}

	if rand.Float64() < job.FailureProbability {
		return ExecutionResult{
			Err:      fmt.Errorf("synthetic failure (p=%.2f)", job.FailureProbability),
			Duration: time.Since(start),
		}
	}

	return ExecutionResult{Duration: time.Since(start)}
}
