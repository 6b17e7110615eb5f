package domain

import (
	"errors"
	"time"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidCronExpr = errors.New("invalid cron expression")
)

// Job is a registered recurring task. The scheduler materializes JobRuns
// from its cron schedule; it never describes the work itself beyond a
// simulated duration and failure probability.
type Job struct {
	ID                 int64
	Name               string
	Schedule           string // 5-field standard cron expression
	ExecutionTimeSec   int
	FailureProbability float64
	MaxRetries         int
	RetryDelaySec      int
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
