package domain

import (
	"errors"
	"time"
)

var (
	ErrRunNotFound  = errors.New("job run not found")
	ErrDuplicateRun = errors.New("job run already materialized for this (job_id, scheduled_time)")
)

type Status string

const (
	StatusPending Status = "PENDING"
	// StatusQueued is reserved for a future dispatch-to-external-queue
	// path; no component in this repo ever sets it.
	StatusQueued  Status = "QUEUED"
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusRetry   Status = "RETRY"
)

// JobRun is a single scheduled execution attempt of a Job.
//
// (JobID, ScheduledTime) is unique — materialization is idempotent.
// A run in SUCCESS or FAILED is never mutated again.
type JobRun struct {
	ID              int64
	JobID           int64
	ScheduledTime   time.Time
	Status          Status
	AttemptNumber   int
	StartedAt       *time.Time
	FinishedAt      *time.Time
	LastHeartbeatAt *time.Time
	WorkerID        *string
	ErrorMessage    *string
	CreatedAt       time.Time
}
