// Package presence maintains observational worker/run liveness keys in
// Redis. None of it is load-bearing for correctness — the authoritative
// liveness signal is last_heartbeat_at in Postgres
// (internal/infrastructure/postgres.JobRunRepository). Redis
// inconsistency with the database is tolerated.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const runningJobRunsKey = "running_job_runs"

type WorkerInfo struct {
	WorkerID        string `json:"worker_id"`
	LastSeen        string `json:"last_seen"`
	CurrentJobRunID *int64 `json:"current_job_run_id,omitempty"`
}

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Sweep deletes every worker:* key. Called once on process startup so that
// keys left behind by a crashed previous instance don't linger.
func (s *Store) Sweep(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, "worker:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan worker keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete worker keys: %w", err)
	}
	return nil
}

// Heartbeat refreshes worker:<id> with a fresh TTL. currentJobRunID is nil
// when the worker is idle.
func (s *Store) Heartbeat(ctx context.Context, workerID string, ttl time.Duration, currentJobRunID *int64) error {
	info := WorkerInfo{
		WorkerID:        workerID,
		LastSeen:        time.Now().UTC().Format(time.RFC3339),
		CurrentJobRunID: currentJobRunID,
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal worker info: %w", err)
	}
	if err := s.client.Set(ctx, "worker:"+workerID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set worker presence: %w", err)
	}
	return nil
}

// MarkRunning adds runID to the running_job_runs set on claim.
func (s *Store) MarkRunning(ctx context.Context, runID int64) error {
	if err := s.client.SAdd(ctx, runningJobRunsKey, runID).Err(); err != nil {
		return fmt.Errorf("sadd running job run: %w", err)
	}
	return nil
}

// ClearRunning removes runID from running_job_runs on any terminal outcome.
func (s *Store) ClearRunning(ctx context.Context, runID int64) error {
	if err := s.client.SRem(ctx, runningJobRunsKey, runID).Err(); err != nil {
		return fmt.Errorf("srem running job run: %w", err)
	}
	return nil
}

// ClusterState is an observational snapshot for the scheduler's
// cluster_state log event — never used for a correctness decision.
type ClusterState struct {
	ActiveWorkers int
	RunningJobs   int
}

func (s *Store) ClusterState(ctx context.Context) (ClusterState, error) {
	var state ClusterState

	iter := s.client.Scan(ctx, 0, "worker:*", 0).Iterator()
	for iter.Next(ctx) {
		state.ActiveWorkers++
	}
	if err := iter.Err(); err != nil {
		return state, fmt.Errorf("scan worker keys: %w", err)
	}

	count, err := s.client.SCard(ctx, runningJobRunsKey).Result()
	if err != nil {
		return state, fmt.Errorf("scard running job runs: %w", err)
	}
	state.RunningJobs = int(count)

	return state, nil
}
