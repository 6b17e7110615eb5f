// seed inserts a handful of demo Jobs into the local dev database, covering
// a range of execution durations, failure probabilities, and retry
// policies so the scheduler/worker/reaper loops all have something to do.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/relaysched/relay/internal/infrastructure/postgres"
)

type jobSpec struct {
	name               string
	schedule           string
	executionTimeSec   int
	failureProbability float64
	maxRetries         int
	retryDelaySec      int
}

var jobs = []jobSpec{
	{"heartbeat-check", "* * * * *", 1, 0.0, 3, 10},
	{"nightly-rollup", "0 2 * * *", 5, 0.1, 3, 30},
	{"flaky-sync", "*/2 * * * *", 2, 0.4, 5, 15},
	{"always-fails", "*/5 * * * *", 1, 1.0, 2, 5},
	{"slow-export", "*/10 * * * *", 20, 0.05, 3, 60},
	{"hourly-report", "0 * * * *", 3, 0.0, 1, 30},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var inserted, skipped int
	for _, spec := range jobs {
		tag, err := pool.Exec(ctx, `
			INSERT INTO jobs (
				name, schedule, execution_time_sec, failure_probability,
				max_retries, retry_delay_sec, is_active
			) VALUES ($1, $2, $3, $4, $5, $6, true)
			ON CONFLICT (name) DO NOTHING`,
			spec.name, spec.schedule, spec.executionTimeSec,
			spec.failureProbability, spec.maxRetries, spec.retryDelaySec,
		)
		if err != nil {
			log.Fatalf("insert job %s: %v", spec.name, err)
		}
		if tag.RowsAffected() == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	fmt.Println("Seed complete")
	fmt.Printf("  Jobs created: %d  (skipped %d already existing)\n", inserted, skipped)
}
