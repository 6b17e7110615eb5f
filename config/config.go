package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0" validate:"required"`

	WorkerID          string `env:"WORKER_ID"` // falls back to hostname-pid when empty
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"5" validate:"min=1,max=100"`

	PollIntervalSec      int `env:"POLL_INTERVAL_SEC" envDefault:"2" validate:"min=1,max=60"`
	HeartbeatIntervalSec int `env:"HEARTBEAT_INTERVAL_SEC" envDefault:"5" validate:"min=1,max=300"`
	WorkerTTLSec         int `env:"WORKER_TTL_SEC" envDefault:"15" validate:"min=1,max=600"`
	SchedulerIntervalSec int `env:"SCHEDULER_INTERVAL_SEC" envDefault:"5" validate:"min=1,max=60"`
	ZombieTimeoutSec     int `env:"ZOMBIE_TIMEOUT_SEC" envDefault:"60" validate:"min=1,max=3600"`
	ReapBatchSize        int `env:"REAP_BATCH_SIZE" envDefault:"100" validate:"min=1,max=10000"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.validateTunables(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// validateTunables enforces that ZOMBIE_TIMEOUT exceeds 2x
// HEARTBEAT_INTERVAL, so a single missed beat never trips the reaper.
// A plain validator tag can't express this cross-field relationship.
func (c *Config) validateTunables() error {
	if c.ZombieTimeoutSec <= 2*c.HeartbeatIntervalSec {
		return fmt.Errorf(
			"ZOMBIE_TIMEOUT_SEC (%ds) must be greater than 2x HEARTBEAT_INTERVAL_SEC (%ds)",
			c.ZombieTimeoutSec, c.HeartbeatIntervalSec,
		)
	}
	return nil
}

func (c *Config) PollInterval() time.Duration      { return time.Duration(c.PollIntervalSec) * time.Second }
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSec) * time.Second
}
func (c *Config) WorkerTTL() time.Duration { return time.Duration(c.WorkerTTLSec) * time.Second }
func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerIntervalSec) * time.Second
}
func (c *Config) ZombieTimeout() time.Duration {
	return time.Duration(c.ZombieTimeoutSec) * time.Second
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
