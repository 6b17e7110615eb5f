package config_test

import (
	"testing"

	"github.com/relaysched/relay/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/test")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "local" {
		t.Fatalf("expected default env local, got %s", cfg.Env)
	}
	if cfg.ZombieTimeoutSec != 60 {
		t.Fatalf("expected default zombie timeout 60, got %d", cfg.ZombieTimeoutSec)
	}
}

func TestLoad_RejectsMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoad_RejectsZombieTimeoutTooCloseToHeartbeat(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HEARTBEAT_INTERVAL_SEC", "30")
	t.Setenv("ZOMBIE_TIMEOUT_SEC", "45") // not > 2x30

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for zombie timeout too close to heartbeat interval")
	}
}

func TestLoad_AcceptsZombieTimeoutWellAboveHeartbeat(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HEARTBEAT_INTERVAL_SEC", "10")
	t.Setenv("ZOMBIE_TIMEOUT_SEC", "60")

	if _, err := config.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
