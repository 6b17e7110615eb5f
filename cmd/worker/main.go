package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaysched/relay/config"
	"github.com/relaysched/relay/internal/health"
	"github.com/relaysched/relay/internal/infrastructure/postgres"
	ctxlog "github.com/relaysched/relay/internal/log"
	"github.com/relaysched/relay/internal/metrics"
	"github.com/relaysched/relay/internal/presence"
	"github.com/relaysched/relay/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}
	logger.Info("db connected")

	redisClient, err := presence.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, presence tracking disabled", "error", err)
	}

	var presenceStore *presence.Store
	var redisPinger health.Pinger
	if redisClient != nil {
		presenceStore = presence.New(redisClient)
		redisPinger = presence.Pinger{Client: redisClient}
		if err := presenceStore.Sweep(ctx); err != nil {
			logger.Warn("presence sweep failed", "error", err)
		}
	}

	metrics.Register()
	checker := health.NewChecker(pool, redisPinger, logger, prometheus.DefaultRegisterer)

	jobRepo := postgres.NewJobRepository(pool)
	runRepo := postgres.NewJobRunRepository(pool)

	w := worker.New(
		cfg.WorkerID,
		jobRepo,
		runRepo,
		presenceStore,
		cfg.PollInterval(),
		cfg.HeartbeatInterval(),
		cfg.WorkerConcurrency,
		logger,
	)
	go w.Run(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("worker shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
