package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/hermes-platform/console-api/internal/audit"
	"github.com/hermes-platform/console-api/internal/cache"
	"github.com/hermes-platform/console-api/internal/config"
	"github.com/hermes-platform/console-api/internal/database"
	"github.com/hermes-platform/console-api/internal/execution"
	"github.com/hermes-platform/console-api/internal/hermes"
	"github.com/hermes-platform/console-api/internal/queue"
	"github.com/hermes-platform/console-api/internal/queue/workers"
	"github.com/hermes-platform/console-api/internal/session"
	"github.com/hermes-platform/console-api/internal/workspace"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	hermesClient := hermes.NewMockClient(cfg.Hermes.BaseURL)
	auditSvc := audit.NewService(db)
	sessionSvc := session.NewService(db, cfg.Auth.SessionTTL)
	workspaceSvc := workspace.NewService(db, auditSvc, cache.NewCache(rdb))
	executionSvc := execution.NewService(db, hermesClient, workspaceSvc, auditSvc, queueClient, rdb, cfg.Hermes.Timeout)

	// Hourly sweep of expired sessions.
	c := cron.New()
	c.AddFunc("@hourly", func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := sessionSvc.SweepExpired(sweepCtx)
		if err != nil {
			slog.Error("session sweep failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("swept expired sessions", "count", n)
		}
	})
	c.Start()
	defer c.Stop()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	syncWorker := workers.NewExecutionSyncWorker(executionSvc)
	registry.Register(queue.TypeExecutionSync, asynq.HandlerFunc(syncWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
