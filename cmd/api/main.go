package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hermes-platform/console-api/internal/api"
	"github.com/hermes-platform/console-api/internal/audit"
	"github.com/hermes-platform/console-api/internal/cache"
	"github.com/hermes-platform/console-api/internal/config"
	"github.com/hermes-platform/console-api/internal/database"
	"github.com/hermes-platform/console-api/internal/execution"
	"github.com/hermes-platform/console-api/internal/hermes"
	"github.com/hermes-platform/console-api/internal/memory"
	"github.com/hermes-platform/console-api/internal/queue"
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

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable at startup", "error", err)
	}
	defer rdb.Close()

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	hermesClient := hermes.NewMockClient(cfg.Hermes.BaseURL)

	auditSvc := audit.NewService(db)
	sessionSvc := session.NewService(db, cfg.Auth.SessionTTL)
	workspaceSvc := workspace.NewService(db, auditSvc, cache.NewCache(rdb))
	executionSvc := execution.NewService(db, hermesClient, workspaceSvc, auditSvc, queueClient, rdb, cfg.Hermes.Timeout)
	memorySvc := memory.NewService(db, hermesClient, workspaceSvc, auditSvc, cfg.Hermes.Timeout)

	handler := api.NewRouter(api.Deps{
		DB:           db,
		Redis:        rdb,
		Sessions:     sessionSvc,
		Workspaces:   workspaceSvc,
		Executions:   executionSvc,
		Memory:       memorySvc,
		Audit:        auditSvc,
		APIKeyHeader: cfg.Auth.APIKeyHeader,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
