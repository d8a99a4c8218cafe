package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"outlay/internal/amqp"
	"outlay/internal/config"
	applog "outlay/internal/log"
	"outlay/internal/storage"
	"outlay/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentWorker
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	logger.Info("Starting outlay-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	auditWorker := worker.NewAuditWorker(repo, cfg.AuditBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeWithReconnect(ctx, cfg.AMQPURL, func(msg *amqp.ExpenseEventMessage) error {
			return auditWorker.HandleEventMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.AuditInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := auditWorker.ReportStats(ctx); err != nil {
					logger.Error("Audit stats pass failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
