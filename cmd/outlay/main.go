package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"outlay/internal/ai"
	"outlay/internal/ai/gemini"
	"outlay/internal/ai/openai"
	"outlay/internal/amqp"
	"outlay/internal/config"
	apphttp "outlay/internal/http"
	applog "outlay/internal/log"
	"outlay/internal/services"
	"outlay/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// AMQP is optional: without a URL, expense events are simply not
	// published.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	expenseSvc := services.NewExpenseService(repo, amqpClient)
	defer expenseSvc.Close()

	generators := []ai.Generator{
		gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEndpoint, cfg.InsightTimeout),
		openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint, cfg.InsightTimeout),
	}
	insightSvc := services.NewInsightService(repo, cfg.DefaultProvider, generators...)

	srv := apphttp.NewServer(":"+cfg.Port, expenseSvc, insightSvc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting outlay server",
		"port", cfg.Port,
		"default_provider", cfg.DefaultProvider,
		"db_path", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Server stopped gracefully")
}
