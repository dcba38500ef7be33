package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/walletlink/service/config"
	"github.com/brojonat/walletlink/service/db"
	"github.com/brojonat/walletlink/service/linker"
	"github.com/brojonat/walletlink/service/metrics"
	natspkg "github.com/brojonat/walletlink/service/nats"
	"github.com/brojonat/walletlink/service/server"
	"github.com/brojonat/walletlink/service/temporal"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	// The archive is optional; without it the history endpoints are not served.
	var store server.ReportStore
	var archive *db.Store
	if cfg.DatabaseURL != "" {
		dbPool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		archive = db.NewStore(dbPool, metricsCollector)
		if err := archive.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		store = archive
		logger.Info("connected to database")
	}

	var publisher natspkg.Publisher
	var subscriber natspkg.Subscriber
	if cfg.NATSURL != "" {
		pub, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		publisher = pub

		sub, err := natspkg.NewSubscriber(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to create NATS subscriber", "error", err)
			os.Exit(1)
		}
		defer sub.Close()
		subscriber = sub
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	// With a Temporal host, analyses run on workers; otherwise in-process.
	var runner server.AnalysisRunner
	if cfg.TemporalHost != "" {
		temporalClient, err := temporal.NewClient(
			cfg.TemporalHost,
			cfg.TemporalNamespace,
			cfg.TemporalTaskQueue,
			logger,
		)
		if err != nil {
			logger.Error("failed to create temporal client", "error", err)
			os.Exit(1)
		}
		defer temporalClient.Close()
		runner = server.NewTemporalRunner(temporalClient)
		logger.Info("analyses delegated to temporal workers",
			"host", cfg.TemporalHost,
			"task_queue", cfg.TemporalTaskQueue,
		)
	} else {
		analyzer := linker.NewFromConfig(cfg, metricsCollector, logger)
		runner = server.NewInlineRunner(analyzer, store, publisher, logger)
		logger.Info("analyses run in-process", "rpc_url", cfg.RPCURL)
	}

	httpServer := server.New(cfg.ServerAddr, runner, store, metricsCollector, logger)
	if subscriber != nil {
		httpServer.WithSubscriber(subscriber)
	}

	logger.Info("server initialized, all dependencies ready",
		"archive", archive != nil,
		"nats_url", cfg.NATSURL,
		"temporal_host", cfg.TemporalHost,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
