package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/paddleops/bulkimport/internal/catalog"
	"github.com/paddleops/bulkimport/internal/config"
	"github.com/paddleops/bulkimport/internal/importer"
	"github.com/paddleops/bulkimport/internal/logging"
	"github.com/paddleops/bulkimport/internal/paddle"
	"github.com/paddleops/bulkimport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"import_max_concurrent_runs", cfg.Import.MaxConcurrentRuns,
		"row_parallelism", cfg.Import.RowParallelism,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Each import run brings its own API key and environment selection,
	// so clients are built per run rather than once at startup.
	newClient := func(apiKey string, sandbox bool) importer.CreationAPI {
		if cfg.Paddle.BaseURL != "" {
			return paddle.New(apiKey, sandbox, paddle.WithBaseURL(cfg.Paddle.BaseURL))
		}
		return paddle.New(apiKey, sandbox)
	}

	service := importer.NewService(catalog.Default(), newClient, cfg)
	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if active := service.ActiveRuns(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
