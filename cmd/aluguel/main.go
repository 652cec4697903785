package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"aluguel/internal/auth"
	"aluguel/internal/config"
	apphttp "aluguel/internal/http"
	"aluguel/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Open the repository. This runs schema migrations and, on a fresh
	// database, imports any legacy tables it finds. An integrity failure
	// there must stop the process before it serves anything.
	repo, err := storage.Open(cfg.SQLiteDBPath, cfg.SeedProperties)
	if err != nil {
		if errors.Is(err, storage.ErrMigrationIntegrity) {
			logger.Error("Legacy data import failed, refusing to start", "error", err, "path", cfg.SQLiteDBPath)
		} else {
			logger.Error("Failed to open repository", "error", err, "path", cfg.SQLiteDBPath)
		}
		os.Exit(1)
	}
	defer repo.Close()

	gate := auth.NewGate(cfg.AccessCodes, cfg.SessionTTL)

	srv := apphttp.NewServer(":"+cfg.Port, repo, repo, gate)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting aluguel server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
