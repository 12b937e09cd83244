// Package main is the entry point for the AudioKeep recording delivery server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/audiokeep/audiokeep/internal/config"
	"github.com/audiokeep/audiokeep/internal/logging"
	"github.com/audiokeep/audiokeep/internal/metadata"
	"github.com/audiokeep/audiokeep/internal/metrics"
	"github.com/audiokeep/audiokeep/internal/segmentation"
	"github.com/audiokeep/audiokeep/internal/server"
	"github.com/audiokeep/audiokeep/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	port := flag.Int("port", 0, "override listening port (default: from config or 8080)")
	host := flag.String("host", "", "override listening host (default: from config or 0.0.0.0)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default: from config or info)")
	logFormat := flag.String("log-format", "", "log format: text, json (default: from config or text)")
	shutdownTimeout := flag.Int("shutdown-timeout", 0, "graceful shutdown timeout in seconds (default: from config or 30)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command-line flags override config file values.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}
	if *shutdownTimeout != 0 {
		cfg.Server.ShutdownTimeout = *shutdownTimeout
	}

	// Initialize structured logging.
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	metrics.Register()

	// Initialize the SQLite record store.
	dbPath := cfg.Metadata.SQLite.Path
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create metadata directory: %v\n", err)
		os.Exit(1)
	}
	store, err := metadata.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize record store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Seed the default API token (idempotent, runs on every startup).
	if err := seedDefaultToken(store, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed API token: %v\n", err)
		os.Exit(1)
	}

	// Initialize the storage backend based on config.
	provider, err := storage.NewProvider(context.Background(), cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize storage provider: %v\n", err)
		os.Exit(1)
	}

	splitter := &segmentation.FFmpegSplitter{
		Binary:  cfg.Split.FFmpegPath,
		Timeout: time.Duration(cfg.Split.TimeoutSeconds) * time.Second,
	}

	srv := server.New(cfg, store, provider, splitter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Start the server in a goroutine so we can handle shutdown signals.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("AudioKeep listening", "addr", addr)
		if err := srv.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// SIGTERM/SIGINT handler: stop accepting connections, wait for in-flight
	// requests with a timeout, then exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("Received signal, shutting down", "signal", sig)

		// Give in-flight requests time to complete.
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
		slog.Info("Server stopped")

	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}
}

// seedDefaultToken creates the default API token record from the config if it
// does not already exist. This runs on every startup.
func seedDefaultToken(store *metadata.SQLiteStore, cfg *config.Config) error {
	ctx := context.Background()

	existing, err := store.GetUserByToken(ctx, cfg.Auth.Token)
	if err != nil {
		return fmt.Errorf("checking default token: %w", err)
	}
	if existing != nil {
		// Already seeded. Nothing to do.
		return nil
	}

	if err := store.PutToken(ctx, &metadata.TokenRecord{
		Token:     cfg.Auth.Token,
		UserID:    cfg.Auth.UserID,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("seeding default token: %w", err)
	}
	slog.Info("Seeded default API token", "user_id", cfg.Auth.UserID)
	return nil
}
