package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/audiokeep/audiokeep/internal/config"
)

// NewProvider constructs the storage provider selected by configuration.
// The backend variant is decided exactly once, here, at process start; no
// other code branches on the backend type.
func NewProvider(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	switch cfg.Backend {
	case "local":
		p, err := NewLocalProvider(cfg.Local.RootDir)
		if err != nil {
			return nil, fmt.Errorf("initializing local storage: %w", err)
		}
		// Clean orphan temp files from incomplete writes on a previous run.
		if err := p.CleanTempFiles(); err != nil {
			slog.Warn("Failed to clean temp files", "error", err)
		}
		slog.Info("Storage provider initialized", "backend", "local", "root", cfg.Local.RootDir)
		return Instrument(p), nil
	case "s3":
		p, err := NewS3Provider(ctx, S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			UsePathStyle:    cfg.S3.UsePathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing S3 storage: %w", err)
		}
		return Instrument(p), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}
}
