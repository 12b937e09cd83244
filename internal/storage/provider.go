// Package storage defines the interface and implementations for AudioKeep's
// audio object storage layer.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Download when the addressed key does not exist.
// All other failures are backend-availability errors and wrap the underlying
// cause so callers can decide retry-vs-surface.
var ErrNotFound = errors.New("storage: key not found")

// IsNotFound reports whether err indicates an absent key rather than a
// backend failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Provider defines the uniform contract over a storage backend.
// Implementations provide the underlying storage mechanism (local filesystem
// or an S3-compatible object store). All methods must be safe for concurrent
// use, and no operation may have cross-key effects.
type Provider interface {
	// Upload writes data at the given key with the given content type,
	// creating parent structure as needed and overwriting any existing
	// object. It returns the key unchanged on success.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Download returns the full byte content addressed by key. Returns an
	// error satisfying IsNotFound if the key does not exist.
	Download(ctx context.Context, key string) ([]byte, error)

	// SignedURL returns a backend-appropriate access URL for the key: a
	// locally resolvable path for the filesystem backend, or a time-limited
	// pre-signed URL for the object-store backend.
	SignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// Delete removes the object at key. Idempotent: deleting an absent key
	// is not an error.
	Delete(ctx context.Context, key string) error

	// TestConnection performs a cheap write/read/delete probe and reports
	// whether the backend is usable. It returns false rather than an error
	// on failure; it is used for health and status reporting only.
	TestConnection(ctx context.Context) bool
}
