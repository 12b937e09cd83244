package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LocalProvider implements the Provider interface using the local filesystem.
// Recordings are stored as files under a configurable root directory, with
// key path separators mapped onto subdirectories.
type LocalProvider struct {
	// RootDir is the base directory under which all audio data is stored.
	RootDir string
}

// NewLocalProvider creates a new LocalProvider rooted at the given directory.
// It creates the root directory and the temp directory if they do not exist.
func NewLocalProvider(rootDir string) (*LocalProvider, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root directory %q: %w", rootDir, err)
	}
	// Create the .tmp directory for atomic writes.
	tmpDir := filepath.Join(rootDir, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating temp directory %q: %w", tmpDir, err)
	}
	return &LocalProvider{RootDir: rootDir}, nil
}

// CleanTempFiles removes all files in the .tmp directory. This is called on
// startup; any temp files left behind indicate incomplete writes from a
// previous crash.
func (p *LocalProvider) CleanTempFiles() error {
	tmpDir := filepath.Join(p.RootDir, ".tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading temp directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			os.Remove(filepath.Join(tmpDir, entry.Name()))
		}
	}
	return nil
}

// objectPath returns the full filesystem path for a key.
func (p *LocalProvider) objectPath(key string) string {
	return filepath.Join(p.RootDir, filepath.FromSlash(key))
}

// tempPath returns a unique temporary file path in the .tmp directory.
func (p *LocalProvider) tempPath() string {
	return filepath.Join(p.RootDir, ".tmp", "tmp-"+uuid.NewString())
}

// Upload writes audio data to a file using the atomic write pattern:
// write to temp file, fsync, rename. The content type is not persisted;
// delivery derives it from the key's extension.
func (p *LocalProvider) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objPath := p.objectPath(key)

	// Ensure parent directories exist.
	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return "", fmt.Errorf("creating parent directories for %q: %w", key, err)
	}

	tmpPath := p.tempPath()
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing audio data: %w", err)
	}

	// Fsync before rename to guarantee durability.
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	// Atomic rename: temp -> final path.
	if err := os.Rename(tmpPath, objPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file to final path: %w", err)
	}

	return key, nil
}

// Download reads the full file content for a key.
func (p *LocalProvider) Download(ctx context.Context, key string) ([]byte, error) {
	objPath := p.objectPath(key)

	data, err := os.ReadFile(objPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("downloading %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("reading audio file %q: %w", key, err)
	}
	return data, nil
}

// SignedURL returns the absolute filesystem path for the key. Local files
// need no expiry; the expiresIn argument is ignored.
func (p *LocalProvider) SignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	abs, err := filepath.Abs(p.objectPath(key))
	if err != nil {
		return "", fmt.Errorf("resolving path for %q: %w", key, err)
	}
	return abs, nil
}

// Delete removes the file for a key from the local filesystem.
// Idempotent: deleting a non-existent file is not an error.
// Also cleans up empty parent directories up to the storage root.
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	objPath := p.objectPath(key)

	err := os.Remove(objPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing audio file %q: %w", key, err)
	}

	// Climb up removing now-empty directories, stopping at the root.
	dir := filepath.Dir(objPath)
	for dir != p.RootDir && dir != "." && dir != string(filepath.Separator) {
		if err := os.Remove(dir); err != nil {
			// Directory not empty or other error: stop climbing.
			break
		}
		dir = filepath.Dir(dir)
	}

	return nil
}

// TestConnection writes, reads back, and deletes a probe file under the root.
func (p *LocalProvider) TestConnection(ctx context.Context) bool {
	probeKey := ".probe-" + uuid.NewString()
	if _, err := p.Upload(ctx, probeKey, []byte("probe"), "text/plain"); err != nil {
		return false
	}
	data, err := p.Download(ctx, probeKey)
	if err != nil || string(data) != "probe" {
		p.Delete(ctx, probeKey)
		return false
	}
	return p.Delete(ctx, probeKey) == nil
}

// Ensure LocalProvider implements Provider at compile time.
var _ Provider = (*LocalProvider)(nil)
