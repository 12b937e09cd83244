// Package metadata defines the interface and implementations for AudioKeep's
// record store, which tracks recordings, per-user settings, and API tokens.
package metadata

import (
	"context"
	"io"
	"time"
)

// DefaultSplitSegmentMinutes is the segment length used when a user has no
// stored split preference.
const DefaultSplitSegmentMinutes = 60

// Recording represents the persisted metadata for one stored audio recording,
// either ingested from a device or derived by splitting a parent recording.
type Recording struct {
	// ID is the opaque unique identifier.
	ID string `json:"id"`
	// UserID is the owning user.
	UserID string `json:"userId"`
	// DeviceSN is the serial number of the originating device.
	DeviceSN string `json:"deviceSn"`
	// SourceFileID is the identifier assigned by the external source.
	// Derived recordings carry a synthesized id based on the parent's.
	SourceFileID string `json:"sourceFileId"`
	// Filename is the display name.
	Filename string `json:"filename"`
	// DurationMS is the recording length in milliseconds.
	// EndTime - StartTime always equals DurationMS.
	DurationMS int64 `json:"duration"`
	// StartTime and EndTime bound the recording in absolute time (UTC).
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	// Filesize is the stored byte size.
	Filesize int64 `json:"filesize"`
	// ContentMD5 is the hex-encoded MD5 digest of the exact stored bytes.
	ContentMD5 string `json:"contentMd5"`
	// StorageType discriminates the storage backend ("local" or "s3").
	StorageType string `json:"storageType"`
	// StoragePath is the storage key, unique per user within a backend.
	StoragePath string `json:"storagePath"`
	// DownloadedAt is the ingestion timestamp.
	DownloadedAt time.Time `json:"downloadedAt"`
	// FormatVersion is opaque format/version metadata from the source.
	FormatVersion string `json:"formatVersion"`
	// Trashed marks a soft-deleted recording.
	Trashed bool `json:"isTrash"`
}

// UserSettings holds the per-user storage preferences this core consumes.
type UserSettings struct {
	UserID string
	// SplitSegmentMinutes is the configured segment length for splits.
	SplitSegmentMinutes int
}

// TokenRecord maps a bearer token to an owner identity.
type TokenRecord struct {
	Token     string
	UserID    string
	Active    bool
	CreatedAt time.Time
}

// RecordingStore defines the record store contract consumed by AudioKeep.
// Implementations must be safe for concurrent use. Lookups scoped by user
// return (nil, nil) when no matching row exists.
type RecordingStore interface {
	io.Closer

	// Ping checks connectivity to the record store.
	Ping(ctx context.Context) error

	// GetRecording retrieves one recording by owner and id.
	GetRecording(ctx context.Context, userID, id string) (*Recording, error)

	// ListRecordings returns all recordings owned by the user, newest
	// start time first.
	ListRecordings(ctx context.Context, userID string) ([]Recording, error)

	// InsertRecording inserts a new recording row and returns its id,
	// generating one when the record carries none.
	InsertRecording(ctx context.Context, rec *Recording) (string, error)

	// SetTrashed toggles the soft-delete marker on a recording.
	SetTrashed(ctx context.Context, userID, id string, trashed bool) error

	// DeleteRecording removes a recording row. Deleting an absent row is
	// not an error.
	DeleteRecording(ctx context.Context, userID, id string) error

	// SplitSegmentMinutes returns the user's configured split segment
	// length in minutes, or DefaultSplitSegmentMinutes when unset.
	SplitSegmentMinutes(ctx context.Context, userID string) (int, error)

	// PutUserSettings creates or replaces the user's settings row.
	PutUserSettings(ctx context.Context, settings *UserSettings) error

	// GetUserByToken resolves an active bearer token to its owner, or
	// (nil, nil) when the token is unknown or inactive.
	GetUserByToken(ctx context.Context, token string) (*TokenRecord, error)

	// PutToken creates or updates a token record.
	PutToken(ctx context.Context, rec *TokenRecord) error
}
