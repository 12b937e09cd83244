package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

const (
	// timeFormat is the ISO 8601 format used for all timestamps in SQLite.
	// Millisecond precision matches the duration arithmetic elsewhere.
	timeFormat = "2006-01-02T15:04:05.000Z"
)

// SQLiteStore implements the RecordingStore interface using SQLite as the
// backing database. It provides durable, ACID-compliant metadata storage
// suitable for single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore with the given DSN and initializes
// the database schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing SQLite database: %w", err)
	}
	return s, nil
}

// initDB applies PRAGMAs and creates the required tables and indexes.
// This is safe to call multiple times (idempotent via IF NOT EXISTS).
func (s *SQLiteStore) initDB() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("executing %q: %w", p, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS recordings (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			device_sn      TEXT NOT NULL DEFAULT '',
			source_file_id TEXT,
			filename       TEXT NOT NULL,
			duration_ms    INTEGER NOT NULL,
			start_time     TEXT NOT NULL,
			end_time       TEXT NOT NULL,
			filesize       INTEGER NOT NULL,
			content_md5    TEXT NOT NULL,
			storage_type   TEXT NOT NULL,
			storage_path   TEXT NOT NULL,
			downloaded_at  TEXT NOT NULL,
			format_version TEXT NOT NULL DEFAULT '',
			is_trash       INTEGER NOT NULL DEFAULT 0,

			UNIQUE (user_id, storage_path)
		);

		CREATE INDEX IF NOT EXISTS idx_recordings_user ON recordings(user_id);
		CREATE INDEX IF NOT EXISTS idx_recordings_user_start ON recordings(user_id, start_time);

		CREATE TABLE IF NOT EXISTS user_settings (
			user_id               TEXT PRIMARY KEY,
			split_segment_minutes INTEGER NOT NULL DEFAULT 60
		);

		CREATE TABLE IF NOT EXISTS api_tokens (
			token      TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			active     INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (1, ?)`,
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting schema version: %w", err)
	}

	return nil
}

// Close closes the underlying SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks connectivity to the database.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- Recording operations ----

const recordingColumns = `id, user_id, device_sn, source_file_id, filename,
	duration_ms, start_time, end_time, filesize, content_md5,
	storage_type, storage_path, downloaded_at, format_version, is_trash`

// GetRecording retrieves one recording by owner and id. Returns (nil, nil)
// when no matching row exists for this owner.
func (s *SQLiteStore) GetRecording(ctx context.Context, userID, id string) (*Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE user_id = ? AND id = ?`,
		userID, id,
	)

	rec, err := scanRecordingRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting recording %q: %w", id, err)
	}
	return rec, nil
}

// ListRecordings returns all recordings owned by the user, newest start time
// first.
func (s *SQLiteStore) ListRecordings(ctx context.Context, userID string) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings
		 WHERE user_id = ?
		 ORDER BY start_time DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	defer rows.Close()

	var recordings []Recording
	for rows.Next() {
		rec, err := scanRecordingRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recording row: %w", err)
		}
		recordings = append(recordings, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recording rows: %w", err)
	}
	return recordings, nil
}

// InsertRecording inserts a new recording row and returns its id. An id is
// generated when the record carries none.
func (s *SQLiteStore) InsertRecording(ctx context.Context, rec *Recording) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	trashed := 0
	if rec.Trashed {
		trashed = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings
			(id, user_id, device_sn, source_file_id, filename, duration_ms,
			 start_time, end_time, filesize, content_md5, storage_type,
			 storage_path, downloaded_at, format_version, is_trash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		rec.UserID,
		rec.DeviceSN,
		nullString(rec.SourceFileID),
		rec.Filename,
		rec.DurationMS,
		rec.StartTime.UTC().Format(timeFormat),
		rec.EndTime.UTC().Format(timeFormat),
		rec.Filesize,
		rec.ContentMD5,
		rec.StorageType,
		rec.StoragePath,
		rec.DownloadedAt.UTC().Format(timeFormat),
		rec.FormatVersion,
		trashed,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("recording already exists at %q for user %q: %w", rec.StoragePath, rec.UserID, err)
		}
		return "", fmt.Errorf("inserting recording: %w", err)
	}
	return id, nil
}

// SetTrashed toggles the soft-delete marker on a recording.
func (s *SQLiteStore) SetTrashed(ctx context.Context, userID, id string, trashed bool) error {
	flag := 0
	if trashed {
		flag = 1
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET is_trash = ? WHERE user_id = ? AND id = ?`,
		flag, userID, id,
	)
	if err != nil {
		return fmt.Errorf("updating trash flag for %q: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("recording not found: %s", id)
	}
	return nil
}

// DeleteRecording removes a recording row. Deleting an absent row is not an
// error.
func (s *SQLiteStore) DeleteRecording(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM recordings WHERE user_id = ? AND id = ?`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("deleting recording %q: %w", id, err)
	}
	return nil
}

// ---- Settings operations ----

// SplitSegmentMinutes returns the user's configured split segment length in
// minutes, falling back to the default when no settings row exists.
func (s *SQLiteStore) SplitSegmentMinutes(ctx context.Context, userID string) (int, error) {
	var minutes int
	err := s.db.QueryRowContext(ctx,
		`SELECT split_segment_minutes FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(&minutes)
	if err == sql.ErrNoRows {
		return DefaultSplitSegmentMinutes, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting split settings for %q: %w", userID, err)
	}
	if minutes <= 0 {
		return DefaultSplitSegmentMinutes, nil
	}
	return minutes, nil
}

// PutUserSettings creates or replaces the user's settings row.
func (s *SQLiteStore) PutUserSettings(ctx context.Context, settings *UserSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO user_settings (user_id, split_segment_minutes)
		 VALUES (?, ?)`,
		settings.UserID, settings.SplitSegmentMinutes,
	)
	if err != nil {
		return fmt.Errorf("putting settings for %q: %w", settings.UserID, err)
	}
	return nil
}

// ---- Token operations ----

// GetUserByToken resolves an active bearer token to its owner. Returns
// (nil, nil) when the token is unknown or inactive.
func (s *SQLiteStore) GetUserByToken(ctx context.Context, token string) (*TokenRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, active, created_at
		 FROM api_tokens WHERE token = ?`,
		token,
	)

	var rec TokenRecord
	var active int
	var createdAtStr string
	err := row.Scan(&rec.Token, &rec.UserID, &active, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	rec.Active = active != 0
	rec.CreatedAt, _ = time.Parse(timeFormat, createdAtStr)
	if !rec.Active {
		return nil, nil
	}
	return &rec, nil
}

// PutToken creates or updates a token record.
func (s *SQLiteStore) PutToken(ctx context.Context, rec *TokenRecord) error {
	active := 0
	if rec.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO api_tokens (token, user_id, active, created_at)
		 VALUES (?, ?, ?, ?)`,
		rec.Token,
		rec.UserID,
		active,
		rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("putting token: %w", err)
	}
	return nil
}

// ---- Helper functions ----

// nullString converts a Go string to sql.NullString. Empty strings become NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// scanRecordingRow scans a recording row from a *sql.Row.
func scanRecordingRow(row *sql.Row) (*Recording, error) {
	var rec Recording
	var sourceFileID sql.NullString
	var startStr, endStr, downloadedStr string
	var trashed int

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.DeviceSN, &sourceFileID, &rec.Filename,
		&rec.DurationMS, &startStr, &endStr, &rec.Filesize, &rec.ContentMD5,
		&rec.StorageType, &rec.StoragePath, &downloadedStr, &rec.FormatVersion, &trashed,
	)
	if err != nil {
		return nil, err
	}

	rec.SourceFileID = sourceFileID.String
	rec.StartTime, _ = time.Parse(timeFormat, startStr)
	rec.EndTime, _ = time.Parse(timeFormat, endStr)
	rec.DownloadedAt, _ = time.Parse(timeFormat, downloadedStr)
	rec.Trashed = trashed != 0

	return &rec, nil
}

// scanRecordingRows scans a recording row from *sql.Rows.
func scanRecordingRows(rows *sql.Rows) (*Recording, error) {
	var rec Recording
	var sourceFileID sql.NullString
	var startStr, endStr, downloadedStr string
	var trashed int

	err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.DeviceSN, &sourceFileID, &rec.Filename,
		&rec.DurationMS, &startStr, &endStr, &rec.Filesize, &rec.ContentMD5,
		&rec.StorageType, &rec.StoragePath, &downloadedStr, &rec.FormatVersion, &trashed,
	)
	if err != nil {
		return nil, err
	}

	rec.SourceFileID = sourceFileID.String
	rec.StartTime, _ = time.Parse(timeFormat, startStr)
	rec.EndTime, _ = time.Parse(timeFormat, endStr)
	rec.DownloadedAt, _ = time.Parse(timeFormat, downloadedStr)
	rec.Trashed = trashed != 0

	return &rec, nil
}

// Ensure SQLiteStore implements RecordingStore at compile time.
var _ RecordingStore = (*SQLiteStore)(nil)
