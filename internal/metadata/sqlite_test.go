package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecording(userID, storagePath string) *Recording {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &Recording{
		UserID:        userID,
		DeviceSN:      "SN-100",
		SourceFileID:  "src-1",
		Filename:      "Recording.mp3",
		DurationMS:    3_600_000,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Filesize:      42_000_000,
		ContentMD5:    "9e107d9d372bb6826bd81d3542a419d6",
		StorageType:   "local",
		StoragePath:   storagePath,
		DownloadedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		FormatVersion: "v2",
	}
}

func TestInsertAndGetRecording(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecording("u1", "u1/a.mp3")
	id, err := store.InsertRecording(ctx, rec)
	if err != nil {
		t.Fatalf("InsertRecording failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	got, err := store.GetRecording(ctx, "u1", id)
	if err != nil {
		t.Fatalf("GetRecording failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected recording, got nil")
	}
	if got.Filename != rec.Filename || got.StoragePath != rec.StoragePath ||
		got.DurationMS != rec.DurationMS || got.ContentMD5 != rec.ContentMD5 ||
		got.SourceFileID != rec.SourceFileID || got.FormatVersion != rec.FormatVersion {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if !got.StartTime.Equal(rec.StartTime) || !got.EndTime.Equal(rec.EndTime) {
		t.Errorf("timestamps not preserved: %v / %v", got.StartTime, got.EndTime)
	}
	if got.Trashed {
		t.Error("new recording must not be trashed")
	}
}

func TestGetRecordingAbsent(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRecording(context.Background(), "u1", "missing")
	if err != nil {
		t.Fatalf("GetRecording failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent id, got %+v", got)
	}
}

func TestGetRecordingScopedToUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertRecording(ctx, testRecording("u1", "u1/a.mp3"))
	if err != nil {
		t.Fatalf("InsertRecording failed: %v", err)
	}

	got, err := store.GetRecording(ctx, "u2", id)
	if err != nil {
		t.Fatalf("GetRecording failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil when looking up another user's recording")
	}
}

func TestInsertRecordingDuplicatePath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.InsertRecording(ctx, testRecording("u1", "u1/a.mp3")); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := store.InsertRecording(ctx, testRecording("u1", "u1/a.mp3")); err == nil {
		t.Error("expected error for duplicate (user, storage_path)")
	}
	// Same path for a different user is allowed.
	if _, err := store.InsertRecording(ctx, testRecording("u2", "u1/a.mp3")); err != nil {
		t.Errorf("same path for another user must insert: %v", err)
	}
}

func TestListRecordingsOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testRecording("u1", "u1/older.mp3")
	older.StartTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	older.EndTime = older.StartTime.Add(time.Hour)
	newer := testRecording("u1", "u1/newer.mp3")
	newer.StartTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	newer.EndTime = newer.StartTime.Add(time.Hour)

	if _, err := store.InsertRecording(ctx, older); err != nil {
		t.Fatalf("insert older failed: %v", err)
	}
	if _, err := store.InsertRecording(ctx, newer); err != nil {
		t.Fatalf("insert newer failed: %v", err)
	}
	if _, err := store.InsertRecording(ctx, testRecording("u2", "u2/other.mp3")); err != nil {
		t.Fatalf("insert other user failed: %v", err)
	}

	recs, err := store.ListRecordings(ctx, "u1")
	if err != nil {
		t.Fatalf("ListRecordings failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(recs))
	}
	if recs[0].StoragePath != "u1/newer.mp3" || recs[1].StoragePath != "u1/older.mp3" {
		t.Errorf("expected newest-first ordering, got %q then %q", recs[0].StoragePath, recs[1].StoragePath)
	}
}

func TestSetTrashed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertRecording(ctx, testRecording("u1", "u1/a.mp3"))
	if err != nil {
		t.Fatalf("InsertRecording failed: %v", err)
	}

	if err := store.SetTrashed(ctx, "u1", id, true); err != nil {
		t.Fatalf("SetTrashed failed: %v", err)
	}
	got, _ := store.GetRecording(ctx, "u1", id)
	if !got.Trashed {
		t.Error("expected recording to be trashed")
	}

	if err := store.SetTrashed(ctx, "u1", id, false); err != nil {
		t.Fatalf("SetTrashed(false) failed: %v", err)
	}
	got, _ = store.GetRecording(ctx, "u1", id)
	if got.Trashed {
		t.Error("expected recording to be restored")
	}

	if err := store.SetTrashed(ctx, "u1", "missing", true); err == nil {
		t.Error("expected error for absent recording")
	}
}

func TestDeleteRecording(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertRecording(ctx, testRecording("u1", "u1/a.mp3"))
	if err != nil {
		t.Fatalf("InsertRecording failed: %v", err)
	}
	if err := store.DeleteRecording(ctx, "u1", id); err != nil {
		t.Fatalf("DeleteRecording failed: %v", err)
	}
	got, _ := store.GetRecording(ctx, "u1", id)
	if got != nil {
		t.Error("expected recording to be gone")
	}

	// Idempotent.
	if err := store.DeleteRecording(ctx, "u1", id); err != nil {
		t.Errorf("deleting absent recording must succeed: %v", err)
	}
}

func TestSplitSegmentMinutes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	minutes, err := store.SplitSegmentMinutes(ctx, "u1")
	if err != nil {
		t.Fatalf("SplitSegmentMinutes failed: %v", err)
	}
	if minutes != DefaultSplitSegmentMinutes {
		t.Errorf("expected default %d, got %d", DefaultSplitSegmentMinutes, minutes)
	}

	if err := store.PutUserSettings(ctx, &UserSettings{UserID: "u1", SplitSegmentMinutes: 30}); err != nil {
		t.Fatalf("PutUserSettings failed: %v", err)
	}
	minutes, err = store.SplitSegmentMinutes(ctx, "u1")
	if err != nil {
		t.Fatalf("SplitSegmentMinutes failed: %v", err)
	}
	if minutes != 30 {
		t.Errorf("expected 30, got %d", minutes)
	}

	// A nonsense stored value falls back to the default.
	if err := store.PutUserSettings(ctx, &UserSettings{UserID: "u1", SplitSegmentMinutes: 0}); err != nil {
		t.Fatalf("PutUserSettings failed: %v", err)
	}
	minutes, err = store.SplitSegmentMinutes(ctx, "u1")
	if err != nil {
		t.Fatalf("SplitSegmentMinutes failed: %v", err)
	}
	if minutes != DefaultSplitSegmentMinutes {
		t.Errorf("expected default fallback, got %d", minutes)
	}
}

func TestTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutToken(ctx, &TokenRecord{
		Token:     "tok-1",
		UserID:    "u1",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("PutToken failed: %v", err)
	}

	rec, err := store.GetUserByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetUserByToken failed: %v", err)
	}
	if rec == nil || rec.UserID != "u1" {
		t.Fatalf("unexpected token record: %+v", rec)
	}

	// Unknown token resolves to nil, not an error.
	rec, err = store.GetUserByToken(ctx, "unknown")
	if err != nil {
		t.Fatalf("GetUserByToken failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for unknown token, got %+v", rec)
	}

	// Deactivated tokens resolve to nil.
	if err := store.PutToken(ctx, &TokenRecord{Token: "tok-1", UserID: "u1", Active: false, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("PutToken failed: %v", err)
	}
	rec, err = store.GetUserByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetUserByToken failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for inactive token, got %+v", rec)
	}
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
