// Package segmentation splits long recordings into fixed-length derived
// recordings. The Engine orchestrates the whole workflow: downloading the
// parent, invoking the splitter in a scratch directory, uploading each
// segment, and registering the derived metadata rows.
package segmentation

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	apierrors "github.com/audiokeep/audiokeep/internal/errors"
	"github.com/audiokeep/audiokeep/internal/metadata"
	"github.com/audiokeep/audiokeep/internal/storage"
)

// Result reports a completed split.
type Result struct {
	SegmentCount int      `json:"segmentCount"`
	RecordingIDs []string `json:"recordingIds"`
}

// Engine runs split operations against a record store and a storage provider.
// At most one split runs per recording at a time; overlapping requests for
// the same recording fail fast with ErrConflict.
type Engine struct {
	store    metadata.RecordingStore
	provider storage.Provider
	splitter Splitter

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewEngine constructs an Engine.
func NewEngine(store metadata.RecordingStore, provider storage.Provider, splitter Splitter) *Engine {
	return &Engine{
		store:    store,
		provider: provider,
		splitter: splitter,
		inFlight: make(map[string]struct{}),
	}
}

// Split cuts the recording into segments of the user's configured length and
// registers each segment as a new recording. The parent recording is left
// untouched. Already-uploaded segment bytes are not rolled back when a later
// step fails; the storage key scheme makes a retry overwrite them.
func (e *Engine) Split(ctx context.Context, userID, recordingID string) (*Result, error) {
	if !e.tryLock(recordingID) {
		return nil, apierrors.ErrConflict
	}
	defer e.unlock(recordingID)

	rec, err := e.store.GetRecording(ctx, userID, recordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apierrors.ErrNotFound
	}

	minutes, err := e.store.SplitSegmentMinutes(ctx, userID)
	if err != nil {
		return nil, err
	}
	segmentSeconds := minutes * 60

	workDir, err := os.MkdirTemp("", "audiokeep-split-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			slog.Warn("failed to remove split scratch dir", "dir", workDir, "error", err)
		}
	}()

	data, err := e.provider.Download(ctx, rec.StoragePath)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apierrors.ErrNotFound
		}
		return nil, err
	}

	ext, contentType := segmentFormat(rec.StoragePath)

	inputPath := filepath.Join(workDir, "input"+ext)
	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write split input: %w", err)
	}

	if err := e.splitter.Split(ctx, inputPath, workDir, ext, segmentSeconds); err != nil {
		return nil, err
	}

	segFiles, err := listSegmentFiles(workDir, ext)
	if err != nil {
		return nil, err
	}
	if len(segFiles) <= 1 {
		return nil, apierrors.ErrTooShortToSplit
	}

	keyBase := strings.TrimSuffix(rec.StoragePath, filepath.Ext(rec.StoragePath))
	nameBase := strings.TrimSuffix(rec.Filename, filepath.Ext(rec.Filename))
	segmentMS := int64(segmentSeconds) * 1000

	result := &Result{SegmentCount: len(segFiles)}
	for i, segFile := range segFiles {
		segData, err := os.ReadFile(filepath.Join(workDir, segFile))
		if err != nil {
			return nil, fmt.Errorf("read segment %s: %w", segFile, err)
		}
		partNum := i + 1

		key := fmt.Sprintf("%s_part%03d%s", keyBase, partNum, ext)
		if _, err := e.provider.Upload(ctx, key, segData, contentType); err != nil {
			return nil, err
		}

		digest := md5.Sum(segData)

		// Timestamps are nominal: stream copy lands cut points on frame
		// boundaries, so actual segment lengths can deviate slightly.
		segStartMS := int64(i) * segmentMS
		segEndMS := int64(i+1) * segmentMS
		if i == len(segFiles)-1 {
			segEndMS = rec.DurationMS
		}

		derived := &metadata.Recording{
			UserID:        userID,
			DeviceSN:      rec.DeviceSN,
			SourceFileID:  fmt.Sprintf("split-%s-part%03d", rec.SourceFileID, partNum),
			Filename:      fmt.Sprintf("%s (Part %d)", nameBase, partNum),
			DurationMS:    segEndMS - segStartMS,
			StartTime:     rec.StartTime.Add(time.Duration(segStartMS) * time.Millisecond),
			EndTime:       rec.StartTime.Add(time.Duration(segEndMS) * time.Millisecond),
			Filesize:      int64(len(segData)),
			ContentMD5:    hex.EncodeToString(digest[:]),
			StorageType:   rec.StorageType,
			StoragePath:   key,
			DownloadedAt:  time.Now().UTC(),
			FormatVersion: rec.FormatVersion,
		}
		id, err := e.store.InsertRecording(ctx, derived)
		if err != nil {
			return nil, err
		}
		result.RecordingIDs = append(result.RecordingIDs, id)
	}

	slog.Info("split recording",
		"user_id", userID,
		"recording_id", recordingID,
		"segments", result.SegmentCount,
		"segment_minutes", minutes)
	return result, nil
}

func (e *Engine) tryLock(recordingID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[recordingID]; busy {
		return false
	}
	e.inFlight[recordingID] = struct{}{}
	return true
}

func (e *Engine) unlock(recordingID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, recordingID)
}

// segmentFormat picks the container and MIME type for segment output. MP3
// sources stay MP3; everything else is treated as Opus-in-Ogg, the other
// format recordings arrive in.
func segmentFormat(storagePath string) (ext, contentType string) {
	if strings.HasSuffix(strings.ToLower(storagePath), ".mp3") {
		return ".mp3", "audio/mpeg"
	}
	return ".opus", "audio/ogg"
}

// listSegmentFiles returns the splitter's part files in lexical order, which
// matches stream order for the zero-padded part_%03d naming.
func listSegmentFiles(workDir, ext string) ([]string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("read scratch dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "part_") && strings.HasSuffix(name, ext) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}
