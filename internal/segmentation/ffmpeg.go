package segmentation

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/audiokeep/audiokeep/internal/errors"
)

// Splitter cuts a local audio file into fixed-length segments inside workDir.
// Output files are named part_000<ext>, part_001<ext>, ... in stream order.
type Splitter interface {
	Split(ctx context.Context, inputPath, workDir, ext string, segmentSeconds int) error
}

// FFmpegSplitter shells out to ffmpeg in stream-copy mode, so segmentation is
// a remux, not a re-encode. Segment boundaries therefore land on the nearest
// keyframe/frame boundary at or after the requested time.
type FFmpegSplitter struct {
	// Binary is the ffmpeg executable path. Empty means "ffmpeg" on PATH.
	Binary string
	// Timeout bounds a single invocation. Zero or negative disables the bound.
	Timeout time.Duration
}

var _ Splitter = (*FFmpegSplitter)(nil)

// Split runs ffmpeg's segment muxer against inputPath, writing part files
// into workDir. A non-zero exit reports ErrToolFailure; hitting Timeout
// reports ErrToolTimeout.
func (s *FFmpegSplitter) Split(ctx context.Context, inputPath, workDir, ext string, segmentSeconds int) error {
	binary := strings.TrimSpace(s.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	args := []string{
		"-v", "error",
		"-i", inputPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-c", "copy",
		"-reset_timestamps", "1",
		"part_%03d" + ext,
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = workDir

	start := time.Now()
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Error("ffmpeg segmentation timed out",
				"binary", binary,
				"timeout", s.Timeout,
				"elapsed", time.Since(start))
			return apierrors.ErrToolTimeout
		}
		slog.Error("ffmpeg segmentation failed",
			"binary", binary,
			"error", err,
			"output", strings.TrimSpace(string(output)))
		return apierrors.ErrToolFailure
	}
	return nil
}
