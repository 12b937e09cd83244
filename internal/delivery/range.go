// Package delivery computes HTTP range-read outcomes for stored audio.
// It is pure byte math over an object's size and an optional Range header;
// the HTTP handler layer writes the result. Nothing here mutates storage.
package delivery

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// OutcomeKind classifies how a request for stored bytes must be answered.
type OutcomeKind int

const (
	// Full returns the entire object with status 200. Also used when the
	// Range header is present but malformed: malformed ranges are ignored,
	// not rejected.
	Full OutcomeKind = iota
	// Partial returns the closed byte interval [Start, End] with status 206.
	Partial
	// Unsatisfiable rejects the request with status 416 and an empty body.
	Unsatisfiable
)

// Outcome describes the response to a ranged (or unranged) read of an object
// of Size bytes.
type Outcome struct {
	Kind OutcomeKind
	// Start and End bound the byte interval, inclusive. Only meaningful for
	// Partial.
	Start int64
	End   int64
	// Size is the full object size in bytes.
	Size int64
}

// Length returns the number of bytes the response body carries.
func (o Outcome) Length() int64 {
	switch o.Kind {
	case Full:
		return o.Size
	case Partial:
		return o.End - o.Start + 1
	default:
		return 0
	}
}

// ContentRange returns the Content-Range header value for the outcome:
// "bytes start-end/size" for Partial, "bytes */size" for Unsatisfiable,
// and "" for Full.
func (o Outcome) ContentRange() string {
	switch o.Kind {
	case Partial:
		return fmt.Sprintf("bytes %d-%d/%d", o.Start, o.End, o.Size)
	case Unsatisfiable:
		return fmt.Sprintf("bytes */%d", o.Size)
	default:
		return ""
	}
}

// EvaluateRange resolves a Range header against an object of the given size.
//
// Only the single-range form "bytes=<start>-<end>" is honored, where <end>
// may be omitted to mean end-of-object. An empty or malformed header yields
// Full. A parseable range failing the bounds check
// (0 <= start < size, 0 <= end < size, start <= end) yields Unsatisfiable;
// in particular any range against a zero-size object is unsatisfiable because
// no valid start position exists.
func EvaluateRange(rangeHeader string, size int64) Outcome {
	if rangeHeader == "" {
		return Outcome{Kind: Full, Size: size}
	}

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		// Malformed range headers fall back to full delivery.
		return Outcome{Kind: Full, Size: size}
	}

	if start < 0 || start >= size || end < 0 || end >= size || start > end {
		return Outcome{Kind: Unsatisfiable, Size: size}
	}

	return Outcome{Kind: Partial, Start: start, End: end, Size: size}
}

// parseRange extracts the start and end of a "bytes=<start>-<end?>" header.
// An omitted end resolves to size-1. Returns ok=false for anything that does
// not match the single-range shape.
func parseRange(rangeHeader string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(rangeHeader, "bytes=")
	if !found {
		return 0, 0, false
	}

	// Multi-range requests are not supported; treat as malformed.
	if strings.Contains(spec, ",") {
		return 0, 0, false
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil {
		return 0, 0, false
	}

	endStr = strings.TrimSpace(endStr)
	if endStr == "" {
		// Open-ended range: to end of object. For size 0 this resolves to
		// end = -1, which the bounds check rejects.
		return start, size - 1, true
	}

	end, err = strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// ContentTypeForKey maps a storage key's extension to the MIME type used for
// delivery. Unknown extensions default to audio/mpeg, matching the dominant
// recording format.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".opus":
		return "audio/opus"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	default:
		return "audio/mpeg"
	}
}
