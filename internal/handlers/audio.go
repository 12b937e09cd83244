package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/audiokeep/audiokeep/internal/auth"
	"github.com/audiokeep/audiokeep/internal/delivery"
	apierrors "github.com/audiokeep/audiokeep/internal/errors"
	"github.com/audiokeep/audiokeep/internal/jsonutil"
	"github.com/audiokeep/audiokeep/internal/metrics"
	"github.com/audiokeep/audiokeep/internal/storage"
)

// cacheControl is sent on every audio response. Stored audio is immutable:
// a recording's bytes never change under a given id.
const cacheControl = "public, max-age=31536000, immutable"

// GetAudio handles GET /recordings/{id}/audio and streams the stored bytes,
// honoring a single-range Range header for seek support.
func (h *RecordingHandler) GetAudio(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	rec, err := h.store.GetRecording(ctx, userID, id)
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	if rec == nil {
		jsonutil.WriteError(w, apierrors.ErrNotFound)
		return
	}

	data, err := h.provider.Download(ctx, rec.StoragePath)
	if err != nil {
		if storage.IsNotFound(err) {
			jsonutil.WriteError(w, apierrors.ErrNotFound)
		} else {
			jsonutil.WriteError(w, apierrors.ErrStorageUnavailable)
		}
		return
	}

	contentType := delivery.ContentTypeForKey(rec.StoragePath)
	outcome := delivery.EvaluateRange(r.Header.Get("Range"), int64(len(data)))

	switch outcome.Kind {
	case delivery.Unsatisfiable:
		metrics.RangeRequestsTotal.WithLabelValues("unsatisfiable").Inc()
		w.Header().Set("Content-Range", outcome.ContentRange())
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)

	case delivery.Partial:
		metrics.RangeRequestsTotal.WithLabelValues("partial").Inc()
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(outcome.Length(), 10))
		w.Header().Set("Content-Range", outcome.ContentRange())
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Cache-Control", cacheControl)
		w.WriteHeader(http.StatusPartialContent)
		w.Write(data[outcome.Start : outcome.End+1])

	default:
		metrics.RangeRequestsTotal.WithLabelValues("full").Inc()
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Cache-Control", cacheControl)
		w.Write(data)
	}
}
