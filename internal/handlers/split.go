package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/audiokeep/audiokeep/internal/auth"
	apierrors "github.com/audiokeep/audiokeep/internal/errors"
	"github.com/audiokeep/audiokeep/internal/jsonutil"
	"github.com/audiokeep/audiokeep/internal/metrics"
)

// SplitRecording handles POST /recordings/{id}/split and cuts the recording
// into fixed-length segments registered as new recordings.
func (h *RecordingHandler) SplitRecording(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	result, err := h.engine.Split(r.Context(), userID, id)
	if err != nil {
		metrics.SplitsTotal.WithLabelValues(splitStatus(err)).Inc()
		jsonutil.WriteError(w, err)
		return
	}

	metrics.SplitsTotal.WithLabelValues("success").Inc()
	metrics.SplitSegments.Observe(float64(result.SegmentCount))
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"segmentCount": result.SegmentCount,
		"recordingIds": result.RecordingIDs,
	})
}

// splitStatus maps a split failure to its metric label.
func splitStatus(err error) string {
	switch {
	case errors.Is(err, apierrors.ErrTooShortToSplit):
		return "too_short"
	case errors.Is(err, apierrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apierrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apierrors.ErrToolTimeout):
		return "timeout"
	case errors.Is(err, apierrors.ErrToolFailure):
		return "tool_failure"
	default:
		return "error"
	}
}
