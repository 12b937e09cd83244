// Package handlers implements HTTP request handlers for the AudioKeep API.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/audiokeep/audiokeep/internal/auth"
	apierrors "github.com/audiokeep/audiokeep/internal/errors"
	"github.com/audiokeep/audiokeep/internal/jsonutil"
	"github.com/audiokeep/audiokeep/internal/metadata"
	"github.com/audiokeep/audiokeep/internal/segmentation"
	"github.com/audiokeep/audiokeep/internal/storage"
)

// RecordingHandler contains handlers for recording-level operations.
type RecordingHandler struct {
	store    metadata.RecordingStore
	provider storage.Provider
	engine   *segmentation.Engine
}

// NewRecordingHandler creates a new RecordingHandler with the given dependencies.
func NewRecordingHandler(store metadata.RecordingStore, provider storage.Provider, engine *segmentation.Engine) *RecordingHandler {
	return &RecordingHandler{
		store:    store,
		provider: provider,
		engine:   engine,
	}
}

// ListRecordings handles GET /recordings and returns the caller's recordings,
// newest start time first.
func (h *RecordingHandler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	recs, err := h.store.ListRecordings(r.Context(), userID)
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	if recs == nil {
		recs = []metadata.Recording{}
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{"recordings": recs})
}

// GetRecording handles GET /recordings/{id} and returns one recording's
// metadata.
func (h *RecordingHandler) GetRecording(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	rec, err := h.store.GetRecording(r.Context(), userID, id)
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	if rec == nil {
		jsonutil.WriteError(w, apierrors.ErrNotFound)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{"recording": rec})
}

// DeleteRecording handles DELETE /recordings/{id}. By default the recording
// is soft-deleted (moved to trash). With ?permanent=true the stored audio is
// removed from the backend and the row is dropped.
func (h *RecordingHandler) DeleteRecording(w http.ResponseWriter, r *http.Request) {
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

	if r.URL.Query().Get("permanent") != "true" {
		if err := h.store.SetTrashed(ctx, userID, id, true); err != nil {
			jsonutil.WriteError(w, err)
			return
		}
		jsonutil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "trashed": true})
		return
	}

	// Storage delete is idempotent, so a retry after a partial failure
	// converges.
	if err := h.provider.Delete(ctx, rec.StoragePath); err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	if err := h.store.DeleteRecording(ctx, userID, id); err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	slog.Info("permanently deleted recording", "user_id", userID, "recording_id", id)
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "trashed": false})
}
