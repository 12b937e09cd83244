// Package jsonutil encodes API responses. Every non-body response the API
// produces, success or error, goes through these helpers so the JSON shape
// stays uniform.
package jsonutil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/audiokeep/audiokeep/internal/errors"
)

// errorBody is the wire shape of an error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes err as a JSON error response. Unrecognized errors are
// masked as a generic internal error so storage and database details never
// reach clients.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := apierrors.FromError(err)
	if apiErr.HTTPStatus >= 500 {
		slog.Error("request failed", "code", apiErr.Code, "error", err)
	}
	WriteJSON(w, apiErr.HTTPStatus, errorBody{Error: apiErr.Message, Code: apiErr.Code})
}
