// Package errors defines the API error types used throughout AudioKeep.
package errors

import (
	"errors"
	"fmt"
)

// APIError represents an AudioKeep API error with a machine-readable code,
// human-readable message, and the HTTP status code to return.
type APIError struct {
	// Code is the error code (e.g., "NotFound", "TooShortToSplit").
	Code string
	// Message is a human-readable description of the error.
	Message string
	// HTTPStatus is the HTTP status code to return (e.g., 404, 409).
	HTTPStatus int
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("APIError %s (%d): %s", e.Code, e.HTTPStatus, e.Message)
}

// WithMessage returns a copy of the APIError with the message replaced.
// The code and status are preserved so callers can still match on them.
func (e *APIError) WithMessage(msg string) *APIError {
	cp := *e
	cp.Message = msg
	return &cp
}

// FromError extracts the APIError from err, unwrapping as needed. Any other
// error maps to ErrInternal.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}

// Pre-defined API errors for common conditions.
var (
	// ErrUnauthorized is returned when the caller presents no identity or an
	// unknown token.
	ErrUnauthorized = &APIError{
		Code:       "Unauthorized",
		Message:    "Missing or invalid credentials",
		HTTPStatus: 401,
	}

	// ErrNotFound is returned when the recording or storage key does not exist
	// for the calling owner.
	ErrNotFound = &APIError{
		Code:       "NotFound",
		Message:    "Recording not found",
		HTTPStatus: 404,
	}

	// ErrInvalidRange is returned when a byte range fails the bounds check.
	ErrInvalidRange = &APIError{
		Code:       "InvalidRange",
		Message:    "The requested range is not satisfiable",
		HTTPStatus: 416,
	}

	// ErrTooShortToSplit is returned when segmentation would produce one or
	// zero parts. This is a validation failure, not a system error.
	ErrTooShortToSplit = &APIError{
		Code:       "TooShortToSplit",
		Message:    "Recording is too short to split into multiple segments",
		HTTPStatus: 400,
	}

	// ErrConflict is returned when a split is already in progress for the
	// same recording.
	ErrConflict = &APIError{
		Code:       "Conflict",
		Message:    "A split is already in progress for this recording",
		HTTPStatus: 409,
	}

	// ErrToolFailure is returned when the external segmenter exits non-zero.
	ErrToolFailure = &APIError{
		Code:       "ToolFailure",
		Message:    "Audio segmentation failed",
		HTTPStatus: 500,
	}

	// ErrToolTimeout is returned when the external segmenter exceeds its
	// enforced time budget and is killed.
	ErrToolTimeout = &APIError{
		Code:       "ToolTimeout",
		Message:    "Audio segmentation timed out",
		HTTPStatus: 500,
	}

	// ErrStorageUnavailable is returned on storage backend I/O failure.
	ErrStorageUnavailable = &APIError{
		Code:       "StorageUnavailable",
		Message:    "Storage backend is unavailable",
		HTTPStatus: 500,
	}

	// ErrInternal is returned for unexpected internal failures.
	ErrInternal = &APIError{
		Code:       "InternalError",
		Message:    "We encountered an internal error. Please try again.",
		HTTPStatus: 500,
	}
)
