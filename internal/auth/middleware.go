// Package auth enforces bearer-token authentication and carries the
// authenticated user identity on the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/audiokeep/audiokeep/internal/errors"
	"github.com/audiokeep/audiokeep/internal/jsonutil"
	"github.com/audiokeep/audiokeep/internal/metadata"
)

type contextKey int

const userIDKey contextKey = iota

// skipPaths is the set of paths that do not require authentication.
var skipPaths = map[string]bool{
	"/health":       true,
	"/healthz":      true,
	"/metrics":      true,
	"/docs":         true,
	"/docs/":        true,
	"/openapi":      true,
	"/openapi.json": true,
}

// TokenResolver resolves a bearer token to its owner. *metadata.SQLiteStore
// satisfies it.
type TokenResolver interface {
	GetUserByToken(ctx context.Context, token string) (*metadata.TokenRecord, error)
}

// Middleware returns HTTP middleware that requires a valid bearer token on
// all requests except the unauthenticated operational paths (/health,
// /metrics, /docs, /openapi.json). On success the owning user's id is set on
// the request context.
func Middleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if skipPaths[path] || strings.HasPrefix(path, "/docs") {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				jsonutil.WriteError(w, apierrors.ErrUnauthorized)
				return
			}

			rec, err := resolver.GetUserByToken(r.Context(), token)
			if err != nil {
				jsonutil.WriteError(w, err)
				return
			}
			if rec == nil {
				jsonutil.WriteError(w, apierrors.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, rec.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns "" when absent or differently shaped.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserID returns the authenticated user id stored on the context, or "" when
// the request did not pass through Middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
