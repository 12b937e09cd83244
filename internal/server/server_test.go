package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/audiokeep/audiokeep/internal/config"
	"github.com/audiokeep/audiokeep/internal/metadata"
	"github.com/audiokeep/audiokeep/internal/metrics"
	"github.com/audiokeep/audiokeep/internal/storage"
)

func init() {
	// Register metrics once for the entire test binary so that tests
	// checking /metrics output see the expected collectors.
	metrics.Register()
}

type passSplitter struct{}

func (passSplitter) Split(ctx context.Context, inputPath, workDir, ext string, segmentSeconds int) error {
	for i := 0; i < 2; i++ {
		name := fmt.Sprintf("part_%03d%s", i, ext)
		if err := os.WriteFile(filepath.Join(workDir, name), []byte("seg"), 0o600); err != nil {
			return err
		}
	}
	return nil
}

// newTestServer creates a Server backed by a real SQLite store and local
// storage, with one seeded token.
func newTestServer(t *testing.T) (*Server, metadata.RecordingStore) {
	t.Helper()
	tmpDir := t.TempDir()

	store, err := metadata.NewSQLiteStore(filepath.Join(tmpDir, "metadata.db"))
	if err != nil {
		t.Fatalf("creating metadata store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	provider, err := storage.NewLocalProvider(filepath.Join(tmpDir, "audio"))
	if err != nil {
		t.Fatalf("creating storage provider: %v", err)
	}

	if err := store.PutToken(context.Background(), &metadata.TokenRecord{
		Token:     "srv-token",
		UserID:    "u1",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seeding token: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9011

	return New(cfg, store, provider, passSplitter{}), store
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Status  string `json:"status"`
		Storage string `json:"storage"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if body.Status != "ok" || body.Storage != "ok" {
		t.Errorf("unexpected health body: %+v", body)
	}
}

func TestHealthHead(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodHead, "/health", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	// Generate one instrumented request first.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "audiokeep_http_requests_total") {
		t.Error("expected audiokeep_http_requests_total in metrics output")
	}
}

func TestCommonHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Header().Get("Server") != "AudioKeep" {
		t.Errorf("unexpected Server header %q", rr.Header().Get("Server"))
	}
	if len(rr.Header().Get("X-Request-Id")) != 16 {
		t.Errorf("unexpected X-Request-Id %q", rr.Header().Get("X-Request-Id"))
	}
}

func TestRecordingRoutesRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/recordings"},
		{http.MethodGet, "/recordings/abc"},
		{http.MethodDelete, "/recordings/abc"},
		{http.MethodGet, "/recordings/abc/audio"},
		{http.MethodPost, "/recordings/abc/split"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, rr.Code)
		}
	}
}

func TestRecordingRoutesWithToken(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/recordings", nil)
	req.Header.Set("Authorization", "Bearer srv-token")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOpenAPIDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "AudioKeep API") {
		t.Error("expected API title in OpenAPI document")
	}
}
