// Package server implements the AudioKeep HTTP server and route multiplexer.
package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/audiokeep/audiokeep/internal/auth"
	"github.com/audiokeep/audiokeep/internal/config"
	"github.com/audiokeep/audiokeep/internal/handlers"
	"github.com/audiokeep/audiokeep/internal/metadata"
	"github.com/audiokeep/audiokeep/internal/segmentation"
	"github.com/audiokeep/audiokeep/internal/storage"
)

// Server is the AudioKeep HTTP server. It routes recording API requests to
// their handlers and serves the operational endpoints (/health, /metrics,
// /docs).
type Server struct {
	cfg        *config.Config
	router     chi.Router
	api        huma.API
	store      metadata.RecordingStore
	provider   storage.Provider
	recordings *handlers.RecordingHandler
	httpServer *http.Server
}

// HealthBody is the JSON body returned by the health check endpoint.
type HealthBody struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Storage string `json:"storage" example:"ok" doc:"Storage backend reachability"`
}

// HealthOutput is the Huma output struct for the health check endpoint.
type HealthOutput struct {
	Body HealthBody
}

// New creates a Server and wires all routes on the Chi router with Huma API.
func New(cfg *config.Config, store metadata.RecordingStore, provider storage.Provider, splitter segmentation.Splitter) *Server {
	router := chi.NewMux()

	humaConfig := huma.DefaultConfig("AudioKeep API", "1.0.0")
	humaConfig.DocsPath = "/docs"
	humaConfig.OpenAPIPath = "/openapi"
	api := humachi.New(router, humaConfig)

	engine := segmentation.NewEngine(store, provider, splitter)

	s := &Server{
		cfg:        cfg,
		router:     router,
		api:        api,
		store:      store,
		provider:   provider,
		recordings: handlers.NewRecordingHandler(store, provider, engine),
	}
	s.registerRoutes()
	return s
}

// ListenAndServe starts the HTTP server on the given address.
// Middleware chain: metricsMiddleware -> commonHeaders -> authMiddleware -> router.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the fully wrapped handler chain without binding a
// listener. Used by tests.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = auth.Middleware(s.store)(handler)
	handler = commonHeaders(handler)
	handler = metricsMiddleware(handler)
	return handler
}

// registerRoutes configures all routes on the Chi router. Huma routes
// (/health, /docs, /openapi.json) and /metrics are registered alongside the
// recording API.
func (s *Server) registerRoutes() {
	// Register /health via Huma for auto-OpenAPI documentation.
	huma.Register(s.api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the AudioKeep server and its storage backend.",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		storageStatus := "ok"
		if !s.provider.TestConnection(ctx) {
			storageStatus = "unavailable"
		}
		return &HealthOutput{Body: HealthBody{Status: "ok", Storage: storageStatus}}, nil
	})

	// Register HEAD /health separately (Huma only does one method per registration).
	s.router.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	})

	// Register /metrics via promhttp.Handler().
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/recordings", func(r chi.Router) {
		r.Get("/", s.recordings.ListRecordings)
		r.Get("/{id}", s.recordings.GetRecording)
		r.Delete("/{id}", s.recordings.DeleteRecording)
		r.Get("/{id}/audio", s.recordings.GetAudio)
		r.Post("/{id}/split", s.recordings.SplitRecording)
	})
}
