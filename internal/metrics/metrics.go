// Package metrics defines custom Prometheus metrics for AudioKeep.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce ensures Register() is idempotent.
var registerOnce sync.Once

// sizeBuckets are exponential buckets for response size histograms (bytes).
var sizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 67108864}

// HTTP metrics (RED: Rate, Errors, Duration).
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiokeep_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency in seconds by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audiokeep_http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize observes response body size in bytes.
	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audiokeep_http_response_size_bytes",
			Help:    "Response body size in bytes",
			Buckets: sizeBuckets,
		},
		[]string{"method", "path"},
	)

	// BytesSentTotal counts total bytes sent in response bodies.
	BytesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audiokeep_bytes_sent_total",
			Help: "Total bytes sent (response bodies)",
		},
	)
)

// Domain metrics.
var (
	// RangeRequestsTotal counts audio delivery requests by outcome kind.
	RangeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiokeep_range_requests_total",
			Help: "Audio delivery requests by range outcome",
		},
		[]string{"kind"},
	)

	// SplitsTotal counts split operations by terminal status.
	SplitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiokeep_splits_total",
			Help: "Split operations by status",
		},
		[]string{"status"},
	)

	// SplitSegments observes how many segments each successful split produced.
	SplitSegments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audiokeep_split_segments",
			Help:    "Segments produced per successful split",
			Buckets: []float64{2, 3, 4, 6, 8, 12, 16, 24, 32},
		},
	)

	// StorageOperationsTotal counts storage backend operations by name and status.
	StorageOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiokeep_storage_operations_total",
			Help: "Storage backend operations by type",
		},
		[]string{"operation", "status"},
	)
)

// Register registers all Prometheus collectors with the default registry.
// This must be called explicitly (typically from main) so that metrics
// registration can be made conditional on configuration. It is safe to call
// multiple times; subsequent calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPResponseSize,
			BytesSentTotal,
			RangeRequestsTotal,
			SplitsTotal,
			SplitSegments,
			StorageOperationsTotal,
		)
		// Initialize labeled counters so they appear in /metrics output
		// before the first request.
		RangeRequestsTotal.WithLabelValues("full")
		RangeRequestsTotal.WithLabelValues("partial")
		RangeRequestsTotal.WithLabelValues("unsatisfiable")
		SplitsTotal.WithLabelValues("success")
	})
}

// NormalizePath maps actual request paths to normalized path templates
// suitable for use as Prometheus metric labels. This avoids high-cardinality
// labels from individual recording ids.
func NormalizePath(path string) string {
	switch path {
	case "/health":
		return "/health"
	case "/docs", "/docs/":
		return "/docs"
	case "/metrics":
		return "/metrics"
	case "/openapi.json":
		return "/openapi.json"
	case "/", "":
		return "/"
	}

	// Starts with /docs (Stoplight Elements assets).
	if strings.HasPrefix(path, "/docs") {
		return "/docs"
	}

	trimmed := strings.TrimPrefix(path, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	parts := strings.Split(trimmed, "/")
	if parts[0] != "recordings" {
		return "/" + parts[0]
	}
	switch len(parts) {
	case 1:
		return "/recordings"
	case 2:
		return "/recordings/{id}"
	default:
		return "/recordings/{id}/" + strings.Join(parts[2:], "/")
	}
}
