// Package metrics exposes the Prometheus registry of the catalog audit.
// Metrics are defined in their respective packages (client, pagination,
// audit, sink) to maintain modularity and avoid circular dependencies.
//
// This package provides the HTTP handler and a reference of all metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the audit.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server serves /metrics for the duration of a run.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background. Listen errors are logged.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("Metrics endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", s.srv.Addr).Msg("Metrics server failed")
		}
	}()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - catalog_audit_requests_total{endpoint, status} (Counter): Requests by endpoint (listing, detail) and HTTP status
//   - catalog_audit_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_audit_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, unexpected)
//
// Retry Metrics (pkg/client):
//   - catalog_audit_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_audit_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_audit_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Listing Metrics (pkg/pagination):
//   - catalog_audit_pages_fetched_total (Counter): Non-empty listing pages fetched
//   - catalog_audit_listing_skus_total (Counter): SKU identifiers read from the listing
//
// Audit Metrics (pkg/audit):
//   - catalog_audit_skus_processed_total{outcome} (Counter): SKUs by outcome (valid, invalid, failed)
//   - catalog_audit_batches_total (Counter): Completed batches
//   - catalog_audit_invalid_products (Gauge): Distinct invalid products in the last run
//
// Sink Metrics (pkg/sink):
//   - catalog_audit_sink_writes_total{sink} (Counter): Report writes by sink
//   - catalog_audit_sink_errors_total{sink} (Counter): Failed report writes by sink
//
// Example Prometheus Queries:
//
//   # Detail failure ratio
//   rate(catalog_audit_skus_processed_total{outcome="failed"}[5m]) /
//   rate(catalog_audit_skus_processed_total[5m])
//
//   # Throttling pressure
//   rate(catalog_audit_errors_total{class="rate_limit"}[5m])
//
//   # P95 detail latency
//   histogram_quantile(0.95, rate(catalog_audit_request_duration_seconds_bucket{endpoint="detail"}[5m]))
