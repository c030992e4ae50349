// Package metrics exposes Prometheus counters for protocol operations and a
// standalone metrics server listening on its own address.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmittedTotal counts portfolio submissions.
	SubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_submitted_total",
		Help: "Number of encrypted portfolio records submitted.",
	})

	// DecryptionRequestsTotal counts decryption requests by outcome.
	DecryptionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_decryption_requests_total",
		Help: "Number of decryption requests issued to the oracle, by outcome.",
	}, []string{"outcome"})

	// CallbacksTotal counts oracle callbacks by outcome.
	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_callbacks_total",
		Help: "Number of oracle callbacks processed, by outcome.",
	}, []string{"outcome"})
)

// Callback outcome label values.
const (
	OutcomeOK               = "ok"
	OutcomeNotFound         = "not_found"
	OutcomeAlreadyFinalized = "already_finalized"
	OutcomeUnknownRequest   = "unknown_request"
	OutcomeProofInvalid     = "proof_invalid"
	OutcomePayloadMalformed = "payload_malformed"
	OutcomeNotAuthorized    = "not_authorized"
	OutcomeError            = "error"
)

// MetricsServer serves the Prometheus scrape endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given service name listening on addr.
func New(name, addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

// ListenAndServe blocks serving the scrape endpoint.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
