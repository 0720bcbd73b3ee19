// Package metrics holds the Prometheus collectors for the auth boundary.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CredentialExchanges counts login, register and refresh outcomes.
	CredentialExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_credential_exchanges_total",
			Help: "Credential exchanges by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: success, rejected, invalid_response, transport_error, bad_request
	)

	OAuthCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_oauth_callbacks_total",
			Help: "OAuth callbacks by outcome",
		},
		[]string{"outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bff_backend_request_duration_seconds",
			Help:    "Duration of outbound backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// ProxyRequests counts relayed resource requests by route and status
	// returned to the browser.
	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_proxy_requests_total",
			Help: "Relayed resource requests by route and status",
		},
		[]string{"route", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bff_circuit_breaker_state",
			Help: "Backend circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_circuit_breaker_transitions_total",
			Help: "Backend circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// ObserveBackend records one outbound call. status is the HTTP status, or a
// short error class when no response was received.
func ObserveBackend(operation, status string, start time.Time) {
	BackendRequestDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// StatusLabel formats an HTTP status code as a label value.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
