package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	jsonwriter "github.com/iqautojobs/jobboard-bff/internal/json"
	"github.com/iqautojobs/jobboard-bff/internal/log"
)

// HTTPServer manages the HTTP server lifecycle
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer creates a new HTTP server with the given handler and address
func NewHTTPServer(handler http.Handler, addr string) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// HealthHandler handles liveness checks
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for health checks
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = jsonwriter.Write(w, map[string]string{"status": "ok"})
}

// ReadinessChecker reports whether a dependency can take traffic.
type ReadinessChecker interface {
	Healthy() bool
}

// ReadinessHandler reports not-ready while the backend circuit is open.
// It never calls the backend itself.
type ReadinessHandler struct {
	backend ReadinessChecker
}

// NewReadinessHandler creates a readiness handler
func NewReadinessHandler(backend ReadinessChecker) *ReadinessHandler {
	return &ReadinessHandler{backend: backend}
}

func (h *ReadinessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.backend.Healthy() {
		_ = jsonwriter.WriteResponse(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unavailable",
			"backend": "circuit open",
		})
		return
	}
	_ = jsonwriter.Write(w, map[string]string{"status": "ready"})
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	log.LogInfoWithFields("http", "HTTP server starting", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	log.LogInfoWithFields("http", "HTTP server stopping", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.LogInfoWithFields("http", "HTTP server stopped", map[string]any{
		"addr": h.server.Addr,
	})
	return nil
}
