package internal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iqautojobs/jobboard-bff/internal/backend"
	"github.com/iqautojobs/jobboard-bff/internal/config"
	"github.com/iqautojobs/jobboard-bff/internal/cookie"
	"github.com/iqautojobs/jobboard-bff/internal/crypto"
	"github.com/iqautojobs/jobboard-bff/internal/log"
	"github.com/iqautojobs/jobboard-bff/internal/server"
)

const shutdownTimeout = 30 * time.Second

// JobBoard is the browser-facing gateway in front of the job board API.
type JobBoard struct {
	config     config.Config
	handler    http.Handler
	httpServer *server.HTTPServer
}

// NewJobBoard builds the application with all dependencies wired.
func NewJobBoard(cfg config.Config) (*JobBoard, error) {
	log.LogInfoWithFields("jobboard", "Building gateway", map[string]any{
		"backend":     cfg.BackendURL,
		"environment": cfg.Environment,
		"production":  cfg.IsProduction(),
	})

	mirrorKey, err := crypto.DeriveKey([]byte(cfg.SessionSecret), crypto.PurposeSessionMirror)
	if err != nil {
		return nil, fmt.Errorf("deriving session mirror key: %w", err)
	}

	client := backend.NewClient(backend.Config{
		BaseURL:         cfg.BackendURL,
		Timeout:         cfg.BackendTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	})

	handler := server.NewRouter(server.Dependencies{
		Backend:         client,
		Cookies:         cookie.NewStore(cfg.IsProduction(), mirrorKey),
		AllowedOrigins:  cfg.AllowedOrigins,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: cfg.LoginRateWindow,
	})

	return &JobBoard{
		config:     cfg,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Addr),
	}, nil
}

// Handler exposes the routed handler.
func (j *JobBoard) Handler() http.Handler {
	return j.handler
}

// Run serves until ctx is cancelled or the server fails, then shuts down
// gracefully.
func (j *JobBoard) Run(ctx context.Context) error {
	log.LogInfoWithFields("jobboard", "Starting gateway", map[string]any{
		"addr": j.config.Addr,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := j.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		log.LogInfoWithFields("jobboard", "Starting graceful shutdown", map[string]any{
			"reason":  context.Cause(gctx).Error(),
			"timeout": shutdownTimeout.String(),
		})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := j.httpServer.Stop(shutdownCtx); err != nil {
			log.LogErrorWithFields("jobboard", "HTTP server shutdown error", map[string]any{
				"error": err.Error(),
			})
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.LogInfoWithFields("jobboard", "Gateway shutdown complete", nil)
	return nil
}
