package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	"github.com/iqautojobs/jobboard-bff/internal/log"
	"github.com/iqautojobs/jobboard-bff/internal/metrics"
	"github.com/iqautojobs/jobboard-bff/internal/servicecontext"
)

// HeaderRequestID carries the correlation ID to the backend.
const HeaderRequestID = "X-Request-ID"

const breakerName = "backend"

// Config configures the backend client
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client performs at most one outbound call per method invocation. It
// never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient creates a backend client
func NewClient(cfg Config) *Client {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// Redirects from the backend are relayed, not followed
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			// Only transport failures count. Browser disconnects and
			// unreadable or oversized browser bodies are not the backend's fault.
			IsSuccessful: func(err error) bool {
				var maxBytes *http.MaxBytesError
				var bodyErr *RequestBodyError
				return err == nil ||
					errors.Is(err, context.Canceled) ||
					errors.As(err, &maxBytes) ||
					errors.As(err, &bodyErr)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.LogWarnWithFields("backend", "Circuit breaker state change", map[string]any{
					"from": from.String(),
					"to":   to.String(),
				})
				metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
				metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			},
		}),
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// BaseURL returns the backend origin without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Healthy reports whether the circuit breaker currently admits requests.
func (c *Client) Healthy() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// Request describes one outbound backend call.
type Request struct {
	// Operation names the call in logs and metrics
	Operation   string
	Method      string
	Path        string
	RawQuery    string
	Body        io.Reader
	ContentType string
	// Header holds extra headers forwarded from the browser request
	Header http.Header
	// Token, when set, is sent as the bearer credential
	Token *oauth2.Token
}

// Do sends req and returns the raw response. The caller owns the body.
// Any error is a *TransportError.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	target := c.baseURL + req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, req.Body)
	if err != nil {
		return nil, &TransportError{Op: req.Operation, Err: fmt.Errorf("building request: %w", err)}
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Token != nil && req.Token.AccessToken != "" {
		req.Token.SetAuthHeader(httpReq)
	}
	if id, ok := servicecontext.GetRequestID(ctx); ok {
		httpReq.Header.Set(HeaderRequestID, id)
	}

	var body *trackedBody
	if httpReq.Body != nil && httpReq.Body != http.NoBody {
		body = &trackedBody{ReadCloser: httpReq.Body}
		httpReq.Body = body
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.httpClient.Do(httpReq)
		if err != nil && body != nil {
			if berr := body.Err(); berr != nil {
				return nil, &RequestBodyError{Err: berr}
			}
		}
		return resp, err
	})
	if err != nil {
		terr := &TransportError{Op: req.Operation, Err: err}
		status := "error"
		switch {
		case terr.Unavailable():
			status = "rejected"
		case terr.Timeout():
			status = "timeout"
		case terr.BodyRejected():
			status = "body_error"
		}
		metrics.ObserveBackend(req.Operation, status, start)
		log.LogErrorWithFields("backend", "Backend request failed", map[string]any{
			"operation": req.Operation,
			"method":    req.Method,
			"path":      req.Path,
			"error":     err.Error(),
		})
		return nil, terr
	}

	metrics.ObserveBackend(req.Operation, metrics.StatusLabel(resp.StatusCode), start)
	log.LogDebugWithFields("backend", "Backend request completed", map[string]any{
		"operation":   req.Operation,
		"method":      req.Method,
		"path":        req.Path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// trackedBody remembers the first read error of the outgoing body so a
// failed call can be blamed on the browser rather than the backend.
type trackedBody struct {
	io.ReadCloser

	mu  sync.Mutex
	err error
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		b.mu.Lock()
		if b.err == nil {
			b.err = err
		}
		b.mu.Unlock()
	}
	return n, err
}

func (b *trackedBody) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// OAuthLoginURL is the backend endpoint that starts Google sign-in.
// returnTo is appended only when non-empty; callers validate it first.
func (c *Client) OAuthLoginURL(returnTo string) string {
	target := c.baseURL + "/api/oauth/google/login"
	if returnTo == "" {
		return target
	}
	return target + "?" + url.Values{"returnTo": {returnTo}}.Encode()
}
