// Package proxy relays browser resource requests to the backend. Authenticated
// routes swap the httpOnly access cookie for a bearer header; the relay never
// makes authorization decisions of its own.
package proxy

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/iqautojobs/jobboard-bff/internal/backend"
	"github.com/iqautojobs/jobboard-bff/internal/cookie"
	"github.com/iqautojobs/jobboard-bff/internal/ioutil"
	jsonwriter "github.com/iqautojobs/jobboard-bff/internal/json"
	"github.com/iqautojobs/jobboard-bff/internal/log"
	"github.com/iqautojobs/jobboard-bff/internal/metrics"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 10 << 20
	maxResponseBody  = 10 << 20
)

// Unauthenticated messages used by the browser-facing routes.
const (
	MessageNotAuthenticated       = "Not authenticated"
	MessageAuthenticationRequired = "Authentication required"
)

// MessageBodyTooLarge answers uploads over the relay's size limits.
const MessageBodyTooLarge = "Request body too large"

var errInvalidJSON = errors.New("body is not valid JSON")

// Route describes one relayed endpoint.
type Route struct {
	// Name labels logs and metrics
	Name string
	// RequireAuth rejects requests without an access cookie before any
	// backend call is made
	RequireAuth            bool
	UnauthenticatedMessage string
	// FailureMessage is the only text returned when the backend cannot be
	// reached or answers with something that is not JSON
	FailureMessage string
	// Target maps the inbound request to a backend path and raw query
	Target func(r *http.Request) (path, rawQuery string)
	// Transform rewrites a 2xx body before relaying it
	Transform func(body []byte) ([]byte, error)
	// OnSuccess observes a 2xx body before it is relayed
	OnSuccess func(w http.ResponseWriter, r *http.Request, body []byte)
}

// Relay builds route handlers sharing one backend client and cookie store.
type Relay struct {
	backend *backend.Client
	cookies *cookie.Store
}

// NewRelay creates a relay
func NewRelay(client *backend.Client, cookies *cookie.Store) *Relay {
	return &Relay{backend: client, cookies: cookies}
}

// Same forwards to the same path and query on the backend.
func Same(r *http.Request) (string, string) {
	return r.URL.Path, r.URL.RawQuery
}

// Handler returns the http.Handler for route.
func (rl *Relay) Handler(route Route) http.Handler {
	if route.Target == nil {
		route.Target = Same
	}
	if route.UnauthenticatedMessage == "" {
		route.UnauthenticatedMessage = MessageNotAuthenticated
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := rl.serve(w, r, route)

		metrics.ProxyRequests.WithLabelValues(route.Name, metrics.StatusLabel(status)).Inc()
		log.LogInfoWithFields("proxy", "Request relayed", map[string]any{
			"route":       route.Name,
			"method":      r.Method,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (rl *Relay) serve(w http.ResponseWriter, r *http.Request, route Route) int {
	var token *oauth2.Token
	if route.RequireAuth {
		access, err := rl.cookies.AccessToken(r)
		if err != nil {
			jsonwriter.WriteUnauthorized(w, route.UnauthenticatedMessage)
			return http.StatusUnauthorized
		}
		token = &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	}

	body, contentType, err := requestBody(w, r)
	if err != nil {
		log.LogWarnWithFields("proxy", "Rejected request body", map[string]any{
			"route": route.Name,
			"error": err.Error(),
		})
		if errors.Is(err, ioutil.ErrBodyTooLarge) {
			jsonwriter.WriteRequestEntityTooLarge(w, MessageBodyTooLarge)
			return http.StatusRequestEntityTooLarge
		}
		jsonwriter.WriteInternalServerError(w, route.FailureMessage)
		return http.StatusInternalServerError
	}

	path, rawQuery := route.Target(r)
	header := http.Header{}
	copyRequestHeaders(header, r.Header)

	resp, err := rl.backend.Do(r.Context(), backend.Request{
		Operation:   route.Name,
		Method:      r.Method,
		Path:        path,
		RawQuery:    rawQuery,
		Body:        body,
		ContentType: contentType,
		Header:      header,
		Token:       token,
	})
	if err != nil {
		return writeTransportError(w, err, route.FailureMessage)
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadBody(resp.Body, maxResponseBody)
	if err != nil {
		log.LogErrorWithFields("proxy", "Failed to read backend response", map[string]any{
			"route": route.Name,
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, route.FailureMessage)
		return http.StatusInternalServerError
	}

	if resp.StatusCode == http.StatusNoContent && len(raw) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return http.StatusNoContent
	}
	if !json.Valid(raw) {
		log.LogErrorWithFields("proxy", "Backend response is not JSON", map[string]any{
			"route":  route.Name,
			"status": resp.StatusCode,
			"body":   ioutil.ReadLimited(bytes.NewReader(raw), 256),
		})
		jsonwriter.WriteInternalServerError(w, route.FailureMessage)
		return http.StatusInternalServerError
	}

	if route.RequireAuth && resp.StatusCode == http.StatusUnauthorized {
		rl.cookies.ClearMirror(w)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if route.Transform != nil {
			if raw, err = route.Transform(raw); err != nil {
				log.LogErrorWithFields("proxy", "Failed to transform backend response", map[string]any{
					"route": route.Name,
					"error": err.Error(),
				})
				jsonwriter.WriteInternalServerError(w, route.FailureMessage)
				return http.StatusInternalServerError
			}
		}
		if route.OnSuccess != nil {
			route.OnSuccess(w, r, raw)
		}
	}

	jsonwriter.WriteRaw(w, resp.StatusCode, raw)
	return resp.StatusCode
}

// requestBody returns the body to forward. JSON bodies are checked and
// buffered; multipart bodies stream through with their boundary intact.
func requestBody(w http.ResponseWriter, r *http.Request) (io.Reader, string, error) {
	if r.Body == nil || r.Body == http.NoBody || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return nil, "", nil
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "multipart/form-data" {
		return http.MaxBytesReader(w, r.Body, maxMultipartBody), contentType, nil
	}

	raw, err := ioutil.ReadBody(r.Body, maxJSONBody)
	if err != nil {
		return nil, "", err
	}
	if len(raw) == 0 {
		return nil, "", nil
	}
	if !json.Valid(raw) {
		return nil, "", errInvalidJSON
	}
	return bytes.NewReader(raw), "application/json", nil
}

func writeTransportError(w http.ResponseWriter, err error, message string) int {
	var terr *backend.TransportError
	if errors.As(err, &terr) {
		switch {
		case terr.TooLarge():
			jsonwriter.WriteRequestEntityTooLarge(w, MessageBodyTooLarge)
			return http.StatusRequestEntityTooLarge
		case terr.Timeout():
			jsonwriter.WriteGatewayTimeout(w, message)
			return http.StatusGatewayTimeout
		case terr.Unavailable():
			jsonwriter.WriteServiceUnavailable(w, message)
			return http.StatusServiceUnavailable
		}
	}
	jsonwriter.WriteInternalServerError(w, message)
	return http.StatusInternalServerError
}
