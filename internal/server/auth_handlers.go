package server

import (
	"context"
	"errors"
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
	"github.com/iqautojobs/jobboard-bff/internal/redirect"
	"github.com/iqautojobs/jobboard-bff/internal/servicecontext"
	"github.com/iqautojobs/jobboard-bff/internal/session"
	"github.com/iqautojobs/jobboard-bff/internal/validation"
)

const (
	maxCredentialBody = 64 << 10
	logoutTimeout     = 5 * time.Second

	messageInvalidBody      = "Invalid request body"
	messageTryAgain         = "An error occurred. Please try again."
	messageNotAuthenticated = "Not authenticated"
)

// AuthHandlers serves the credential exchange endpoints.
type AuthHandlers struct {
	backend *backend.Client
	cookies *cookie.Store
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(client *backend.Client, cookies *cookie.Store) *AuthHandlers {
	return &AuthHandlers{backend: client, cookies: cookies}
}

type loginBody struct {
	backend.LoginRequest
	ReturnTo string `json:"return_to"`
}

type registerBody struct {
	backend.RegisterRequest
	ReturnTo string `json:"return_to"`
}

// AuthResponse is returned by login and register. It never carries tokens.
type AuthResponse struct {
	User       session.UserIdentity `json:"user"`
	RedirectTo string               `json:"redirect_to"`
}

// Login handles POST /api/auth/login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !decodeCredentials(w, r, "login", &body) {
		return
	}
	if !validateCredentials(w, "login", &body.LoginRequest) {
		return
	}

	result, err := h.backend.Login(r.Context(), body.LoginRequest)
	if err != nil {
		writeExchangeError(w, "login", err, "Login failed due to invalid server response.")
		return
	}
	h.completeExchange(w, r, "login", result, returnTo(r, body.ReturnTo))
}

// Register handles POST /api/auth/register
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if !decodeCredentials(w, r, "register", &body) {
		return
	}
	if !validateCredentials(w, "register", &body.RegisterRequest) {
		return
	}

	result, err := h.backend.Register(r.Context(), body.RegisterRequest)
	if err != nil {
		writeExchangeError(w, "register", err, "Registration failed due to invalid server response.")
		return
	}
	h.completeExchange(w, r, "register", result, returnTo(r, body.ReturnTo))
}

func (h *AuthHandlers) completeExchange(w http.ResponseWriter, r *http.Request, endpoint string, result *backend.AuthResult, target string) {
	if result.Token.AccessToken != "" {
		h.cookies.SetSession(w, result.Token)
	} else {
		log.LogWarnWithFields("auth", "Backend returned no tokens, session cookies not set", map[string]any{
			"endpoint": endpoint,
		})
	}
	if err := h.cookies.SetMirror(w, result.User.Summary()); err != nil {
		log.LogErrorWithFields("auth", "Failed to sign session mirror", map[string]any{
			"error": err.Error(),
		})
	}

	metrics.CredentialExchanges.WithLabelValues(endpoint, "success").Inc()
	log.LogInfoWithFields("auth", "Session created", map[string]any{
		"endpoint": endpoint,
		"role":     result.User.Role,
	})

	_ = jsonwriter.Write(w, AuthResponse{
		User:       result.User,
		RedirectTo: redirect.Resolve(target),
	})
}

// Logout handles POST /api/auth/logout. Cookies are cleared whatever the
// backend answers.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	access, accessErr := h.cookies.AccessToken(r)
	refresh, _ := h.cookies.RefreshToken(r)

	if accessErr == nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), logoutTimeout)
		defer cancel()
		if err := h.backend.Logout(ctx, &oauth2.Token{AccessToken: access, RefreshToken: refresh}); err != nil {
			log.LogWarnWithFields("auth", "Backend logout failed, clearing cookies anyway", map[string]any{
				"error": err.Error(),
			})
		}
	}

	h.cookies.ClearSession(w)
	_ = jsonwriter.Write(w, map[string]string{"message": "Logged out"})
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh, err := h.cookies.RefreshToken(r)
	if err != nil {
		h.cookies.ClearSession(w)
		metrics.CredentialExchanges.WithLabelValues("refresh", "rejected").Inc()
		jsonwriter.WriteUnauthorized(w, messageNotAuthenticated)
		return
	}

	token, err := h.backend.Refresh(r.Context(), refresh)
	if err != nil {
		var domainErr *backend.DomainError
		if errors.As(err, &domainErr) && (domainErr.Status == http.StatusUnauthorized || domainErr.Status == http.StatusForbidden) {
			h.cookies.ClearSession(w)
		}
		writeExchangeError(w, "refresh", err, "Session refresh failed due to invalid server response.")
		return
	}

	h.cookies.SetSession(w, token)
	metrics.CredentialExchanges.WithLabelValues("refresh", "success").Inc()
	_ = jsonwriter.Write(w, map[string]string{"message": "Session refreshed"})
}

// Session handles GET /api/session: the mirror summary, or 204 when there
// is none. It makes no backend call.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	summary, ok := servicecontext.GetSummary(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = jsonwriter.Write(w, summary)
}

// RefreshMirror rewrites the mirror from a backend user payload. Payloads
// without a first name and known role leave the mirror untouched.
func (h *AuthHandlers) RefreshMirror(w http.ResponseWriter, _ *http.Request, body []byte) {
	var user struct {
		FirstName string `json:"first_name"`
		Role      string `json:"role"`
	}
	if err := json.Unmarshal(body, &user); err != nil || user.FirstName == "" {
		return
	}
	role, err := session.ParseRole(user.Role)
	if err != nil {
		log.LogDebugWithFields("auth", "Not refreshing mirror", map[string]any{"error": err.Error()})
		return
	}
	if err := h.cookies.SetMirror(w, session.Summary{FirstName: user.FirstName, Role: role}); err != nil {
		log.LogErrorWithFields("auth", "Failed to sign session mirror", map[string]any{"error": err.Error()})
	}
}

// returnTo prefers the query parameter the login page was opened with.
func returnTo(r *http.Request, fromBody string) string {
	if q := r.URL.Query().Get("returnTo"); q != "" {
		return q
	}
	return fromBody
}

func decodeCredentials(w http.ResponseWriter, r *http.Request, endpoint string, dst any) bool {
	raw, err := ioutil.ReadBody(r.Body, maxCredentialBody)
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		metrics.CredentialExchanges.WithLabelValues(endpoint, "bad_request").Inc()
		jsonwriter.WriteBadRequest(w, messageInvalidBody)
		return false
	}
	return true
}

func validateCredentials(w http.ResponseWriter, endpoint string, req any) bool {
	if err := validation.Struct(req); err != nil {
		metrics.CredentialExchanges.WithLabelValues(endpoint, "bad_request").Inc()
		var verr *validation.Error
		if errors.As(err, &verr) {
			jsonwriter.WriteBadRequest(w, verr.Error())
		} else {
			jsonwriter.WriteBadRequest(w, messageInvalidBody)
		}
		return false
	}
	return true
}

// writeExchangeError maps a backend failure to the browser response. Only
// extracted or fixed messages are ever written.
func writeExchangeError(w http.ResponseWriter, endpoint string, err error, invalidMessage string) {
	var (
		domainErr *backend.DomainError
		transErr  *backend.TransportError
	)

	switch {
	case errors.As(err, &domainErr):
		metrics.CredentialExchanges.WithLabelValues(endpoint, "rejected").Inc()
		jsonwriter.WriteError(w, domainErr.Status, domainErr.Message)
	case errors.Is(err, backend.ErrInvalidServerResponse):
		metrics.CredentialExchanges.WithLabelValues(endpoint, "invalid_response").Inc()
		jsonwriter.WriteBadGateway(w, invalidMessage)
	case errors.As(err, &transErr):
		metrics.CredentialExchanges.WithLabelValues(endpoint, "transport_error").Inc()
		switch {
		case transErr.Timeout():
			jsonwriter.WriteGatewayTimeout(w, messageTryAgain)
		case transErr.Unavailable():
			jsonwriter.WriteServiceUnavailable(w, messageTryAgain)
		default:
			jsonwriter.WriteInternalServerError(w, messageTryAgain)
		}
	default:
		log.LogErrorWithFields("auth", "Credential exchange failed", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, messageTryAgain)
	}
}
