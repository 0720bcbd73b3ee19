package server

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/iqautojobs/jobboard-bff/internal/backend"
	"github.com/iqautojobs/jobboard-bff/internal/cookie"
	"github.com/iqautojobs/jobboard-bff/internal/log"
	"github.com/iqautojobs/jobboard-bff/internal/metrics"
	"github.com/iqautojobs/jobboard-bff/internal/redirect"
)

// OAuthFailureURL is where a callback without tokens lands.
const OAuthFailureURL = "/auth/login?error=oauth_failed"

// OAuthHandlers serves the Google sign-in redirect pair. The backend runs
// the provider exchange; these handlers only bracket it.
type OAuthHandlers struct {
	backend *backend.Client
	cookies *cookie.Store
}

// NewOAuthHandlers creates OAuth handlers
func NewOAuthHandlers(client *backend.Client, cookies *cookie.Store) *OAuthHandlers {
	return &OAuthHandlers{backend: client, cookies: cookies}
}

// GoogleLogin handles GET /api/oauth/google/login. An invalid returnTo is
// dropped rather than forwarded.
func (h *OAuthHandlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("returnTo")
	if !redirect.IsValidRedirectURL(target) {
		if target != "" {
			log.LogWarnWithFields("oauth", "Dropping invalid returnTo", map[string]any{
				"return_to": target,
			})
		}
		target = ""
	}
	http.Redirect(w, r, h.backend.OAuthLoginURL(target), http.StatusFound)
}

// Callback handles GET /api/oauth/callback. Both tokens are required;
// returnTo is validated again because it round-tripped through the backend.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	access := q.Get("access_token")
	refresh := q.Get("refresh_token")

	if access == "" || refresh == "" {
		metrics.OAuthCallbacks.WithLabelValues("missing_token").Inc()
		log.LogWarnWithFields("oauth", "OAuth callback without tokens", map[string]any{
			"has_access":  access != "",
			"has_refresh": refresh != "",
		})
		http.Redirect(w, r, OAuthFailureURL, http.StatusFound)
		return
	}

	h.cookies.SetSession(w, &oauth2.Token{AccessToken: access, RefreshToken: refresh})
	// A mirror from an earlier account must not survive a new sign-in
	h.cookies.ClearMirror(w)

	metrics.OAuthCallbacks.WithLabelValues("success").Inc()
	http.Redirect(w, r, redirect.Resolve(q.Get("returnTo")), http.StatusFound)
}
