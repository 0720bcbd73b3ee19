package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/iqautojobs/jobboard-bff/internal/backend"
	"github.com/iqautojobs/jobboard-bff/internal/cookie"
	jsonwriter "github.com/iqautojobs/jobboard-bff/internal/json"
	"github.com/iqautojobs/jobboard-bff/internal/metrics"
	"github.com/iqautojobs/jobboard-bff/internal/proxy"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Backend         *backend.Client
	Cookies         *cookie.Store
	AllowedOrigins  []string
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// NewRouter builds the complete browser-facing handler.
func NewRouter(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	authHandlers := NewAuthHandlers(deps.Backend, deps.Cookies)
	oauthHandlers := NewOAuthHandlers(deps.Backend, deps.Cookies)
	relay := proxy.NewRelay(deps.Backend, deps.Cookies)
	rateLimit := NewRateLimitMiddleware(deps.LoginRateLimit, deps.LoginRateWindow)

	mux.Handle("GET /healthz", NewHealthHandler())
	mux.Handle("GET /readiness", NewReadinessHandler(deps.Backend))
	mux.Handle("GET /metrics", metrics.Handler())

	// Credential exchange
	mux.Handle("POST /api/auth/login", ChainMiddleware(http.HandlerFunc(authHandlers.Login), rateLimit))
	mux.Handle("POST /api/auth/register", ChainMiddleware(http.HandlerFunc(authHandlers.Register), rateLimit))
	mux.HandleFunc("POST /api/auth/logout", authHandlers.Logout)
	mux.HandleFunc("POST /api/auth/refresh", authHandlers.Refresh)
	mux.HandleFunc("GET /api/session", authHandlers.Session)

	mux.HandleFunc("GET /api/oauth/google/login", oauthHandlers.GoogleLogin)
	mux.HandleFunc("GET /api/oauth/callback", oauthHandlers.Callback)

	// Authenticated resources
	mux.Handle("GET /api/auth/me", relay.Handler(proxy.Route{
		Name:           "auth_me",
		RequireAuth:    true,
		FailureMessage: "Failed to check authentication",
		OnSuccess:      authHandlers.RefreshMirror,
	}))
	mux.Handle("GET /api/users/me", relay.Handler(proxy.Route{
		Name:           "users_me",
		RequireAuth:    true,
		FailureMessage: "Failed to get user profile",
	}))
	mux.Handle("PATCH /api/users/me", relay.Handler(proxy.Route{
		Name:           "users_me_update",
		RequireAuth:    true,
		FailureMessage: "Failed to update user profile",
		OnSuccess:      authHandlers.RefreshMirror,
	}))
	mux.Handle("POST /api/applications", relay.Handler(proxy.Route{
		Name:                   "applications_submit",
		RequireAuth:            true,
		UnauthenticatedMessage: proxy.MessageAuthenticationRequired,
		FailureMessage:         "Failed to submit application",
		Target:                 fixedPath("/api/applications/"),
	}))
	mux.Handle("GET /api/applications", relay.Handler(proxy.Route{
		Name:                   "applications_list",
		RequireAuth:            true,
		UnauthenticatedMessage: proxy.MessageAuthenticationRequired,
		FailureMessage:         "Failed to fetch applications",
		Target:                 fixedPath("/api/applications/my-applications"),
	}))
	mux.Handle("POST /api/files/cv", relay.Handler(proxy.Route{
		Name:                   "files_cv",
		RequireAuth:            true,
		UnauthenticatedMessage: proxy.MessageAuthenticationRequired,
		FailureMessage:         "Failed to upload CV",
	}))

	// Public resources
	mux.Handle("GET /api/jobs/{id}", relay.Handler(proxy.Route{
		Name:           "job",
		FailureMessage: "Failed to fetch job",
		Target: func(r *http.Request) (string, string) {
			return "/api/jobs/" + url.PathEscape(r.PathValue("id")), ""
		},
	}))
	mux.Handle("GET /api/companies/{id}/jobs", relay.Handler(proxy.Route{
		Name:           "company_jobs",
		FailureMessage: "Failed to fetch company jobs",
		Target: func(r *http.Request) (string, string) {
			return "/api/companies/" + url.PathEscape(r.PathValue("id")) + "/jobs", r.URL.RawQuery
		},
	}))
	mux.Handle("GET /api/users", relay.Handler(proxy.Route{
		Name:           "public_users",
		FailureMessage: "Failed to fetch users",
		Target:         fixedPath("/api/public/users"),
		Transform:      proxy.WrapList("users"),
	}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		jsonwriter.WriteError(w, http.StatusNotFound, "Not found")
	})

	return ChainMiddleware(mux,
		NewSessionMirrorMiddleware(deps.Cookies),
		NewCORSMiddleware(deps.AllowedOrigins),
		NewLoggerMiddleware("http"),
		NewRequestIDMiddleware(),
		NewRecoverMiddleware("http"),
	)
}

// fixedPath targets path on the backend, keeping the inbound query.
func fixedPath(path string) func(*http.Request) (string, string) {
	return func(r *http.Request) (string, string) {
		return path, r.URL.RawQuery
	}
}
