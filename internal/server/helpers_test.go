package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/iqautojobs/jobboard-bff/internal/backend"
	"github.com/iqautojobs/jobboard-bff/internal/cookie"
)

var testMirrorKey = []byte(strings.Repeat("m", 32))

// fakeBackend counts every request that reaches it.
type fakeBackend struct {
	calls  atomic.Int32
	server *httptest.Server
}

func newFakeBackend(t *testing.T, handler http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

type testEnv struct {
	backend *fakeBackend
	client  *backend.Client
	cookies *cookie.Store
	router  http.Handler
}

func newTestEnv(t *testing.T, handler http.HandlerFunc, opts ...func(*Dependencies)) *testEnv {
	t.Helper()
	fb := newFakeBackend(t, handler)
	client := backend.NewClient(backend.Config{
		BaseURL:         fb.server.URL,
		Timeout:         2 * time.Second,
		BreakerFailures: 100,
		BreakerTimeout:  time.Minute,
	})
	store := cookie.NewStore(false, testMirrorKey)

	deps := Dependencies{
		Backend:        client,
		Cookies:        store,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		backend: fb,
		client:  client,
		cookies: store,
		router:  NewRouter(deps),
	}
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Message
}

// signedMirror returns a mirror cookie value as the store would write it.
func signedMirror(t *testing.T, store *cookie.Store, firstName, role string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h := NewAuthHandlers(nil, store)
	h.RefreshMirror(rec, req, []byte(`{"first_name":"`+firstName+`","role":"`+role+`"}`))
	c, ok := responseCookies(rec)[cookie.MirrorCookie]
	require.True(t, ok, "mirror cookie not written")
	return c
}
