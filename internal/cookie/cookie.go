package cookie

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/iqautojobs/jobboard-bff/internal/crypto"
	"github.com/iqautojobs/jobboard-bff/internal/log"
	"github.com/iqautojobs/jobboard-bff/internal/session"
)

// Cookie names shared with the backend and the browser.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	MirrorCookie       = "session_summary"
)

const (
	AccessTokenMaxAge  = 15 * time.Minute
	RefreshTokenMaxAge = 7 * 24 * time.Hour
)

var ErrNoSession = errors.New("no session cookie")

// Store owns the session cookies. Tokens only ever leave the process in
// httpOnly cookies; the mirror cookie is readable by scripts and carries a
// session.Summary only.
type Store struct {
	secure bool
	mirror crypto.TokenSigner
}

// NewStore creates a cookie store. mirrorKey signs the session mirror.
func NewStore(secure bool, mirrorKey []byte) *Store {
	return &Store{
		secure: secure,
		mirror: crypto.NewTokenSigner(mirrorKey, RefreshTokenMaxAge),
	}
}

func (s *Store) set(w http.ResponseWriter, name, value string, maxAge time.Duration, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// Clear expires a cookie immediately with MaxAge -1 and an epoch Expires.
// Attributes match the ones it was set with so browsers replace it.
func (s *Store) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: name != MirrorCookie,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// SetSession writes both token cookies. A token without a refresh token
// only updates the access cookie.
func (s *Store) SetSession(w http.ResponseWriter, token *oauth2.Token) {
	s.set(w, AccessTokenCookie, token.AccessToken, AccessTokenMaxAge, true)
	if token.RefreshToken != "" {
		s.set(w, RefreshTokenCookie, token.RefreshToken, RefreshTokenMaxAge, true)
	}

	log.LogTraceWithFields("cookie", "Session cookies set", map[string]any{
		"refresh": token.RefreshToken != "",
		"secure":  s.secure,
	})
}

// ClearSession removes both token cookies and the mirror.
func (s *Store) ClearSession(w http.ResponseWriter) {
	s.Clear(w, AccessTokenCookie)
	s.Clear(w, RefreshTokenCookie)
	s.Clear(w, MirrorCookie)
	log.LogTraceWithFields("cookie", "Session cookies cleared", nil)
}

// Get retrieves a non-empty cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", ErrNoSession
	}
	if c.Value == "" {
		return "", ErrNoSession
	}
	return c.Value, nil
}

// AccessToken returns the access token cookie value.
func (s *Store) AccessToken(r *http.Request) (string, error) {
	return Get(r, AccessTokenCookie)
}

// RefreshToken returns the refresh token cookie value.
func (s *Store) RefreshToken(r *http.Request) (string, error) {
	return Get(r, RefreshTokenCookie)
}

// SetMirror writes the signed, script-readable session summary.
func (s *Store) SetMirror(w http.ResponseWriter, summary session.Summary) error {
	value, err := s.mirror.Sign(summary)
	if err != nil {
		return err
	}
	s.set(w, MirrorCookie, value, RefreshTokenMaxAge, false)
	return nil
}

// ClearMirror removes the session summary cookie.
func (s *Store) ClearMirror(w http.ResponseWriter) {
	s.Clear(w, MirrorCookie)
}

// Mirror reads and verifies the session summary cookie. Tampered, expired
// or incomplete summaries are reported as absent.
func (s *Store) Mirror(r *http.Request) (session.Summary, bool) {
	value, err := Get(r, MirrorCookie)
	if err != nil {
		return session.Summary{}, false
	}

	var summary session.Summary
	if err := s.mirror.Verify(value, &summary); err != nil {
		log.LogDebugWithFields("cookie", "Ignoring invalid session mirror", map[string]any{
			"error": err.Error(),
		})
		return session.Summary{}, false
	}
	if !summary.Valid() {
		return session.Summary{}, false
	}
	return summary, true
}
