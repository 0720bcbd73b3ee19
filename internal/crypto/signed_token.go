package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTokenExpired     = errors.New("token expired")
)

// TokenSigner produces HMAC-signed JSON tokens with optional expiry.
// The payload is readable by anyone holding the token; only its integrity is protected.
type TokenSigner struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenSigner creates a new token signer
func NewTokenSigner(signingKey []byte, ttl time.Duration) TokenSigner {
	return TokenSigner{
		signingKey: signingKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// envelope wraps user data with metadata
type envelope struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt int64           `json:"exp,omitempty"`
}

// Sign marshals v and returns "<base64url(payload)>.<base64url(hmac)>".
func (ts *TokenSigner) Sign(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}

	env := envelope{Data: data}
	if ts.ttl > 0 {
		env.ExpiresAt = ts.now().Add(ts.ttl).Unix()
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token envelope: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + SignData(encoded, ts.signingKey), nil
}

// Verify validates the signature, checks expiry, and unmarshals the data into v.
func (ts *TokenSigner) Verify(token string, v any) error {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || signature == "" {
		return ErrMalformedToken
	}

	if !ValidateSignedData(encoded, signature, ts.signingKey) {
		return ErrInvalidSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if env.ExpiresAt != 0 && ts.now().Unix() > env.ExpiresAt {
		return ErrTokenExpired
	}

	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal token data: %w", err)
	}
	return nil
}

// SignData returns the base64url HMAC-SHA256 of data under key.
func SignData(data string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignedData compares signature against a fresh HMAC in constant time.
func ValidateSignedData(data, signature string, key []byte) bool {
	expected := SignData(data, key)
	return hmac.Equal([]byte(expected), []byte(signature))
}
