package crypto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	FirstName string `json:"first_name"`
	Role      string `json:"role"`
}

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte(strings.Repeat("k", 32)), time.Hour)

	token, err := signer.Sign(payload{FirstName: "Test", Role: "CANDIDATE"})
	require.NoError(t, err)

	var got payload
	require.NoError(t, signer.Verify(token, &got))
	assert.Equal(t, payload{FirstName: "Test", Role: "CANDIDATE"}, got)
}

func TestTokenSigner_Rejects(t *testing.T) {
	signer := NewTokenSigner([]byte(strings.Repeat("k", 32)), time.Hour)
	token, err := signer.Sign(payload{FirstName: "Test", Role: "CANDIDATE"})
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		other := NewTokenSigner([]byte(strings.Repeat("x", 32)), time.Hour)
		var got payload
		assert.ErrorIs(t, other.Verify(token, &got), ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		forged, err := signer.Sign(payload{FirstName: "Test", Role: "ADMIN"})
		require.NoError(t, err)
		encoded, _, _ := strings.Cut(forged, ".")
		_, sig, _ := strings.Cut(token, ".")

		var got payload
		assert.ErrorIs(t, signer.Verify(encoded+"."+sig, &got), ErrInvalidSignature)
	})

	t.Run("malformed", func(t *testing.T) {
		var got payload
		assert.ErrorIs(t, signer.Verify("no-dot-here", &got), ErrMalformedToken)
		assert.ErrorIs(t, signer.Verify(".sig", &got), ErrMalformedToken)
	})

	t.Run("expired", func(t *testing.T) {
		expiring := NewTokenSigner([]byte(strings.Repeat("k", 32)), time.Minute)
		expiring.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := expiring.Sign(payload{FirstName: "Test"})
		require.NoError(t, err)

		expiring.now = time.Now
		var got payload
		assert.ErrorIs(t, expiring.Verify(old, &got), ErrTokenExpired)
	})
}

func TestDeriveKey(t *testing.T) {
	secret := []byte("a-session-secret-of-reasonable-length")

	k1, err := DeriveKey(secret, PurposeSessionMirror)
	require.NoError(t, err)
	assert.Len(t, k1, 32)

	k2, err := DeriveKey(secret, PurposeSessionMirror)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := DeriveKey(secret, "other-purpose")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = DeriveKey(nil, PurposeSessionMirror)
	assert.Error(t, err)
}
