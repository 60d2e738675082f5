package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", 32))

func TestNewSigner(t *testing.T) {
	_, err := NewSigner([]byte("short"), time.Hour)
	require.Error(t, err)

	_, err = NewSigner(testSecret, 0)
	require.Error(t, err)

	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.TTL())
}

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)

	token, issued, err := s.IssueToken("admin-1", "admin@example.com")
	require.NoError(t, err)

	claims, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
}

func TestSigner_ParseToken(t *testing.T) {
	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)

	token, _, err := s.IssueToken("admin-1", "admin@example.com")
	require.NoError(t, err)

	t.Run("tampered", func(t *testing.T) {
		_, err := s.ParseToken(token + "x")
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewSigner([]byte(strings.Repeat("o", 32)), time.Hour)
		require.NoError(t, err)
		_, err = other.ParseToken(token)
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.ParseToken("not-a-token")
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("expired", func(t *testing.T) {
		s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { s.now = time.Now }()

		_, err := s.ParseToken(token)
		require.ErrorIs(t, err, ErrExpiredSession)
	})
}

func TestRevocations(t *testing.T) {
	r := NewRevocations(context.Background(), time.Hour)
	defer r.Stop()

	r.Revoke("", time.Now().Add(time.Hour))
	assert.Equal(t, 0, r.Len())

	r.Revoke("live", time.Now().Add(time.Hour))
	r.Revoke("dead", time.Now().Add(-time.Minute))
	assert.True(t, r.IsRevoked("live"))
	assert.True(t, r.IsRevoked("dead"))
	assert.False(t, r.IsRevoked("other"))

	r.prune(time.Now())
	assert.True(t, r.IsRevoked("live"))
	assert.False(t, r.IsRevoked("dead"))
}
