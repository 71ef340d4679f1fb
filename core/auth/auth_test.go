package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JamFM/core/music"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong-pass", hash))
	assert.False(t, CheckPasswordHash("s3cret-pass", "not-a-hash"))
}

func TestIssueAndValidateToken(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.IssueToken("profile-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "profile-1", claims.ProfileID)
	assert.Equal(t, "profile-1", claims.Subject)
}

func TestValidateTokenFailures(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, music.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("different-secret", time.Hour)
		token, err := other.IssueToken("profile-1")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, music.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		short := NewTokenManager("test-secret", -time.Minute)
		token, err := short.IssueToken("profile-1")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, music.ErrUnauthorized)
	})
}

func TestTokenManagerDefaultTTL(t *testing.T) {
	m := NewTokenManager("test-secret", 0)

	token, err := m.IssueToken("profile-1")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), claims.ExpiresAt.Time, time.Minute)
}
