package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, "machineryd", time.Hour)

	token, expires, err := m.GenerateAccessToken(42, "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager(testSecret, "machineryd", time.Hour)
	token, _, err := m.GenerateAccessToken(1, "tecnico")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := m.ValidateAccessToken("")
		assert.Error(t, err)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewJWTManager("ffffffffffffffffffffffffffffffff", "machineryd", time.Hour)
		_, err := other.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewJWTManager(testSecret, "someone-else", time.Hour)
		_, err := other.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager(testSecret, "machineryd", -time.Minute)
		old, _, err := expired.GenerateAccessToken(1, "tecnico")
		require.NoError(t, err)
		_, err = m.ValidateAccessToken(old)
		assert.Error(t, err)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}
