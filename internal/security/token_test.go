package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{ID: 42, Username: "alice", Role: domain.RoleUser}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.CreateForUser(testUser())
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), UserID(claims))
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, domain.RoleUser, claims["role"])
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).CreateForUser(testUser())
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	token, err := NewTokenService("secret", -time.Minute).CreateForUser(testUser())
	require.NoError(t, err)

	_, err = NewTokenService("secret", -time.Minute).Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenGarbage(t *testing.T) {
	_, err := NewTokenService("secret", time.Hour).Parse("not.a.token")
	assert.Error(t, err)
}

func TestUserIDMissingClaim(t *testing.T) {
	assert.Equal(t, int64(0), UserID(jwt.MapClaims{}))
	assert.Equal(t, int64(0), UserID(jwt.MapClaims{"user_id": "42"}))
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(0)

	hash, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, h.Verify("hunter2", hash))
	assert.Error(t, h.Verify("wrong", hash))
}
