package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	config.Set("JWT_SECRET", "test-secret")
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := auth.GenerateToken("user-1", true)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestRejectsTamperedAndExpired(t *testing.T) {
	tok, err := auth.GenerateToken("user-1", false)
	require.NoError(t, err)
	_, err = auth.ValidateToken(tok + "x")
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "secret123"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
}

func TestActorContext(t *testing.T) {
	_, err := auth.ActorFrom(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoActor)

	ctx := auth.WithActor(context.Background(), auth.Actor{UserID: "u1"})
	a, err := auth.ActorFrom(ctx)
	require.NoError(t, err)
	assert.True(t, a.CanAccess("u1"))
	assert.False(t, a.CanAccess("u2"))
	assert.True(t, auth.Actor{UserID: "admin", IsAdmin: true}.CanAccess("u2"))
}
