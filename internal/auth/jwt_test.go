package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTAuthenticatorAcceptsValidToken(t *testing.T) {
	a := NewJWTAuthenticator("secret")
	token := signToken(t, "secret", jwt.MapClaims{
		"sub":  "a@example.com",
		"name": "alice",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	user, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.ID)
	assert.Equal(t, "alice", user.DisplayName)
}

func TestJWTAuthenticatorFallsBackToSubWhenNameMissing(t *testing.T) {
	a := NewJWTAuthenticator("secret")
	token := signToken(t, "secret", jwt.MapClaims{
		"sub": "a@example.com",
	})

	user, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.DisplayName)
}

func TestJWTAuthenticatorRejectsWrongSecret(t *testing.T) {
	a := NewJWTAuthenticator("secret")
	token := signToken(t, "wrong-secret", jwt.MapClaims{"sub": "a@example.com"})

	_, err := a.Authenticate(context.Background(), token)
	assert.Error(t, err)
}

func TestJWTAuthenticatorRejectsExpiredToken(t *testing.T) {
	a := NewJWTAuthenticator("secret")
	token := signToken(t, "secret", jwt.MapClaims{
		"sub": "a@example.com",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := a.Authenticate(context.Background(), token)
	assert.Error(t, err)
}

func TestJWTAuthenticatorRejectsMissingSubject(t *testing.T) {
	a := NewJWTAuthenticator("secret")
	token := signToken(t, "secret", jwt.MapClaims{"name": "alice"})

	_, err := a.Authenticate(context.Background(), token)
	assert.Error(t, err)
}

func TestStaticAuthenticatorRejectsEmptyToken(t *testing.T) {
	var a StaticAuthenticator
	_, err := a.Authenticate(context.Background(), "")
	assert.Error(t, err)
}

func TestStaticAuthenticatorEchoesToken(t *testing.T) {
	var a StaticAuthenticator
	user, err := a.Authenticate(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.ID)
	assert.Equal(t, "a@example.com", user.DisplayName)
}
