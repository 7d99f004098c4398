package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// JWTAuthenticator verifies HS256 tokens carrying a "sub" (session ID) claim
// and an optional "name" claim for the initial display name.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (User, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return User{}, errors.New("invalid or expired token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return User{}, errors.New("invalid token subject")
	}

	name, _ := claims["name"].(string)
	if name == "" {
		name = sub
	}

	return User{ID: sub, DisplayName: name}, nil
}

// StaticAuthenticator accepts the token verbatim as a session ID, used for
// local development and tests where issuing real JWTs is unnecessary.
type StaticAuthenticator struct{}

func (StaticAuthenticator) Authenticate(_ context.Context, token string) (User, error) {
	if token == "" {
		return User{}, errors.New("empty token")
	}
	return User{ID: token, DisplayName: token}, nil
}
