// Package auth maps an opaque connection token to an authenticated user
// identity. The messaging core only consumes the Authenticator contract;
// issuing and rotating tokens is out of scope.
package auth

import "context"

// User is the identity the messaging core anchors a session to. ID becomes
// the session's SessionID; DisplayName seeds its initial name.
type User struct {
	ID          string
	DisplayName string
}

// Authenticator maps a token to a User, or fails.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (User, error)
}
