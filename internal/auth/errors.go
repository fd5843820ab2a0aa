package auth

import "errors"

var (
	// ErrBadCredentials covers unknown email, wrong password and inactive
	// accounts alike, so a response never reveals which check failed.
	ErrBadCredentials = errors.New("credenciales incorrectas")

	// ErrBadToken is returned for expired, malformed or revoked tokens.
	ErrBadToken = errors.New("invalid token")
)
