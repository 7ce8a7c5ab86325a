package auth

import "errors"

// Authentication errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrForbidden    = errors.New("insufficient permissions")
	ErrNoSecret     = errors.New("signing secret is empty")
)
