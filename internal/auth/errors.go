package auth

import "errors"

var (
	ErrAlreadyStarted  = errors.New("auth manager already started")
	ErrNotStarted      = errors.New("auth manager not started")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidState    = errors.New("oauth state mismatch")
	ErrMissingCode     = errors.New("missing authorization code")
)
