package model

import "errors"

var (
	// User related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Login is deliberately vague: unknown email and wrong password both
	// map here so responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors. ErrStaleToken means the token verified
	// cryptographically but has been rotated away or logged out; it is a
	// replay signal and is kept distinct from ErrInvalidToken in logs.
	ErrInvalidToken = errors.New("invalid token")
	ErrStaleToken   = errors.New("stale or replayed token")

	// Access control
	ErrUnauthorized = errors.New("unauthorized")

	// Refresh session store
	ErrSessionNotFound = errors.New("refresh session not found")
)
