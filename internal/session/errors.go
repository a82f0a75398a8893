package session

import "errors"

var (
	// ErrNotFound means the session id has no record (expired or revoked).
	ErrNotFound = errors.New("session not found")

	// ErrRefreshNotFound means the presented refresh token maps to nothing.
	ErrRefreshNotFound = errors.New("refresh token not found")

	// ErrRefreshReplayed means the presented refresh token belongs to the
	// session but is no longer its current token. A concurrent refresh
	// already rotated it; the presenter lost the race or replayed a stolen
	// token.
	ErrRefreshReplayed = errors.New("refresh token already rotated")
)
