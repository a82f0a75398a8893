package token

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrTokenBlacklisted = errors.New("token has been revoked")
	ErrRefreshInvalid   = errors.New("refresh token is invalid, expired or revoked")
	ErrRefreshReplayed  = errors.New("refresh token was already used")
	ErrUserInactive     = errors.New("user account is deactivated")
)
