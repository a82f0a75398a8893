package auth

import "errors"

var (
	ErrEmailAlreadyExists   = errors.New("email already registered")
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrWeakPassword         = errors.New("password must be at least 8 characters with upper case, lower case and a digit")
	ErrInvalidCredentials   = errors.New("email or password is incorrect")
	ErrAccountSuspended     = errors.New("account is deactivated")
	ErrSessionNotFound      = errors.New("session not found or expired")
	ErrSessionNotOwned      = errors.New("session belongs to another user")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrSamePassword         = errors.New("new password must differ from the current one")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrOrganizationDenied   = errors.New("no access to this organization")
)
