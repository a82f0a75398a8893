package jwttoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the app-facing access-token payload. Subject carries the
// user id; SessionID links the token to its server-side session record
// and is empty for tokens minted before the session model existed.
type Claims struct {
	Email          string   `json:"email"`
	OrganizationID string   `json:"organizationId"`
	Roles          []string `json:"roles"`
	Permissions    []string `json:"permissions"`
	SessionID      string   `json:"sessionId,omitempty"`

	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// JTI returns the unique token identifier used for revocation tracking.
func (c *Claims) JTI() string {
	return c.ID
}

// IsExpired reports whether the token has passed its expiry.
func (c *Claims) IsExpired() bool {
	return c.ExpiresAt != nil && time.Now().After(c.ExpiresAt.Time)
}
