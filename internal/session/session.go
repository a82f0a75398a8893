// Package session implements the Redis-backed session store. A session is
// the durable anchor for a login: access tokens reference it by id, the
// current refresh token lives inside it, and deleting it revokes the login.
package session

import (
	"time"
)

// DefaultTTL is how long a session lives without a refresh.
const DefaultTTL = 7 * 24 * time.Hour

// Session is the record stored at session:<id> as JSON.
type Session struct {
	ID              string    `json:"sessionId"`
	UserID          string    `json:"userId"`
	Email           string    `json:"email"`
	OrganizationID  string    `json:"organizationId"`
	Roles           []string  `json:"roles"`
	Permissions     []string  `json:"permissions"`
	RefreshToken    string    `json:"refreshToken"`
	CreatedAt       time.Time `json:"createdAt"`
	LastRefreshedAt time.Time `json:"lastRefreshedAt"`
	IP              string    `json:"ip,omitempty"`
	UserAgent       string    `json:"userAgent,omitempty"`
}

// redisKeySession returns the Redis key for a session.
func redisKeySession(sessionID string) string { return "session:" + sessionID }

// redisKeyRefresh maps a refresh token to its session id.
func redisKeyRefresh(token string) string { return "refresh:" + token }

// redisKeyUserSessions is the set of session ids belonging to a user.
func redisKeyUserSessions(userID string) string { return "user_sessions:" + userID }

// redisKeyBlacklist marks a token jti as revoked until its natural expiry.
func redisKeyBlacklist(jti string) string { return "blacklist:" + jti }
