// Package store defines the durable persistence contracts. Postgres
// implements them in the postgres subpackage; tests substitute fakes.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// User is an account. PasswordHash is a bcrypt hash and never leaves the
// service layer.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	OrganizationID string // default/active organization
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time
}

// Organization is a tenant. Users belong to one default organization and
// may be members of others through memberships.
type Organization struct {
	ID        string
	Name      string
	Slug      string
	IsActive  bool
	CreatedAt time.Time
}

// Role groups permissions within an organization.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []string
}

// RefreshToken is the durable record mirroring the Redis refresh mapping.
// Redis is the fast path; this table survives Redis restarts and feeds the
// cleanup sweep.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // sha256 of the opaque token, never the token itself
	SessionID string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsActive reports whether the token is usable: not revoked and not expired.
func (t *RefreshToken) IsActive() bool {
	return t.RevokedAt == nil && time.Now().Before(t.ExpiresAt)
}

// BlacklistEntry is the durable mirror of a revoked access-token jti.
type BlacklistEntry struct {
	JTI       string
	UserID    string
	Reason    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Users interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateOrganization(ctx context.Context, id, organizationID string) error
	OrganizationIDs(ctx context.Context, id string) ([]string, error)
}

type Organizations interface {
	GetByID(ctx context.Context, id string) (*Organization, error)
	Create(ctx context.Context, o *Organization) error
	AddMember(ctx context.Context, organizationID, userID string) error
}

type Roles interface {
	// ListForUser returns the user's roles scoped to one organization,
	// with their permissions resolved.
	ListForUser(ctx context.Context, userID, organizationID string) ([]Role, error)
	AssignToUser(ctx context.Context, userID, organizationID, roleName string) error
}

type RefreshTokens interface {
	Create(ctx context.Context, t *RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context) (int, error)
}

type Blacklist interface {
	Add(ctx context.Context, e *BlacklistEntry) error
	Contains(ctx context.Context, jti string) (bool, error)
	AddAllForUser(ctx context.Context, userID, reason string, expiresAt time.Time) error
	ContainsForUser(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
	DeleteExpired(ctx context.Context) (int, error)
}

// Store aggregates the repositories behind one constructor.
type Store struct {
	Users         Users
	Organizations Organizations
	Roles         Roles
	RefreshTokens RefreshTokens
	Blacklist     Blacklist
}
