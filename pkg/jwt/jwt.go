package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minSecretLength = 32

type Config struct {
	// Secret is the HS256 signing key. At least 32 characters.
	Secret []byte

	Issuer   string
	Audience string

	AccessTTL time.Duration
}

type Manager struct {
	cfg Config
}

func New(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, ErrConfig{Msg: "secret must be at least 32 characters"}
	}
	if cfg.Issuer == "" {
		return nil, ErrConfig{Msg: "Issuer is required"}
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	return &Manager{cfg: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.cfg.AccessTTL
}

// IssueParams carries the identity snapshot embedded in an access token.
type IssueParams struct {
	UserID         string
	Email          string
	OrganizationID string
	Roles          []string
	Permissions    []string
	SessionID      string
}

// Issue mints and signs an access token with a fresh jti. The returned
// claims describe exactly what was signed.
func (m *Manager) Issue(p IssueParams) (string, *Claims, error) {
	if p.UserID == "" {
		return "", nil, ErrConfig{Msg: "UserID is required"}
	}

	now := time.Now().UTC()
	claims := &Claims{
		Email:          p.Email,
		OrganizationID: p.OrganizationID,
		Roles:          p.Roles,
		Permissions:    p.Permissions,
		SessionID:      p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings{m.cfg.Audience},
			Subject:   p.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks signature, expiry, and registered claims. The error is
// one of ErrTokenExpired, ErrTokenNotYetValid, ErrTokenMalformed, or
// ErrTokenInvalid — nothing about the signing internals leaks out.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMalformed
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return m.cfg.Secret, nil
	}, jwt.WithIssuer(m.cfg.Issuer), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrTokenInvalid
	}
}
