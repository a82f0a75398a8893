// Package token manages the token lifecycle: issuing access/refresh pairs
// bound to Redis sessions, rotating refresh tokens, and revocation through
// the jti blacklist. Redis is the fast path for every check; Postgres keeps
// a durable mirror that survives a Redis flush.
package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/allodoc/allodoc-backend/config"
	"github.com/allodoc/allodoc-backend/internal/events"
	"github.com/allodoc/allodoc-backend/internal/session"
	"github.com/allodoc/allodoc-backend/internal/store"
	jwttoken "github.com/allodoc/allodoc-backend/pkg/jwt"
	"github.com/allodoc/allodoc-backend/pkg/util/password"
)

const refreshTokenLength = 64

// SessionMeta carries request attribution recorded on the session.
type SessionMeta struct {
	IP        string
	UserAgent string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds until the access token expires
	SessionID    string
}

type Service interface {
	GenerateTokens(ctx context.Context, u *store.User, organizationID string, roles, permissions []string, meta SessionMeta) (*TokenPair, error)
	VerifyToken(ctx context.Context, tokenStr string) (*jwttoken.Claims, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
	RevokeAllUserTokens(ctx context.Context, userID, reason string) (int, error)
	BlacklistToken(ctx context.Context, claims *jwttoken.Claims, reason string) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

type tokenService struct {
	jwt        *jwttoken.Manager
	sessions   session.Store
	users      store.Users
	roles      store.Roles
	refresh    store.RefreshTokens
	blacklist  store.Blacklist
	events     events.Publisher
	refreshTTL time.Duration
	logger     *slog.Logger
}

func New(
	jwtManager *jwttoken.Manager,
	sessions session.Store,
	st *store.Store,
	pub events.Publisher,
	cfg *config.Config,
	logger *slog.Logger,
) Service {
	refreshTTL := time.Duration(cfg.Authentication.JWT.RefreshTTLDays) * 24 * time.Hour
	if refreshTTL <= 0 {
		refreshTTL = session.DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &tokenService{
		jwt:        jwtManager,
		sessions:   sessions,
		users:      st.Users,
		roles:      st.Roles,
		refresh:    st.RefreshTokens,
		blacklist:  st.Blacklist,
		events:     pub,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ---------------------------------------------------------------------------
// Issue
// ---------------------------------------------------------------------------

func (s *tokenService) GenerateTokens(ctx context.Context, u *store.User, organizationID string, roles, permissions []string, meta SessionMeta) (*TokenPair, error) {
	refreshToken := password.Generate(refreshTokenLength)

	sess := &session.Session{
		UserID:         u.ID,
		Email:          u.Email,
		OrganizationID: organizationID,
		Roles:          roles,
		Permissions:    permissions,
		RefreshToken:   refreshToken,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	access, _, err := s.jwt.Issue(jwttoken.IssueParams{
		UserID:         u.ID,
		Email:          u.Email,
		OrganizationID: organizationID,
		Roles:          roles,
		Permissions:    permissions,
		SessionID:      sess.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	// Durable mirror, best-effort. Redis is authoritative for the live
	// session; losing this row only weakens the post-flush fallback.
	rec := &store.RefreshToken{
		UserID:    u.ID,
		TokenHash: hashToken(refreshToken),
		SessionID: sess.ID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.refresh.Create(ctx, rec); err != nil {
		s.logger.Warn("refresh_token_mirror_failed", "user_id", u.ID, "err", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwt.AccessTTL().Seconds()),
		SessionID:    sess.ID,
	}, nil
}

// ---------------------------------------------------------------------------
// Verify
// ---------------------------------------------------------------------------

func (s *tokenService) VerifyToken(ctx context.Context, tokenStr string) (*jwttoken.Claims, error) {
	claims, err := s.jwt.Verify(tokenStr)
	if err != nil {
		// Expired, not-yet-valid, and malformed are safe to surface;
		// everything else stays opaque.
		switch {
		case errors.Is(err, jwttoken.ErrTokenExpired),
			errors.Is(err, jwttoken.ErrTokenNotYetValid),
			errors.Is(err, jwttoken.ErrTokenMalformed):
			return nil, err
		default:
			return nil, ErrInvalidToken
		}
	}

	blacklisted, err := s.IsTokenBlacklisted(ctx, claims.JTI())
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	// A user-wide revocation covers access tokens minted before it, even
	// ones whose individual jtis were never recorded.
	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	covered, err := s.blacklist.ContainsForUser(ctx, claims.UserID(), issuedAt)
	if err != nil {
		return nil, fmt.Errorf("check user token revocation: %w", err)
	}
	if covered {
		return nil, ErrTokenBlacklisted
	}

	return claims, nil
}

func (s *tokenService) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	blacklisted, err := s.sessions.IsJTIBlacklisted(ctx, jti)
	if err == nil {
		return blacklisted, nil
	}

	// Redis is down or flushed; fall back to the durable mirror.
	s.logger.Warn("blacklist_fast_path_failed", "err", err)
	return s.blacklist.Contains(ctx, jti)
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func (s *tokenService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	newToken := password.Generate(refreshTokenLength)

	sess, err := s.sessions.Rotate(ctx, refreshToken, newToken)
	switch err {
	case nil:
		return s.pairFromSession(ctx, sess, refreshToken, newToken)
	case session.ErrRefreshReplayed:
		s.events.Publish(events.SubjectRefreshReplay, events.SecurityEvent{})
		return nil, ErrRefreshReplayed
	case session.ErrRefreshNotFound:
		return s.refreshFromDurable(ctx, refreshToken)
	default:
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
}

func (s *tokenService) pairFromSession(ctx context.Context, sess *session.Session, oldToken, newToken string) (*TokenPair, error) {
	access, _, err := s.jwt.Issue(jwttoken.IssueParams{
		UserID:         sess.UserID,
		Email:          sess.Email,
		OrganizationID: sess.OrganizationID,
		Roles:          sess.Roles,
		Permissions:    sess.Permissions,
		SessionID:      sess.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	// Mirror the rotation durably, best-effort.
	if err := s.refresh.Revoke(ctx, hashToken(oldToken)); err != nil {
		s.logger.Warn("refresh_revoke_mirror_failed", "session_id", sess.ID, "err", err)
	}
	rec := &store.RefreshToken{
		UserID:    sess.UserID,
		TokenHash: hashToken(newToken),
		SessionID: sess.ID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.refresh.Create(ctx, rec); err != nil {
		s.logger.Warn("refresh_token_mirror_failed", "session_id", sess.ID, "err", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: newToken,
		ExpiresIn:    int64(s.jwt.AccessTTL().Seconds()),
		SessionID:    sess.ID,
	}, nil
}

// refreshFromDurable recovers a login after the Redis session vanished, for
// example after a Redis restart. The durable refresh record proves the grant
// is still valid, so a fresh session is rebuilt from Postgres.
func (s *tokenService) refreshFromDurable(ctx context.Context, refreshToken string) (*TokenPair, error) {
	rec, err := s.refresh.GetByHash(ctx, hashToken(refreshToken))
	if err == store.ErrNotFound {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if !rec.IsActive() {
		return nil, ErrRefreshInvalid
	}

	u, err := s.users.GetByID(ctx, rec.UserID)
	if err == store.ErrNotFound {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}

	roles, perms, err := s.resolveAccess(ctx, u.ID, u.OrganizationID)
	if err != nil {
		return nil, err
	}

	// The old durable record is spent either way.
	if err := s.refresh.Revoke(ctx, rec.TokenHash); err != nil {
		s.logger.Warn("refresh_revoke_mirror_failed", "user_id", u.ID, "err", err)
	}

	s.logger.Info("session_rebuilt_from_durable", "user_id", u.ID, "old_session_id", rec.SessionID)

	return s.GenerateTokens(ctx, u, u.OrganizationID, roles, perms, SessionMeta{})
}

func (s *tokenService) resolveAccess(ctx context.Context, userID, organizationID string) ([]string, []string, error) {
	roleRecs, err := s.roles.ListForUser(ctx, userID, organizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve roles: %w", err)
	}

	var roles []string
	permSet := make(map[string]struct{})
	for _, r := range roleRecs {
		roles = append(roles, r.Name)
		for _, p := range r.Permissions {
			permSet[p] = struct{}{}
		}
	}
	perms := make([]string, 0, len(permSet))
	for p := range permSet {
		perms = append(perms, p)
	}
	return roles, perms, nil
}

// ---------------------------------------------------------------------------
// Revoke
// ---------------------------------------------------------------------------

func (s *tokenService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	sessionID, err := s.sessions.ResolveRefresh(ctx, refreshToken)
	if err == nil {
		if err := s.sessions.Invalidate(ctx, sessionID); err != nil && err != session.ErrNotFound {
			return fmt.Errorf("invalidate session: %w", err)
		}
	} else if err != session.ErrRefreshNotFound {
		return fmt.Errorf("resolve refresh token: %w", err)
	}

	if err := s.refresh.Revoke(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *tokenService) RevokeAllUserTokens(ctx context.Context, userID, reason string) (int, error) {
	count, err := s.sessions.InvalidateAllForUser(ctx, userID)
	if err != nil {
		return count, fmt.Errorf("invalidate user sessions: %w", err)
	}

	if _, err := s.refresh.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Warn("refresh_revoke_all_mirror_failed", "user_id", userID, "err", err)
	}

	// Record the user-wide revocation so access tokens issued before now
	// can be rejected even without their individual jtis.
	expiresAt := time.Now().Add(s.jwt.AccessTTL())
	if err := s.blacklist.AddAllForUser(ctx, userID, reason, expiresAt); err != nil {
		s.logger.Warn("user_revocation_mirror_failed", "user_id", userID, "err", err)
	}

	s.events.Publish(events.SubjectSessionsRevoked, events.SecurityEvent{
		UserID: userID,
		Reason: reason,
	})

	return count, nil
}

func (s *tokenService) BlacklistToken(ctx context.Context, claims *jwttoken.Claims, reason string) error {
	jti := claims.JTI()
	if jti == "" {
		return ErrInvalidToken
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	} else {
		expiresAt = time.Now().Add(s.jwt.AccessTTL())
	}

	ttl := time.Until(expiresAt)
	if err := s.sessions.BlacklistJTI(ctx, jti, ttl); err != nil {
		return fmt.Errorf("blacklist jti: %w", err)
	}

	entry := &store.BlacklistEntry{
		JTI:       jti,
		UserID:    claims.UserID(),
		Reason:    reason,
		ExpiresAt: expiresAt,
	}
	if err := s.blacklist.Add(ctx, entry); err != nil {
		s.logger.Warn("blacklist_mirror_failed", "jti", jti, "err", err)
	}

	return nil
}
