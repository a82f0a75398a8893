// Package auth implements account and session workflows: registration,
// login, refresh, logout, password change, organization switching and
// session management.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/allodoc/allodoc-backend/config"
	"github.com/allodoc/allodoc-backend/internal/events"
	"github.com/allodoc/allodoc-backend/internal/service/token"
	"github.com/allodoc/allodoc-backend/internal/session"
	"github.com/allodoc/allodoc-backend/internal/store"
	"github.com/allodoc/allodoc-backend/pkg/authz"
	"github.com/allodoc/allodoc-backend/pkg/email"
	jwttoken "github.com/allodoc/allodoc-backend/pkg/jwt"
	"github.com/allodoc/allodoc-backend/pkg/permission"
	"github.com/allodoc/allodoc-backend/pkg/util/password"
)

const defaultPermCacheTTL = 5 * time.Minute

// redisKeyUserPerms caches the resolved roles and permissions for a user in
// one organization.
func redisKeyUserPerms(userID, organizationID string) string {
	return "user_perms:" + userID + ":" + organizationID
}

var reEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type RegisterRequest struct {
	Email            string
	Password         string
	FirstName        string
	LastName         string
	OrganizationID   string // join an existing organization
	OrganizationName string // or create a new one
}

type LoginRequest struct {
	Email    string
	Password string
}

type ChangePasswordRequest struct {
	CurrentPassword string
	NewPassword     string
}

// RequestMeta carries client attribution from the transport layer.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type AuthResult struct {
	Tokens        *token.TokenPair
	User          UserInfo
	Organizations []OrganizationInfo
}

// OrganizationInfo is the directory entry clients use to offer an
// organization switch.
type OrganizationInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type UserInfo struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	OrganizationID string   `json:"organizationId"`
	Roles          []string `json:"roles"`
	Permissions    []string `json:"permissions"`
}

type SessionInfo struct {
	ID              string    `json:"sessionId"`
	OrganizationID  string    `json:"organizationId"`
	CreatedAt       time.Time `json:"createdAt"`
	LastRefreshedAt time.Time `json:"lastRefreshedAt"`
	IP              string    `json:"ip,omitempty"`
	UserAgent       string    `json:"userAgent,omitempty"`
	Current         bool      `json:"current"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Register(ctx context.Context, req RegisterRequest, meta RequestMeta) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*AuthResult, error)
	ValidateUser(ctx context.Context, emailAddr, pass string) (*store.User, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, claims *jwttoken.Claims, refreshToken string) error
	LogoutAll(ctx context.Context, claims *jwttoken.Claims) (int, error)
	ChangePassword(ctx context.Context, claims *jwttoken.Claims, req ChangePasswordRequest) error
	SwitchOrganization(ctx context.Context, claims *jwttoken.Claims, organizationID string) (*AuthResult, error)
	GetUserSessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error)
	TerminateSession(ctx context.Context, principal authz.Principal, sessionID string) error
	InvalidatePermissionCache(ctx context.Context, userID, organizationID string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type authService struct {
	st       *store.Store
	sessions session.Store
	tokens   token.Service
	jwt      *jwttoken.Manager
	authz    *authz.Service
	rdb      *goredis.Client
	events   events.Publisher
	mailer   *email.Client
	cfg      *config.Config
	logger   *slog.Logger
}

func New(
	st *store.Store,
	sessions session.Store,
	tokens token.Service,
	jwtManager *jwttoken.Manager,
	authzSvc *authz.Service,
	rdb *goredis.Client,
	pub events.Publisher,
	mailer *email.Client,
	cfg *config.Config,
	logger *slog.Logger,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		st:       st,
		sessions: sessions,
		tokens:   tokens,
		jwt:      jwtManager,
		authz:    authzSvc,
		rdb:      rdb,
		events:   pub,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func (s *authService) Register(ctx context.Context, req RegisterRequest, meta RequestMeta) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if !reEmail.MatchString(req.Email) {
		return nil, ErrInvalidEmail
	}
	if err := validatePasswordPolicy(req.Password); err != nil {
		return nil, err
	}

	// Email uniqueness is global across organizations.
	if _, err := s.st.Users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if err != store.ErrNotFound {
		return nil, fmt.Errorf("check email: %w", err)
	}

	orgID, err := s.resolveRegistrationOrg(ctx, req)
	if err != nil {
		return nil, err
	}

	hash, err := password.HashWithCost(req.Password, s.cfg.Authentication.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &store.User{
		Email:          req.Email,
		PasswordHash:   hash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		OrganizationID: orgID,
		IsActive:       true,
	}
	if err := s.st.Users.Create(ctx, u); err == store.ErrDuplicate {
		return nil, ErrEmailAlreadyExists
	} else if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.events.Publish(events.SubjectRegister, events.SecurityEvent{
		UserID:         u.ID,
		Email:          u.Email,
		OrganizationID: orgID,
		IP:             meta.IP,
	})

	return s.openSession(ctx, u, orgID, meta)
}

func (s *authService) resolveRegistrationOrg(ctx context.Context, req RegisterRequest) (string, error) {
	if req.OrganizationID != "" {
		org, err := s.st.Organizations.GetByID(ctx, req.OrganizationID)
		if err == store.ErrNotFound {
			return "", ErrOrganizationNotFound
		}
		if err != nil {
			return "", fmt.Errorf("get organization: %w", err)
		}
		return org.ID, nil
	}

	name := strings.TrimSpace(req.OrganizationName)
	if name == "" {
		return "", ErrOrganizationNotFound
	}

	org := &store.Organization{
		Name:     name,
		Slug:     slugify(name),
		IsActive: true,
	}
	if err := s.st.Organizations.Create(ctx, org); err != nil && err != store.ErrDuplicate {
		return "", fmt.Errorf("create organization: %w", err)
	}
	return org.ID, nil
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	return s
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func (s *authService) ValidateUser(ctx context.Context, emailAddr, pass string) (*store.User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	u, err := s.st.Users.GetByEmail(ctx, emailAddr)
	if err == store.ErrNotFound {
		// Burn a hash comparison anyway so the response time does not
		// reveal whether the email exists.
		_ = password.Match(decoyHash, "decoy-password")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !password.Match(u.PasswordHash, pass) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountSuspended
	}
	return u, nil
}

// decoyHash is a bcrypt hash of a throwaway string, used to equalize timing
// on unknown-email logins.
var decoyHash, _ = password.Hash("decoy-password-for-timing")

func (s *authService) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*AuthResult, error) {
	u, err := s.ValidateUser(ctx, req.Email, req.Password)
	if err != nil {
		if err == ErrInvalidCredentials {
			s.events.Publish(events.SubjectLoginFailed, events.SecurityEvent{
				Email: strings.ToLower(strings.TrimSpace(req.Email)),
				IP:    meta.IP,
			})
		}
		return nil, err
	}

	if err := s.st.Users.UpdateLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("update_last_login_failed", "user_id", u.ID, "err", err)
	}

	res, err := s.openSession(ctx, u, u.OrganizationID, meta)
	if err != nil {
		return nil, err
	}

	s.events.Publish(events.SubjectLogin, events.SecurityEvent{
		UserID:         u.ID,
		Email:          u.Email,
		OrganizationID: u.OrganizationID,
		SessionID:      res.Tokens.SessionID,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
	})

	s.notify(u.ID, func(u *store.User) email.Message {
		return email.BuildNewLoginEmail(email.SecurityEmailData{
			FirstName: u.FirstName,
			Email:     u.Email,
			When:      time.Now().UTC(),
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
		})
	})

	return res, nil
}

// openSession resolves access for the organization and issues a token pair.
func (s *authService) openSession(ctx context.Context, u *store.User, organizationID string, meta RequestMeta) (*AuthResult, error) {
	roles, perms, err := s.resolveAccess(ctx, u.ID, organizationID)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.GenerateTokens(ctx, u, organizationID, roles, perms, token.SessionMeta{
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	orgs, err := s.listOrganizations(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Tokens: pair,
		User: UserInfo{
			ID:             u.ID,
			Email:          u.Email,
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			OrganizationID: organizationID,
			Roles:          roles,
			Permissions:    perms,
		},
		Organizations: orgs,
	}, nil
}

// listOrganizations resolves the user's accessible organizations for the
// auth response envelope. Inactive organizations are filtered out.
func (s *authService) listOrganizations(ctx context.Context, userID string) ([]OrganizationInfo, error) {
	ids, err := s.st.Users.OrganizationIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	orgs := make([]OrganizationInfo, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		org, err := s.st.Organizations.GetByID(ctx, id)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get organization %s: %w", id, err)
		}
		if !org.IsActive {
			continue
		}
		orgs = append(orgs, OrganizationInfo{ID: org.ID, Name: org.Name, Slug: org.Slug})
	}
	return orgs, nil
}

// ---------------------------------------------------------------------------
// Refresh / Logout
// ---------------------------------------------------------------------------

// RefreshTokens rotates the refresh token and re-resolves the user and the
// organization directory so the response envelope matches a fresh login.
func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthResult, error) {
	pair, err := s.tokens.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, pair.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load refreshed session: %w", err)
	}

	u, err := s.st.Users.GetByID(ctx, sess.UserID)
	if err == store.ErrNotFound {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	orgs, err := s.listOrganizations(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Tokens: pair,
		User: UserInfo{
			ID:             u.ID,
			Email:          u.Email,
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			OrganizationID: sess.OrganizationID,
			Roles:          sess.Roles,
			Permissions:    sess.Permissions,
		},
		Organizations: orgs,
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims *jwttoken.Claims, refreshToken string) error {
	if claims != nil {
		if err := s.tokens.BlacklistToken(ctx, claims, "logout"); err != nil {
			s.logger.Warn("logout_blacklist_failed", "user_id", claims.UserID(), "err", err)
		}
		if claims.SessionID != "" {
			if err := s.sessions.Invalidate(ctx, claims.SessionID); err != nil && err != session.ErrNotFound {
				return fmt.Errorf("invalidate session: %w", err)
			}
		}
	}

	if refreshToken != "" {
		if err := s.tokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
			return err
		}
	}
	return nil
}

func (s *authService) LogoutAll(ctx context.Context, claims *jwttoken.Claims) (int, error) {
	if err := s.tokens.BlacklistToken(ctx, claims, "logout_all"); err != nil {
		s.logger.Warn("logout_all_blacklist_failed", "user_id", claims.UserID(), "err", err)
	}

	count, err := s.tokens.RevokeAllUserTokens(ctx, claims.UserID(), "logout_all")
	if err != nil {
		return count, err
	}

	s.notify(claims.UserID(), func(u *store.User) email.Message {
		return email.BuildSessionsTerminatedEmail(email.SecurityEmailData{
			FirstName: u.FirstName,
			Email:     u.Email,
		})
	})

	return count, nil
}

// ---------------------------------------------------------------------------
// Change password
// ---------------------------------------------------------------------------

func (s *authService) ChangePassword(ctx context.Context, claims *jwttoken.Claims, req ChangePasswordRequest) error {
	u, err := s.st.Users.GetByID(ctx, claims.UserID())
	if err == store.ErrNotFound {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if !password.Match(u.PasswordHash, req.CurrentPassword) {
		return ErrWrongPassword
	}
	if req.CurrentPassword == req.NewPassword {
		return ErrSamePassword
	}
	if err := validatePasswordPolicy(req.NewPassword); err != nil {
		return err
	}

	hash, err := password.HashWithCost(req.NewPassword, s.cfg.Authentication.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.st.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// All sessions die, including the caller's. The caller's own access
	// token is blacklisted explicitly so it cannot ride out its TTL.
	if _, err := s.tokens.RevokeAllUserTokens(ctx, u.ID, "password_change"); err != nil {
		s.logger.Error("password_change_revocation_failed", "user_id", u.ID, "err", err)
	}
	if err := s.tokens.BlacklistToken(ctx, claims, "password_change"); err != nil {
		s.logger.Warn("password_change_blacklist_failed", "user_id", u.ID, "err", err)
	}

	s.events.Publish(events.SubjectPasswordChanged, events.SecurityEvent{
		UserID: u.ID,
		Email:  u.Email,
	})

	s.notify(u.ID, func(u *store.User) email.Message {
		return email.BuildPasswordChangedEmail(email.SecurityEmailData{
			FirstName: u.FirstName,
			Email:     u.Email,
			When:      time.Now().UTC(),
		})
	})

	return nil
}

func validatePasswordPolicy(pass string) error {
	if len(pass) < 8 {
		return ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range pass {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// ---------------------------------------------------------------------------
// Switch organization
// ---------------------------------------------------------------------------

func (s *authService) SwitchOrganization(ctx context.Context, claims *jwttoken.Claims, organizationID string) (*AuthResult, error) {
	u, err := s.st.Users.GetByID(ctx, claims.UserID())
	if err == store.ErrNotFound {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	org, err := s.st.Organizations.GetByID(ctx, organizationID)
	if err == store.ErrNotFound {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if !org.IsActive {
		return nil, ErrOrganizationNotFound
	}

	memberships, err := s.st.Users.OrganizationIDs(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	principal := authz.Principal{
		ID:              u.ID,
		Email:           u.Email,
		OrganizationID:  u.OrganizationID,
		Roles:           claims.Roles,
		OrganizationIDs: memberships,
	}
	if !s.authz.CanAccessOrganization(principal, organizationID) {
		return nil, ErrOrganizationDenied
	}

	// Grants cached for the target organization may predate a role change
	// there, so the switch always resolves fresh.
	if err := s.InvalidatePermissionCache(ctx, u.ID, organizationID); err != nil {
		s.logger.Warn("perm_cache_invalidate_failed", "user_id", u.ID, "err", err)
	}

	roles, perms, err := s.resolveAccess(ctx, u.ID, organizationID)
	if err != nil {
		return nil, err
	}

	// The session keeps its id and refresh token; only its scope changes.
	// The old access token is blacklisted so the previous organization's
	// permissions cannot be replayed from it.
	var pair *token.TokenPair
	if claims.SessionID != "" {
		sess, err := s.sessions.Get(ctx, claims.SessionID)
		if err == session.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, err
		}

		sess.OrganizationID = organizationID
		sess.Roles = roles
		sess.Permissions = perms
		if err := s.sessions.Update(ctx, sess); err != nil {
			return nil, fmt.Errorf("update session: %w", err)
		}

		access, _, err := s.issueForSession(u, sess)
		if err != nil {
			return nil, err
		}
		pair = &token.TokenPair{
			AccessToken:  access,
			RefreshToken: sess.RefreshToken,
			ExpiresIn:    int64(s.jwt.AccessTTL().Seconds()),
			SessionID:    sess.ID,
		}
	} else {
		res, err := s.openSession(ctx, u, organizationID, RequestMeta{})
		if err != nil {
			return nil, err
		}
		pair = res.Tokens
	}

	if err := s.tokens.BlacklistToken(ctx, claims, "org_switch"); err != nil {
		s.logger.Warn("org_switch_blacklist_failed", "user_id", u.ID, "err", err)
	}

	s.events.Publish(events.SubjectOrganizationSwitch, events.SecurityEvent{
		UserID:         u.ID,
		Email:          u.Email,
		OrganizationID: organizationID,
		SessionID:      pair.SessionID,
	})

	orgs, err := s.listOrganizations(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Tokens: pair,
		User: UserInfo{
			ID:             u.ID,
			Email:          u.Email,
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			OrganizationID: organizationID,
			Roles:          roles,
			Permissions:    perms,
		},
		Organizations: orgs,
	}, nil
}

func (s *authService) issueForSession(u *store.User, sess *session.Session) (string, *jwttoken.Claims, error) {
	return s.jwt.Issue(jwttoken.IssueParams{
		UserID:         u.ID,
		Email:          u.Email,
		OrganizationID: sess.OrganizationID,
		Roles:          sess.Roles,
		Permissions:    sess.Permissions,
		SessionID:      sess.ID,
	})
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *authService) GetUserSessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			ID:              sess.ID,
			OrganizationID:  sess.OrganizationID,
			CreatedAt:       sess.CreatedAt,
			LastRefreshedAt: sess.LastRefreshedAt,
			IP:              sess.IP,
			UserAgent:       sess.UserAgent,
			Current:         sess.ID == currentSessionID,
		})
	}
	return infos, nil
}

func (s *authService) TerminateSession(ctx context.Context, principal authz.Principal, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err == session.ErrNotFound {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	if sess.UserID != principal.ID && !principal.IsSuperAdmin() {
		return ErrSessionNotOwned
	}

	if err := s.sessions.Invalidate(ctx, sessionID); err != nil && err != session.ErrNotFound {
		return err
	}

	s.events.Publish(events.SubjectSessionsRevoked, events.SecurityEvent{
		UserID:    sess.UserID,
		SessionID: sessionID,
		Reason:    "terminated",
	})
	return nil
}

// ---------------------------------------------------------------------------
// Permission resolution (Redis-cached)
// ---------------------------------------------------------------------------

type cachedAccess struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// resolveAccess returns the user's role names and normalized permissions in
// one organization. Results are cached briefly in Redis; role assignment
// paths must call InvalidatePermissionCache.
func (s *authService) resolveAccess(ctx context.Context, userID, organizationID string) ([]string, []string, error) {
	cacheKey := redisKeyUserPerms(userID, organizationID)

	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached cachedAccess
			if json.Unmarshal(raw, &cached) == nil {
				return cached.Roles, cached.Permissions, nil
			}
		}
	}

	roleRecs, err := s.st.Roles.ListForUser(ctx, userID, organizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve roles: %w", err)
	}

	var roles []string
	permSet := make(map[string]struct{})
	for _, r := range roleRecs {
		roles = append(roles, r.Name)
		for _, p := range r.Permissions {
			if err := permission.Validate(p); err != nil {
				s.logger.Warn("invalid_permission_skipped", "user_id", userID, "permission", p, "err", err)
				continue
			}
			permSet[permission.Normalize(p)] = struct{}{}
		}
	}
	perms := make([]string, 0, len(permSet))
	for p := range permSet {
		perms = append(perms, p)
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(cachedAccess{Roles: roles, Permissions: perms}); err == nil {
			s.rdb.Set(ctx, cacheKey, raw, s.permCacheTTL())
		}
	}

	return roles, perms, nil
}

func (s *authService) InvalidatePermissionCache(ctx context.Context, userID, organizationID string) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, redisKeyUserPerms(userID, organizationID)).Err()
}

func (s *authService) permCacheTTL() time.Duration {
	if sec := s.cfg.Authentication.PermCacheTTLSeconds; sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultPermCacheTTL
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

// notify sends a security email without blocking the request path.
func (s *authService) notify(userID string, build func(*store.User) email.Message) {
	if s.mailer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		u, err := s.st.Users.GetByID(ctx, userID)
		if err != nil {
			return
		}

		if err := s.mailer.Send(ctx, build(u)); err != nil {
			if _, disabled := err.(email.ErrDisabled); !disabled {
				s.logger.Warn("security_email_failed", "user_id", userID, "err", err)
			}
		}
	}()
}
