package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/allodoc/allodoc-backend/config"
	"github.com/allodoc/allodoc-backend/internal/events"
	"github.com/allodoc/allodoc-backend/internal/session"
	"github.com/allodoc/allodoc-backend/internal/store"
	jwttoken "github.com/allodoc/allodoc-backend/pkg/jwt"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeSessions struct {
	sessions  map[string]*session.Session
	refresh   map[string]string // token -> session id
	blacklist map[string]time.Time
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions:  make(map[string]*session.Session),
		refresh:   make(map[string]string),
		blacklist: make(map[string]time.Time),
	}
}

func (f *fakeSessions) Create(_ context.Context, s *session.Session) error {
	now := time.Now().UTC()
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.LastRefreshedAt = now
	cp := *s
	f.sessions[s.ID] = &cp
	f.refresh[s.RefreshToken] = s.ID
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) ResolveRefresh(_ context.Context, token string) (string, error) {
	id, ok := f.refresh[token]
	if !ok {
		return "", session.ErrRefreshNotFound
	}
	return id, nil
}

func (f *fakeSessions) Update(_ context.Context, s *session.Session) error {
	if _, ok := f.sessions[s.ID]; !ok {
		return session.ErrNotFound
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessions) Rotate(_ context.Context, oldToken, newToken string) (*session.Session, error) {
	id, ok := f.refresh[oldToken]
	if !ok {
		return nil, session.ErrRefreshNotFound
	}
	s, ok := f.sessions[id]
	if !ok {
		delete(f.refresh, oldToken)
		return nil, session.ErrRefreshNotFound
	}
	if s.RefreshToken != oldToken {
		return nil, session.ErrRefreshReplayed
	}
	s.RefreshToken = newToken
	s.LastRefreshedAt = time.Now().UTC()
	delete(f.refresh, oldToken)
	f.refresh[newToken] = id
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Invalidate(_ context.Context, id string) error {
	s, ok := f.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	delete(f.refresh, s.RefreshToken)
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) InvalidateAllForUser(_ context.Context, userID string) (int, error) {
	count := 0
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.refresh, s.RefreshToken)
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeSessions) ListForUser(_ context.Context, userID string) ([]session.Session, error) {
	var out []session.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessions) BlacklistJTI(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	f.blacklist[jti] = time.Now().Add(ttl)
	return nil
}

func (f *fakeSessions) IsJTIBlacklisted(_ context.Context, jti string) (bool, error) {
	exp, ok := f.blacklist[jti]
	return ok && time.Now().Before(exp), nil
}

type fakeUsers struct {
	byID map[string]*store.User
}

func (f *fakeUsers) Create(_ context.Context, u *store.User) error {
	u.ID = uuid.NewString()
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*store.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*store.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id string, at time.Time) error { return nil }

func (f *fakeUsers) UpdateOrganization(_ context.Context, id, orgID string) error {
	u, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.OrganizationID = orgID
	return nil
}

func (f *fakeUsers) OrganizationIDs(_ context.Context, id string) ([]string, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return []string{u.OrganizationID}, nil
}

type fakeRoles struct {
	perms map[string][]store.Role // userID -> roles
}

func (f *fakeRoles) ListForUser(_ context.Context, userID, _ string) ([]store.Role, error) {
	return f.perms[userID], nil
}

func (f *fakeRoles) AssignToUser(_ context.Context, _, _, _ string) error { return nil }

type fakeRefreshTokens struct {
	byHash map[string]*store.RefreshToken
}

func (f *fakeRefreshTokens) Create(_ context.Context, t *store.RefreshToken) error {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	f.byHash[t.TokenHash] = t
	return nil
}

func (f *fakeRefreshTokens) GetByHash(_ context.Context, hash string) (*store.RefreshToken, error) {
	t, ok := f.byHash[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeRefreshTokens) Revoke(_ context.Context, hash string) error {
	if t, ok := f.byHash[hash]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (f *fakeRefreshTokens) RevokeAllForUser(_ context.Context, userID string) (int, error) {
	count := 0
	now := time.Now()
	for _, t := range f.byHash {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			count++
		}
	}
	return count, nil
}

func (f *fakeRefreshTokens) DeleteExpired(_ context.Context) (int, error) { return 0, nil }

type userRevocation struct {
	revokedBefore time.Time
	expiresAt     time.Time
}

type fakeBlacklist struct {
	entries     map[string]*store.BlacklistEntry
	revocations map[string]userRevocation
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{
		entries:     make(map[string]*store.BlacklistEntry),
		revocations: make(map[string]userRevocation),
	}
}

func (f *fakeBlacklist) Add(_ context.Context, e *store.BlacklistEntry) error {
	f.entries[e.JTI] = e
	return nil
}

func (f *fakeBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	e, ok := f.entries[jti]
	return ok && time.Now().Before(e.ExpiresAt), nil
}

func (f *fakeBlacklist) AddAllForUser(_ context.Context, userID, _ string, expiresAt time.Time) error {
	f.revocations[userID] = userRevocation{revokedBefore: time.Now(), expiresAt: expiresAt}
	return nil
}

func (f *fakeBlacklist) ContainsForUser(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	r, ok := f.revocations[userID]
	if !ok {
		return false, nil
	}
	return r.revokedBefore.After(issuedAt) && time.Now().Before(r.expiresAt), nil
}

func (f *fakeBlacklist) DeleteExpired(_ context.Context) (int, error) { return 0, nil }

type nopPublisher struct{}

func (nopPublisher) Publish(string, events.SecurityEvent) {}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	svc      Service
	sessions *fakeSessions
	users    *fakeUsers
	refresh  *fakeRefreshTokens
	user     *store.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mgr, err := jwttoken.New(jwttoken.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "allodoc",
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}

	sessions := newFakeSessions()
	users := &fakeUsers{byID: make(map[string]*store.User)}
	refresh := &fakeRefreshTokens{byHash: make(map[string]*store.RefreshToken)}

	user := &store.User{
		Email:          "doctor@allodoc.dev",
		OrganizationID: "org-1",
		IsActive:       true,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	st := &store.Store{
		Users: users,
		Roles: &fakeRoles{perms: map[string][]store.Role{
			user.ID: {{Name: "doctor", Permissions: []string{"patients:read", "patients:write"}}},
		}},
		RefreshTokens: refresh,
		Blacklist:     newFakeBlacklist(),
	}

	cfg := &config.Config{}
	cfg.Authentication.JWT.RefreshTTLDays = 7

	return &harness{
		svc:      New(mgr, sessions, st, nopPublisher{}, cfg, nil),
		sessions: sessions,
		users:    users,
		refresh:  refresh,
		user:     user,
	}
}

func (h *harness) issue(t *testing.T) *TokenPair {
	t.Helper()
	pair, err := h.svc.GenerateTokens(context.Background(), h.user, "org-1",
		[]string{"doctor"}, []string{"patients:read", "patients:write"},
		SessionMeta{IP: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}
	return pair
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGenerateTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := h.issue(t)

	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.SessionID == "" {
		t.Fatalf("incomplete pair: %+v", pair)
	}

	claims, err := h.svc.VerifyToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.UserID() != h.user.ID {
		t.Errorf("subject = %q, want %q", claims.UserID(), h.user.ID)
	}
	if claims.SessionID != pair.SessionID {
		t.Errorf("sessionId = %q, want %q", claims.SessionID, pair.SessionID)
	}
	if claims.OrganizationID != "org-1" {
		t.Errorf("organizationId = %q", claims.OrganizationID)
	}

	// Session anchors the refresh token.
	sess, err := h.sessions.Get(ctx, pair.SessionID)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if sess.RefreshToken != pair.RefreshToken {
		t.Error("session holds a different refresh token")
	}

	// Durable mirror exists.
	if _, err := h.refresh.GetByHash(ctx, hashToken(pair.RefreshToken)); err != nil {
		t.Errorf("durable mirror missing: %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := h.issue(t)

	rotated, err := h.svc.RefreshAccessToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if rotated.SessionID != pair.SessionID {
		t.Errorf("rotation changed session id: %q -> %q", pair.SessionID, rotated.SessionID)
	}

	// The spent token must not work again. Its durable record is revoked,
	// so the fallback path rejects it too.
	if _, err := h.svc.RefreshAccessToken(ctx, pair.RefreshToken); err != ErrRefreshInvalid {
		t.Errorf("replayed refresh: err = %v, want ErrRefreshInvalid", err)
	}

	// The rotated token keeps working.
	if _, err := h.svc.RefreshAccessToken(ctx, rotated.RefreshToken); err != nil {
		t.Errorf("rotated token refresh: %v", err)
	}
}

func TestRefreshFromDurableFallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := h.issue(t)

	// Simulate a Redis flush: the session vanishes but the durable record
	// survives.
	h.sessions.sessions = make(map[string]*session.Session)
	h.sessions.refresh = make(map[string]string)

	rebuilt, err := h.svc.RefreshAccessToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("durable fallback: %v", err)
	}
	if rebuilt.SessionID == pair.SessionID {
		t.Error("expected a fresh session id after rebuild")
	}

	claims, err := h.svc.VerifyToken(ctx, rebuilt.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken after rebuild: %v", err)
	}
	if claims.OrganizationID != "org-1" {
		t.Errorf("rebuilt organizationId = %q", claims.OrganizationID)
	}
	if len(claims.Permissions) == 0 {
		t.Error("rebuilt claims carry no permissions")
	}
}

func TestRefreshFromDurableRejectsRevoked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := h.issue(t)

	h.sessions.sessions = make(map[string]*session.Session)
	h.sessions.refresh = make(map[string]string)
	if err := h.refresh.Revoke(ctx, hashToken(pair.RefreshToken)); err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.RefreshAccessToken(ctx, pair.RefreshToken); err != ErrRefreshInvalid {
		t.Errorf("err = %v, want ErrRefreshInvalid", err)
	}
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := h.issue(t)

	h.sessions.sessions = make(map[string]*session.Session)
	h.sessions.refresh = make(map[string]string)
	h.user.IsActive = false

	if _, err := h.svc.RefreshAccessToken(ctx, pair.RefreshToken); err != ErrUserInactive {
		t.Errorf("err = %v, want ErrUserInactive", err)
	}
}

func TestBlacklistToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := h.issue(t)

	claims, err := h.svc.VerifyToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}

	if err := h.svc.BlacklistToken(ctx, claims, "logout"); err != nil {
		t.Fatalf("BlacklistToken: %v", err)
	}

	if _, err := h.svc.VerifyToken(ctx, pair.AccessToken); err != ErrTokenBlacklisted {
		t.Errorf("err = %v, want ErrTokenBlacklisted", err)
	}

	blacklisted, err := h.svc.IsTokenBlacklisted(ctx, claims.JTI())
	if err != nil || !blacklisted {
		t.Errorf("IsTokenBlacklisted = %v, %v", blacklisted, err)
	}
}

func TestRevokeRefreshToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair := h.issue(t)

	if err := h.svc.RevokeRefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("RevokeRefreshToken: %v", err)
	}

	if _, err := h.sessions.Get(ctx, pair.SessionID); err != session.ErrNotFound {
		t.Error("session survived revocation")
	}
	if _, err := h.svc.RefreshAccessToken(ctx, pair.RefreshToken); err != ErrRefreshInvalid {
		t.Errorf("err = %v, want ErrRefreshInvalid", err)
	}
}

func TestRevokeAllUserTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.issue(t)
	second := h.issue(t)

	count, err := h.svc.RevokeAllUserTokens(ctx, h.user.ID, "password_change")
	if err != nil {
		t.Fatalf("RevokeAllUserTokens: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	for _, pair := range []*TokenPair{first, second} {
		if _, err := h.svc.RefreshAccessToken(ctx, pair.RefreshToken); err != ErrRefreshInvalid {
			t.Errorf("err = %v, want ErrRefreshInvalid", err)
		}
	}

	// Access tokens minted before the revocation are covered too, even
	// though their jtis were never blacklisted individually.
	for _, pair := range []*TokenPair{first, second} {
		if _, err := h.svc.VerifyToken(ctx, pair.AccessToken); !errors.Is(err, ErrTokenBlacklisted) {
			t.Errorf("pre-revocation access token: err = %v, want ErrTokenBlacklisted", err)
		}
	}
}

func TestVerifyTokenFailureClasses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	secret := []byte("0123456789abcdef0123456789abcdef")
	now := time.Now()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "allodoc",
		Subject:   h.user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(now.Add(-30 * time.Minute)),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	if _, err := h.svc.VerifyToken(ctx, expired); !errors.Is(err, jwttoken.ErrTokenExpired) {
		t.Errorf("expired token: err = %v, want ErrTokenExpired", err)
	}

	if _, err := h.svc.VerifyToken(ctx, "not-a-jwt"); !errors.Is(err, jwttoken.ErrTokenMalformed) {
		t.Errorf("malformed token: err = %v, want ErrTokenMalformed", err)
	}

	// A bad signature stays opaque.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "allodoc",
		Subject:   h.user.ID,
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("ffffffffffffffffffffffffffffffff"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	if _, err := h.svc.VerifyToken(ctx, forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged token: err = %v, want ErrInvalidToken", err)
	}
}
