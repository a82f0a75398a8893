package session

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRedisKeys(t *testing.T) {
	if got := redisKeySession("abc"); got != "session:abc" {
		t.Errorf("redisKeySession = %q", got)
	}
	if got := redisKeyRefresh("tok"); got != "refresh:tok" {
		t.Errorf("redisKeyRefresh = %q", got)
	}
	if got := redisKeyUserSessions("u1"); got != "user_sessions:u1" {
		t.Errorf("redisKeyUserSessions = %q", got)
	}
	if got := redisKeyBlacklist("j1"); got != "blacklist:j1" {
		t.Errorf("redisKeyBlacklist = %q", got)
	}
}

func TestSessionJSONFieldNames(t *testing.T) {
	sess := Session{
		ID:              "sid",
		UserID:          "uid",
		Email:           "doctor@allodoc.dev",
		OrganizationID:  "org",
		Roles:           []string{"doctor"},
		Permissions:     []string{"patients:read"},
		RefreshToken:    "tok",
		CreatedAt:       time.Now().UTC(),
		LastRefreshedAt: time.Now().UTC(),
		IP:              "10.0.0.1",
		UserAgent:       "test-agent",
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Stored sessions are shared across instances, so renaming a field
	// orphans every live login.
	for _, field := range []string{
		`"sessionId"`, `"userId"`, `"email"`, `"organizationId"`,
		`"roles"`, `"permissions"`, `"refreshToken"`,
		`"createdAt"`, `"lastRefreshedAt"`, `"ip"`, `"userAgent"`,
	} {
		if !strings.Contains(string(raw), field) {
			t.Errorf("session JSON missing field %s", field)
		}
	}

	var back Session
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != sess.ID || back.RefreshToken != sess.RefreshToken {
		t.Errorf("round-trip mismatch: %+v", back)
	}
}
