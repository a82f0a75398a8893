package jwttoken

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(Config{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "allodoc",
		Audience:  "allodoc-api",
		AccessTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New(Config{Secret: []byte("too-short"), Issuer: "allodoc"})
	if err == nil {
		t.Fatal("New() expected error for short secret, got nil")
	}
}

func TestNewRequiresIssuer(t *testing.T) {
	_, err := New(Config{Secret: []byte("0123456789abcdef0123456789abcdef")})
	if err == nil {
		t.Fatal("New() expected error for missing issuer, got nil")
	}
}

func TestIssueAndVerify(t *testing.T) {
	m := testManager(t)

	signed, claims, err := m.Issue(IssueParams{
		UserID:         "user-1",
		Email:          "doctor@allodoc.dev",
		OrganizationID: "org-1",
		Roles:          []string{"doctor"},
		Permissions:    []string{"patients:read", "patients:write"},
		SessionID:      "sess-1",
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if claims.ID == "" {
		t.Error("Issue() claims.ID (jti) is empty")
	}

	got, err := m.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.Subject != "user-1" || got.Email != "doctor@allodoc.dev" {
		t.Errorf("Verify() subject/email = %q/%q", got.Subject, got.Email)
	}
	if got.OrganizationID != "org-1" || got.SessionID != "sess-1" {
		t.Errorf("Verify() org/session = %q/%q", got.OrganizationID, got.SessionID)
	}
	if got.ID != claims.ID {
		t.Errorf("Verify() jti = %q, want %q", got.ID, claims.ID)
	}
}

func TestJTIUniqueAcrossIssues(t *testing.T) {
	m := testManager(t)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		_, claims, err := m.Issue(IssueParams{UserID: "user-1"})
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, dup := seen[claims.ID]; dup {
			t.Fatalf("duplicate jti %q", claims.ID)
		}
		seen[claims.ID] = struct{}{}
	}
}

func TestVerifyExpired(t *testing.T) {
	m := testManager(t)
	// New() replaces non-positive TTLs with the default, so backdate directly.
	m.cfg.AccessTTL = -time.Minute

	signed, _, err := m.Issue(IssueParams{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = m.Verify(signed)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	m := testManager(t)

	for _, tok := range []string{"", "garbage", "a.b"} {
		if _, err := m.Verify(tok); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("Verify(%q) error = %v, want ErrTokenMalformed", tok, err)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m := testManager(t)
	signed, _, err := m.Issue(IssueParams{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other, _ := New(Config{
		Secret: []byte(strings.Repeat("x", 32)),
		Issuer: "allodoc",
	})
	if _, err := other.Verify(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	m := testManager(t)
	signed, _, err := m.Issue(IssueParams{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tampered := signed[:len(signed)-2] + "xx"
	if _, err := m.Verify(tampered); err == nil {
		t.Error("Verify() accepted a tampered token")
	}
}
