package password

import (
	"strings"
	"testing"
)

// Tests hash with a low cost to keep the suite fast; production code
// always goes through DefaultCost.
const testCost = 4

func TestHashAndVerify(t *testing.T) {
	hash, err := HashWithCost("mysecretpassword", testCost)
	if err != nil {
		t.Fatalf("HashWithCost() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("HashWithCost() not a bcrypt hash: %s", hash)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  error
	}{
		{"correct password", hash, "mysecretpassword", nil},
		{"wrong password", hash, "wrongpassword", ErrMismatch},
		{"invalid hash format", "notahash", "mysecretpassword", ErrInvalidHash},
		{"empty password against valid hash", hash, "", ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Verify(tt.hash, tt.password); err != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	if _, err := HashWithCost("", testCost); err == nil {
		t.Error("HashWithCost(\"\") expected error, got nil")
	}
}

func TestHashUniqueness(t *testing.T) {
	hash1, _ := HashWithCost("samepassword", testCost)
	hash2, _ := HashWithCost("samepassword", testCost)

	if hash1 == hash2 {
		t.Error("HashWithCost() should produce unique hashes for same password (different salts)")
	}
	if err := Verify(hash1, "samepassword"); err != nil {
		t.Errorf("hash1 verification failed: %v", err)
	}
	if err := Verify(hash2, "samepassword"); err != nil {
		t.Errorf("hash2 verification failed: %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	low, _ := HashWithCost("testpassword", testCost)
	if !NeedsRehash(low) {
		t.Error("NeedsRehash() = false for below-default cost, want true")
	}
	if !NeedsRehash("garbage") {
		t.Error("NeedsRehash() = false for invalid hash, want true")
	}
}

func TestMatch(t *testing.T) {
	hash, _ := HashWithCost("testpassword", testCost)

	if !Match(hash, "testpassword") {
		t.Error("Match() = false, want true for correct password")
	}
	if Match(hash, "wrongpassword") {
		t.Error("Match() = true, want false for wrong password")
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"default length (0)", 0, 16},
		{"custom length 8", 8, 8},
		{"custom length 32", 32, 32},
		{"negative length", -5, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.length); len(got) != tt.want {
				t.Errorf("Generate(%d) length = %d, want %d", tt.length, len(got), tt.want)
			}
		})
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p := Generate(16)
		if seen[p] {
			t.Error("Generate() produced duplicate password")
		}
		seen[p] = true
	}
}
