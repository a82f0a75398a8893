package middleware

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/allodoc/allodoc-backend/internal/service/token"
	jwttoken "github.com/allodoc/allodoc-backend/pkg/jwt"
)

func TestUnauthorizedFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"expired", jwttoken.ErrTokenExpired, "token has expired"},
		{"not yet valid", jwttoken.ErrTokenNotYetValid, "token is not valid yet"},
		{"malformed", jwttoken.ErrTokenMalformed, "token is malformed"},
		{"revoked", token.ErrTokenBlacklisted, "token has been revoked"},
		{"opaque", errors.New("signature mismatch"), "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe, ok := unauthorizedFor(tt.err).(*fiber.Error)
			if !ok {
				t.Fatal("not a fiber error")
			}
			if fe.Code != fiber.StatusUnauthorized {
				t.Errorf("status = %d, want 401", fe.Code)
			}
			if fe.Message != tt.want {
				t.Errorf("message = %q, want %q", fe.Message, tt.want)
			}
		})
	}
}
