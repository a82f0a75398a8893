package jwttoken

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/allodoc/allodoc-backend/config"
)

const CtxKeyClaims = "auth.claims"

// ClaimsFromFiber retrieves the verified claims stored by the auth middleware.
func ClaimsFromFiber(c fiber.Ctx) (*Claims, bool) {
	v := c.Locals(CtxKeyClaims)
	if v == nil {
		return nil, false
	}
	cl, ok := v.(*Claims)
	return cl, ok
}

// NewManagerFromConfig builds a Manager from central config.
func NewManagerFromConfig(cfg *config.Config) (*Manager, error) {
	j := cfg.Authentication.JWT

	accessTTL := time.Duration(j.AccessTTLMinutes) * time.Minute

	return New(Config{
		Secret:    []byte(j.Secret),
		Issuer:    j.Issuer,
		Audience:  j.Audience,
		AccessTTL: accessTTL,
	})
}
