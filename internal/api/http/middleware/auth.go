package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/allodoc/allodoc-backend/internal/service/token"
	"github.com/allodoc/allodoc-backend/internal/session"
	"github.com/allodoc/allodoc-backend/internal/store"
	"github.com/allodoc/allodoc-backend/pkg/authz"
	jwttoken "github.com/allodoc/allodoc-backend/pkg/jwt"
)

const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"

	LocalPrincipal = "auth.principal"
)

// AuthRequired validates a Bearer JWT access token and checks its session in
// Redis. A bearer header wins over the access_token cookie. On success the
// claims and a canonical principal land in Locals.
func AuthRequired(tokens token.Service, sessions session.Store, users store.Users) fiber.Handler {
	return func(c fiber.Ctx) error {
		raw := tokenFromRequest(c)
		if raw == "" {
			return fiber.ErrUnauthorized
		}

		claims, err := tokens.VerifyToken(c.Context(), raw)
		if err != nil {
			return unauthorizedFor(err)
		}

		if claims.SessionID != "" {
			sess, err := sessions.Get(c.Context(), claims.SessionID)
			if err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, "session expired or invalid")
			}
			if sess.UserID != claims.UserID() {
				return fiber.NewError(fiber.StatusUnauthorized, "session expired or invalid")
			}
		} else {
			// Session-less token (issued out of band). Fall back to an
			// account liveness check so deactivation still bites.
			u, err := users.GetByID(c.Context(), claims.UserID())
			if err != nil || !u.IsActive {
				return fiber.ErrUnauthorized
			}
		}

		c.Locals(jwttoken.CtxKeyClaims, claims)
		c.Locals(LocalPrincipal, authz.Principal{
			ID:             claims.UserID(),
			Email:          claims.Email,
			OrganizationID: claims.OrganizationID,
			Roles:          authz.RoleNames(claims.Roles),
			Permissions:    claims.Permissions,
		})

		return c.Next()
	}
}

// unauthorizedFor maps a verification failure to its client-visible reason.
// Expiry, not-yet-valid, malformed, and revoked each get a distinct message
// so clients can tell a refreshable token from a dead one; anything else
// stays a bare 401.
func unauthorizedFor(err error) error {
	switch {
	case errors.Is(err, jwttoken.ErrTokenExpired),
		errors.Is(err, jwttoken.ErrTokenNotYetValid),
		errors.Is(err, jwttoken.ErrTokenMalformed),
		errors.Is(err, token.ErrTokenBlacklisted):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	default:
		return fiber.ErrUnauthorized
	}
}

// tokenFromRequest prefers the Authorization header, then the access cookie.
func tokenFromRequest(c fiber.Ctx) string {
	if h := c.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(CookieAccessToken)
}

// PrincipalFromFiber retrieves the authenticated principal from Fiber locals.
func PrincipalFromFiber(c fiber.Ctx) (authz.Principal, bool) {
	v := c.Locals(LocalPrincipal)
	p, ok := v.(authz.Principal)
	return p, ok && p.ID != ""
}

// RequirePermission gates a route on one permission, honoring wildcards and
// the write-implies-read rule.
func RequirePermission(perm string) fiber.Handler {
	return func(c fiber.Ctx) error {
		p, ok := PrincipalFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		if p.IsSuperAdmin() || p.HasPermission(perm) {
			return c.Next()
		}
		return fiber.ErrForbidden
	}
}
