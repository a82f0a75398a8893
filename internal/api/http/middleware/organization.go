package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/allodoc/allodoc-backend/internal/store"
	"github.com/allodoc/allodoc-backend/pkg/authz"
)

const (
	HeaderOrganizationID = "X-Organization-Id"
	LocalOrganizationID  = "organization_id"
)

// OrganizationScope resolves which organization a request targets and
// verifies the principal may act in it. Resolution order: header, route
// param, request body, query, then the principal's own organization.
// Super-admins pass for any organization.
func OrganizationScope(users store.Users, authzSvc *authz.Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		p, ok := PrincipalFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		orgID := c.Get(HeaderOrganizationID)
		if orgID == "" {
			orgID = c.Params("organizationId")
		}
		if orgID == "" {
			orgID = organizationIDFromBody(c)
		}
		if orgID == "" {
			orgID = c.Query("organizationId")
		}
		if orgID == "" {
			orgID = p.OrganizationID
		}
		if orgID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "organization id is required")
		}

		if orgID != p.OrganizationID && !p.IsSuperAdmin() {
			// The token only proves the active organization; cross-org
			// requests need a membership lookup.
			ids, err := users.OrganizationIDs(c.Context(), p.ID)
			if err != nil {
				return fiber.ErrForbidden
			}
			p.OrganizationIDs = ids
		}

		if !authzSvc.CanAccessOrganization(p, orgID) {
			return fiber.ErrForbidden
		}

		c.Locals(LocalOrganizationID, orgID)
		c.Locals(LocalPrincipal, p)
		return c.Next()
	}
}

// organizationIDFromBody peeks at a JSON body for an organizationId field.
// Bind reads from the buffered request body, so the handler can still bind
// the same payload afterwards.
func organizationIDFromBody(c fiber.Ctx) string {
	if len(c.Body()) == 0 {
		return ""
	}
	var body struct {
		OrganizationID string `json:"organizationId"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return ""
	}
	return body.OrganizationID
}

// OrganizationIDFromFiber retrieves the resolved organization scope.
func OrganizationIDFromFiber(c fiber.Ctx) (string, bool) {
	v := c.Locals(LocalOrganizationID)
	s, ok := v.(string)
	return s, ok && s != ""
}
