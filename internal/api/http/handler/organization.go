package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/allodoc/allodoc-backend/internal/api/http/middleware"
	"github.com/allodoc/allodoc-backend/internal/store"
)

type OrganizationHandler struct {
	orgs store.Organizations
}

func NewOrganizationHandler(orgs store.Organizations) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs}
}

// GET /api/v1/organizations/:organizationId
func (h *OrganizationHandler) Get(c fiber.Ctx) error {
	orgID, valid := middleware.OrganizationIDFromFiber(c)
	if !valid {
		return badRequest(c, "organization id is required")
	}

	org, err := h.orgs.GetByID(c.Context(), orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "organization not found")
		}
		return internalError(c)
	}

	return ok(c, fiber.Map{
		"id":        org.ID,
		"name":      org.Name,
		"slug":      org.Slug,
		"isActive":  org.IsActive,
		"createdAt": org.CreatedAt,
	})
}
