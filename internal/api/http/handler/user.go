package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/allodoc/allodoc-backend/internal/api/http/middleware"
	"github.com/allodoc/allodoc-backend/internal/store"
)

type UserHandler struct {
	users store.Users
}

func NewUserHandler(users store.Users) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/v1/users/me
func (h *UserHandler) Me(c fiber.Ctx) error {
	principal, valid := middleware.PrincipalFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	u, err := h.users.GetByID(c.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "user not found")
		}
		return internalError(c)
	}

	return ok(c, fiber.Map{
		"id":             u.ID,
		"email":          u.Email,
		"firstName":      u.FirstName,
		"lastName":       u.LastName,
		"organizationId": principal.OrganizationID,
		"roles":          principal.Roles,
		"permissions":    principal.Permissions,
		"lastLoginAt":    u.LastLoginAt,
	})
}
