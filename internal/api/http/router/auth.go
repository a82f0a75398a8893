package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/allodoc/allodoc-backend/internal/api/http/handler"
	"github.com/allodoc/allodoc-backend/internal/api/http/middleware"
)

func (r *Router) registerAuthRoutes(api fiber.Router, h *handler.AuthHandler, authRequired fiber.Handler) {
	limits := r.p.Cfg.Authentication.RateLimits

	group := api.Group("/auth")
	group.Post("/register", h.Register, middleware.RouteLimiter(r.p.Redis, limits.RegisterPerMinute))
	group.Post("/login", h.Login, middleware.RouteLimiter(r.p.Redis, limits.LoginPerMinute))
	group.Post("/refresh", h.Refresh, middleware.RouteLimiter(r.p.Redis, limits.RefreshPerMinute))
	group.Post("/logout", h.Logout, authRequired)
	group.Post("/logout-all", h.LogoutAll, authRequired)
	group.Get("/sessions", h.Sessions, authRequired)
	group.Delete("/sessions/:sessionId", h.TerminateSession, authRequired)
	group.Patch("/change-password", h.ChangePassword,
		authRequired, middleware.RouteLimiter(r.p.Redis, limits.ChangePasswordPerMinute))
	group.Post("/switch-organization/:organizationId", h.SwitchOrganization, authRequired)
}
