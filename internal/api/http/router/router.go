package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/allodoc/allodoc-backend/config"
	"github.com/allodoc/allodoc-backend/internal/api/http/handler"
	"github.com/allodoc/allodoc-backend/internal/api/http/middleware"
	"github.com/allodoc/allodoc-backend/internal/service/auth"
	"github.com/allodoc/allodoc-backend/internal/service/token"
	"github.com/allodoc/allodoc-backend/internal/session"
	"github.com/allodoc/allodoc-backend/internal/store"
	"github.com/allodoc/allodoc-backend/pkg/authz"
	"github.com/allodoc/allodoc-backend/pkg/permission"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg      *config.Config
	Redis    *redis.Client
	Store    *store.Store
	AuthSvc  auth.Service
	TokenSvc token.Service
	Sessions session.Store
	Authz    *authz.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.AuthRequired(r.p.TokenSvc, r.p.Sessions, r.p.Store.Users)
	orgScope := middleware.OrganizationScope(r.p.Store.Users, r.p.Authz)

	// 3. Initialize Handlers
	authH := handler.NewAuthHandler(r.p.AuthSvc, r.p.Cfg)
	userH := handler.NewUserHandler(r.p.Store.Users)
	orgH := handler.NewOrganizationHandler(r.p.Store.Organizations)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerAuthRoutes(api, authH, authRequired)
	r.registerUserRoutes(api, userH, authRequired)
	r.registerOrganizationRoutes(api, orgH, authRequired, orgScope)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			return r.p.Redis.Ping(ctx).Err() == nil
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}

func (r *Router) registerUserRoutes(api fiber.Router, h *handler.UserHandler, authRequired fiber.Handler) {
	group := api.Group("/users")
	group.Get("/me", h.Me, authRequired)
}

func (r *Router) registerOrganizationRoutes(api fiber.Router, h *handler.OrganizationHandler, authRequired, orgScope fiber.Handler) {
	readOrg := middleware.RequirePermission(
		string(permission.ResourceOrganization) + ":" + string(permission.ActionRead))

	group := api.Group("/organizations")
	group.Get("/:organizationId", h.Get, authRequired, orgScope, readOrg)
}
