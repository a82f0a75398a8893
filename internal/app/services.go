package app

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/allodoc/allodoc-backend/config"
	"github.com/allodoc/allodoc-backend/internal/events"
	"github.com/allodoc/allodoc-backend/internal/service/auth"
	"github.com/allodoc/allodoc-backend/internal/service/token"
	"github.com/allodoc/allodoc-backend/internal/session"
	"github.com/allodoc/allodoc-backend/internal/store"
	"github.com/allodoc/allodoc-backend/pkg/authz"
	"github.com/allodoc/allodoc-backend/pkg/email"
	jwttoken "github.com/allodoc/allodoc-backend/pkg/jwt"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideEventPublisher,
		ProvideAuthz,
		ProvideTokenService,
		ProvideAuthService,
	),
)

func ProvideEventPublisher(nc *nats.Conn) events.Publisher {
	return events.NewNatsPublisher(nc, slog.Default())
}

func ProvideAuthz() *authz.Service {
	return authz.New(slog.Default())
}

func ProvideTokenService(
	jwtManager *jwttoken.Manager,
	sessions session.Store,
	st *store.Store,
	pub events.Publisher,
	cfg *config.Config,
) token.Service {
	return token.New(jwtManager, sessions, st, pub, cfg, slog.Default())
}

func ProvideAuthService(
	st *store.Store,
	sessions session.Store,
	tokens token.Service,
	jwtManager *jwttoken.Manager,
	authzSvc *authz.Service,
	rdb *redis.Client,
	pub events.Publisher,
	mailer *email.Client,
	cfg *config.Config,
) auth.Service {
	return auth.New(st, sessions, tokens, jwtManager, authzSvc, rdb, pub, mailer, cfg, slog.Default())
}
