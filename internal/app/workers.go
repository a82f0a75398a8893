package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/allodoc/allodoc-backend/config"
	"github.com/allodoc/allodoc-backend/internal/events"
	"github.com/allodoc/allodoc-backend/internal/service/token"
	"github.com/allodoc/allodoc-backend/internal/store"
)

// WorkerModule registers all background workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg *config.Config
	NC  *nats.Conn
	St  *store.Store
}

func RegisterWorkers(p WorkerParams) {
	sweepCtx, cancelSweep := context.WithCancel(context.Background())

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			startAuditWorker(p.NC)
			startTokenSweeper(sweepCtx, p.St, p.Cfg)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancelSweep()
			// Drain handled by ProvideNatsClient
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// audit_worker
// ---------------------------------------------------------------------------

// startAuditWorker writes every auth security event to the structured log.
// The subjects end with the user id, so a wildcard catches all of them.
func startAuditWorker(nc *nats.Conn) {
	if nc == nil {
		slog.Info("audit_worker: NATS disabled, skipping")
		return
	}

	_, err := nc.Subscribe("allodoc.auth.>", func(msg *nats.Msg) {
		var ev events.SecurityEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("audit_worker: bad event payload", "subject", msg.Subject, "err", err)
			return
		}

		parts := strings.Split(msg.Subject, ".")
		event := "unknown"
		if len(parts) >= 3 {
			event = parts[2]
		}

		level := slog.LevelInfo
		if event == "login_failed" || event == "refresh_replay" {
			level = slog.LevelWarn
		}

		slog.Default().Log(context.Background(), level, "security_event",
			"event", event,
			"user_id", ev.UserID,
			"organization_id", ev.OrganizationID,
			"session_id", ev.SessionID,
			"ip", ev.IP,
			"reason", ev.Reason,
			"at", ev.At,
		)
	})
	if err != nil {
		slog.Error("audit_worker: subscribe failed", "err", err)
		return
	}

	slog.Info("audit_worker: started")
}

// ---------------------------------------------------------------------------
// token_sweeper
// ---------------------------------------------------------------------------

func startTokenSweeper(ctx context.Context, st *store.Store, cfg *config.Config) {
	interval := time.Duration(cfg.Authentication.CleanupIntervalHours) * time.Hour
	sweeper := token.NewSweeper(st, interval, slog.Default())
	go sweeper.Run(ctx)
}
