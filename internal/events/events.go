// Package events publishes security events onto NATS so auxiliary workers
// (notification emails, audit trails) stay out of the request path.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects follow allodoc.auth.<event>.<userID>.
const (
	SubjectLogin              = "allodoc.auth.login"
	SubjectLoginFailed        = "allodoc.auth.login_failed"
	SubjectRegister           = "allodoc.auth.register"
	SubjectPasswordChanged    = "allodoc.auth.password_changed"
	SubjectSessionsRevoked    = "allodoc.auth.sessions_revoked"
	SubjectRefreshReplay      = "allodoc.auth.refresh_replay"
	SubjectOrganizationSwitch = "allodoc.auth.org_switch"
)

// SecurityEvent is the payload carried on every auth subject.
type SecurityEvent struct {
	UserID         string    `json:"userId"`
	Email          string    `json:"email,omitempty"`
	OrganizationID string    `json:"organizationId,omitempty"`
	SessionID      string    `json:"sessionId,omitempty"`
	IP             string    `json:"ip,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	At             time.Time `json:"at"`
}

// Publisher emits security events. A nil *NatsPublisher is a valid no-op,
// so callers never need to branch on whether NATS is configured.
type Publisher interface {
	Publish(subject string, ev SecurityEvent)
}

type NatsPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func NewNatsPublisher(nc *nats.Conn, logger *slog.Logger) *NatsPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NatsPublisher{nc: nc, logger: logger}
}

// Publish is fire-and-forget. Event loss is acceptable; blocking a login on
// the message bus is not.
func (p *NatsPublisher) Publish(subject string, ev SecurityEvent) {
	if p == nil || p.nc == nil {
		return
	}

	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("event_marshal_failed", "subject", subject, "err", err)
		return
	}

	full := fmt.Sprintf("%s.%s", subject, ev.UserID)
	if err := p.nc.Publish(full, data); err != nil {
		p.logger.Warn("event_publish_failed", "subject", full, "err", err)
	}
}
