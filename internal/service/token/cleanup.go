package token

import (
	"context"
	"log/slog"
	"time"

	"github.com/allodoc/allodoc-backend/internal/store"
)

// Sweeper deletes expired refresh tokens and blacklist entries from
// Postgres. Redis keys expire on their own; only the durable mirror needs
// garbage collection.
type Sweeper struct {
	refresh   store.RefreshTokens
	blacklist store.Blacklist
	interval  time.Duration
	logger    *slog.Logger
}

func NewSweeper(st *store.Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		refresh:   st.RefreshTokens,
		blacklist: st.Blacklist,
		interval:  interval,
		logger:    logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	tokens, err := s.refresh.DeleteExpired(ctx)
	if err != nil {
		s.logger.Warn("sweep_refresh_tokens_failed", "err", err)
	}

	entries, err := s.blacklist.DeleteExpired(ctx)
	if err != nil {
		s.logger.Warn("sweep_blacklist_failed", "err", err)
	}

	if tokens > 0 || entries > 0 {
		s.logger.Info("token_sweep_complete", "refresh_tokens", tokens, "blacklist_entries", entries)
	}
}
