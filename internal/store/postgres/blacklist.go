package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/allodoc/allodoc-backend/internal/store"
)

// BlacklistRepository mirrors revoked access-token jtis durably. Redis is
// the fast path; these rows answer after a Redis flush and feed the sweep.
type BlacklistRepository struct {
	pool *pgxpool.Pool
}

func (r *BlacklistRepository) Add(ctx context.Context, e *store.BlacklistEntry) error {
	query := `
		INSERT INTO token_blacklist (jti, user_id, reason, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (jti) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, e.JTI, e.UserID, e.Reason, e.ExpiresAt); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (r *BlacklistRepository) Contains(ctx context.Context, jti string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM token_blacklist WHERE jti = $1 AND expires_at > now()
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return exists, nil
}

// AddAllForUser records a user-wide revocation: every access token issued
// before now is considered revoked, without enumerating jtis.
func (r *BlacklistRepository) AddAllForUser(ctx context.Context, userID, reason string, expiresAt time.Time) error {
	query := `
		INSERT INTO user_token_revocations (user_id, revoked_before, reason, expires_at)
		VALUES ($1, now(), $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET revoked_before = now(), reason = EXCLUDED.reason, expires_at = EXCLUDED.expires_at
	`

	if _, err := r.pool.Exec(ctx, query, userID, reason, expiresAt); err != nil {
		return fmt.Errorf("record user token revocation: %w", err)
	}
	return nil
}

// ContainsForUser reports whether a user-wide revocation covers a token
// issued at the given time.
func (r *BlacklistRepository) ContainsForUser(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM user_token_revocations
			WHERE user_id = $1 AND revoked_before > $2 AND expires_at > now()
		)
	`

	var covered bool
	if err := r.pool.QueryRow(ctx, query, userID, issuedAt).Scan(&covered); err != nil {
		return false, fmt.Errorf("check user token revocation: %w", err)
	}
	return covered, nil
}

func (r *BlacklistRepository) DeleteExpired(ctx context.Context) (int, error) {
	total := 0

	tag, err := r.pool.Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired blacklist entries: %w", err)
	}
	total += int(tag.RowsAffected())

	tag, err = r.pool.Exec(ctx, `DELETE FROM user_token_revocations WHERE expires_at < now()`)
	if err != nil {
		return total, fmt.Errorf("delete expired user revocations: %w", err)
	}
	total += int(tag.RowsAffected())

	return total, nil
}
