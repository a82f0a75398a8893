package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/allodoc/allodoc-backend/internal/store"
)

// RefreshTokenRepository handles durable refresh token records
type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *store.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, session_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		t.UserID,
		t.TokenHash,
		t.SessionID,
		t.ExpiresAt,
	).Scan(&t.ID, &t.CreatedAt)

	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, session_id, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	t := &store.RefreshToken{}
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.SessionID,
		&t.ExpiresAt,
		&t.RevokedAt,
		&t.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return t, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`

	if _, err := r.pool.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpired removes tokens past their expiry. Revoked rows are kept
// until expiry so replay attempts remain observable.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < now()`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
