// Package postgres implements the store contracts on pgx.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/allodoc/allodoc-backend/internal/store"
)

// New wires all repositories onto one connection pool.
func New(pool *pgxpool.Pool) *store.Store {
	return &store.Store{
		Users:         &UserRepository{pool: pool},
		Organizations: &OrganizationRepository{pool: pool},
		Roles:         &RoleRepository{pool: pool},
		RefreshTokens: &RefreshTokenRepository{pool: pool},
		Blacklist:     &BlacklistRepository{pool: pool},
	}
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
