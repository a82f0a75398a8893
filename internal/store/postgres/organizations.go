package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/allodoc/allodoc-backend/internal/store"
)

// OrganizationRepository handles organization data operations
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

func (r *OrganizationRepository) Create(ctx context.Context, o *store.Organization) error {
	query := `
		INSERT INTO organizations (name, slug, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, o.Name, o.Slug, o.IsActive).
		Scan(&o.ID, &o.CreatedAt)

	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*store.Organization, error) {
	query := `
		SELECT id, name, slug, is_active, created_at
		FROM organizations
		WHERE id = $1
	`

	o := &store.Organization{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.Name,
		&o.Slug,
		&o.IsActive,
		&o.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return o, nil
}

func (r *OrganizationRepository) AddMember(ctx context.Context, organizationID, userID string) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, organizationID, userID); err != nil {
		return fmt.Errorf("add organization member: %w", err)
	}
	return nil
}
