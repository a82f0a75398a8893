package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/allodoc/allodoc-backend/internal/store"
)

// RoleRepository handles role and permission data operations
type RoleRepository struct {
	pool *pgxpool.Pool
}

// ListForUser returns the user's roles within one organization, each with
// its permissions aggregated. Roles with no permission rows still appear.
func (r *RoleRepository) ListForUser(ctx context.Context, userID, organizationID string) ([]store.Role, error) {
	query := `
		SELECT r.id, r.name, r.description,
		       COALESCE(array_agg(rp.permission) FILTER (WHERE rp.permission IS NOT NULL), '{}')
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE ur.user_id = $1 AND ur.organization_id = $2
		GROUP BY r.id, r.name, r.description
		ORDER BY r.name
	`

	rows, err := r.pool.Query(ctx, query, userID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()

	var roles []store.Role
	for rows.Next() {
		var role store.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) AssignToUser(ctx context.Context, userID, organizationID, roleName string) error {
	query := `
		INSERT INTO user_roles (user_id, organization_id, role_id)
		SELECT $1, $2, id FROM roles WHERE name = $3
		ON CONFLICT DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, userID, organizationID, roleName)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the role name does not exist or the assignment already
		// exists. Distinguish the first case, it is a caller bug.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM roles WHERE name = $1)`, roleName).Scan(&exists); err != nil {
			return fmt.Errorf("check role exists: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}
	}
	return nil
}
