package authz

import (
	"strings"

	"github.com/allodoc/allodoc-backend/pkg/permission"
)

// Role names assignable to users. Roles beyond these are product-defined
// and only matter to the permission sets they carry.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
)

// Principal is the canonical identity shape. It is produced exactly once
// at the request boundary (or when loading a user from the directory) so
// downstream predicates never re-sniff role shapes.
type Principal struct {
	ID             string
	Email          string
	OrganizationID string
	Roles          []string
	Permissions    []string

	// OrganizationIDs lists organizations the principal is a member of
	// beyond the currently active one.
	OrganizationIDs []string
}

// RoleNames normalizes the loose role shapes that reach the boundary:
// bare strings, {name: ...} objects from decoded JSON, and mixed lists.
func RoleNames(v any) []string {
	var out []string
	appendName := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}

	switch roles := v.(type) {
	case nil:
	case []string:
		for _, r := range roles {
			appendName(r)
		}
	case []map[string]any:
		for _, r := range roles {
			if name, ok := r["name"].(string); ok {
				appendName(name)
			}
		}
	case []any:
		for _, r := range roles {
			switch rv := r.(type) {
			case string:
				appendName(rv)
			case map[string]any:
				if name, ok := rv["name"].(string); ok {
					appendName(name)
				}
			}
		}
	}
	return out
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of the roles.
func (p Principal) HasAnyRole(names ...string) bool {
	for _, n := range names {
		if p.HasRole(n) {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the principal is a platform super-admin.
func (p Principal) IsSuperAdmin() bool {
	return p.HasRole(RoleSuperAdmin)
}

// IsAdmin reports whether the principal administers at least its own
// organization. Super-admins are admins.
func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin) || p.IsSuperAdmin()
}

// HasPermission reports whether the principal's permission set satisfies
// required, honoring wildcard and write-implies-read semantics.
func (p Principal) HasPermission(required string) bool {
	return permission.GrantsAny(p.Permissions, required)
}

// memberOf reports whether orgID is the principal's active organization
// or appears in its membership list.
func (p Principal) memberOf(orgID string) bool {
	if orgID == "" {
		return false
	}
	if p.OrganizationID == orgID {
		return true
	}
	for _, id := range p.OrganizationIDs {
		if id == orgID {
			return true
		}
	}
	return false
}
