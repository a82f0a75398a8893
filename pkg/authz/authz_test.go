package authz

import (
	"log/slog"
	"testing"
)

func TestRoleNames(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, nil},
		{"bare strings", []string{"admin", "doctor"}, []string{"admin", "doctor"}},
		{"name objects", []map[string]any{{"name": "admin"}, {"name": "doctor"}}, []string{"admin", "doctor"}},
		{
			"mixed decoded json",
			[]any{"admin", map[string]any{"name": "doctor"}, map[string]any{"id": 3}, 42},
			[]string{"admin", "doctor"},
		},
		{"blank entries skipped", []string{"", "  ", "nurse"}, []string{"nurse"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoleNames(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("RoleNames() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("RoleNames()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRolePredicates(t *testing.T) {
	super := Principal{ID: "u1", Roles: []string{RoleSuperAdmin}}
	admin := Principal{ID: "u2", Roles: []string{RoleAdmin}}
	doctor := Principal{ID: "u3", Roles: []string{"doctor"}}

	if !super.IsSuperAdmin() || !super.IsAdmin() {
		t.Error("super-admin predicates failed")
	}
	if admin.IsSuperAdmin() {
		t.Error("admin reported as super-admin")
	}
	if !admin.IsAdmin() {
		t.Error("admin not reported as admin")
	}
	if doctor.IsAdmin() {
		t.Error("doctor reported as admin")
	}
	if !doctor.HasRole("doctor") || doctor.HasRole("nurse") {
		t.Error("HasRole failed")
	}
	if !doctor.HasAnyRole("nurse", "doctor") {
		t.Error("HasAnyRole failed")
	}
	if doctor.HasAnyRole("nurse", "receptionist") {
		t.Error("HasAnyRole matched absent roles")
	}
	if !doctor.HasRole("DOCTOR") {
		t.Error("role lookup should be case-insensitive")
	}
}

func TestHasPermission(t *testing.T) {
	p := Principal{Permissions: []string{"patients:write", "dashboard:read"}}

	if !p.HasPermission("patients:read") {
		t.Error("write should imply read")
	}
	if p.HasPermission("users:delete") {
		t.Error("unrelated permission granted")
	}

	all := Principal{Permissions: []string{"*"}}
	if !all.HasPermission("audit:export") {
		t.Error("universal wildcard not honored")
	}
}

func TestCanAccessOrganization(t *testing.T) {
	svc := New(slog.Default())

	super := Principal{ID: "u1", Roles: []string{RoleSuperAdmin}, OrganizationID: "org-1"}
	member := Principal{ID: "u2", Roles: []string{"doctor"}, OrganizationID: "org-1", OrganizationIDs: []string{"org-2"}}

	if !svc.CanAccessOrganization(super, "org-random") {
		t.Error("super-admin denied arbitrary organization")
	}
	if !svc.CanAccessOrganization(member, "org-1") {
		t.Error("member denied own organization")
	}
	if !svc.CanAccessOrganization(member, "org-2") {
		t.Error("member denied organization from membership list")
	}
	if svc.CanAccessOrganization(member, "org-3") {
		t.Error("member granted unrelated organization")
	}
	if svc.CanAccessOrganization(member, "") {
		t.Error("empty organization id granted")
	}
}

func TestCanManageUsers(t *testing.T) {
	svc := New(slog.Default())

	super := Principal{ID: "u1", Roles: []string{RoleSuperAdmin}}
	admin := Principal{ID: "u2", Roles: []string{RoleAdmin}, OrganizationID: "org-1"}
	doctor := Principal{ID: "u3", Roles: []string{"doctor"}, OrganizationID: "org-1"}

	if !svc.CanManageUsers(super, "org-anything") {
		t.Error("super-admin denied")
	}
	if !svc.CanManageUsers(admin, "") {
		t.Error("admin denied with no target")
	}
	if !svc.CanManageUsers(admin, "org-1") {
		t.Error("admin denied own organization")
	}
	if svc.CanManageUsers(admin, "org-2") {
		t.Error("admin granted foreign organization")
	}
	if svc.CanManageUsers(doctor, "org-1") {
		t.Error("non-admin granted")
	}
}

func TestCanManageOrganizations(t *testing.T) {
	svc := New(slog.Default())

	if !svc.CanManageOrganizations(Principal{ID: "u1", Roles: []string{RoleSuperAdmin}}) {
		t.Error("super-admin denied")
	}
	if svc.CanManageOrganizations(Principal{ID: "u2", Roles: []string{RoleAdmin}}) {
		t.Error("admin granted")
	}
}
