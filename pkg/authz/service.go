package authz

import "log/slog"

// Service centralizes the organization-scoped access predicates. It is
// pure logic over an already-resolved Principal — no store or network
// access — but keeps a logger so privileged grants leave an audit trail.
type Service struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// CanAccessOrganization reports whether the principal may act within
// the given organization. Super-admins always may; any access that
// would otherwise have been denied is audit-logged.
func (s *Service) CanAccessOrganization(p Principal, organizationID string) bool {
	if p.memberOf(organizationID) {
		return true
	}
	if p.IsSuperAdmin() {
		s.logger.Info("authz_superadmin_org_access",
			"user_id", p.ID,
			"organization_id", organizationID,
			"own_organization_id", p.OrganizationID,
		)
		return true
	}
	return false
}

// CanManageUsers reports whether the principal may manage users in the
// target organization. An empty target means the principal's own.
func (s *Service) CanManageUsers(p Principal, targetOrganizationID string) bool {
	if p.IsSuperAdmin() {
		return true
	}
	if !p.IsAdmin() {
		return false
	}
	return targetOrganizationID == "" || targetOrganizationID == p.OrganizationID
}

// CanManageOrganizations reports whether the principal may create,
// update, or delete organizations. Only super-admins; every grant is
// audit-logged.
func (s *Service) CanManageOrganizations(p Principal) bool {
	if !p.IsSuperAdmin() {
		return false
	}
	s.logger.Info("authz_org_manage_grant", "user_id", p.ID, "email", p.Email)
	return true
}
