package permission

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

type Resource string
type Action string

const (
	WildcardResource Resource = "*"
	WildcardAction   Action   = "*"

	// Wildcard is the universal permission granting everything.
	Wildcard = "*"
)

// ----------------------------
// Resources
// ----------------------------

const (
	ResourceSystem         Resource = "system"
	ResourceOrganizations  Resource = "organizations"
	ResourceUsers          Resource = "users"
	ResourcePatients       Resource = "patients"
	ResourceAppointments   Resource = "appointments"
	ResourceConsultations  Resource = "consultations"
	ResourcePrescriptions  Resource = "prescriptions"
	ResourceReports        Resource = "reports"
	ResourceMedicalHistory Resource = "medical_history"
	ResourceVitalSigns     Resource = "vital_signs"
	ResourceDashboard      Resource = "dashboard"
	ResourceAnalytics      Resource = "analytics"
	ResourceRoles          Resource = "roles"
	ResourceAudit          Resource = "audit"
	ResourceSettings       Resource = "settings"
	ResourceOrganization   Resource = "organization"
)

// ----------------------------
// Actions
// ----------------------------

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionManage  Action = "manage"
	ActionExecute Action = "execute"
	ActionExport  Action = "export"
	ActionImport  Action = "import"
)

var (
	mu sync.RWMutex

	knownResources = map[Resource]struct{}{
		ResourceSystem: {}, ResourceOrganizations: {}, ResourceUsers: {},
		ResourcePatients: {}, ResourceAppointments: {}, ResourceConsultations: {},
		ResourcePrescriptions: {}, ResourceReports: {}, ResourceMedicalHistory: {},
		ResourceVitalSigns: {}, ResourceDashboard: {}, ResourceAnalytics: {},
		ResourceRoles: {}, ResourceAudit: {}, ResourceSettings: {},
		ResourceOrganization: {},
	}

	knownActions = map[Action]struct{}{
		ActionRead: {}, ActionWrite: {}, ActionCreate: {}, ActionUpdate: {},
		ActionDelete: {}, ActionManage: {}, ActionExecute: {}, ActionExport: {},
		ActionImport: {},
	}
)

// reIdent matches lowercase-with-underscores identifiers used for
// runtime-registered resources and actions.
var reIdent = regexp.MustCompile(`^[a-z]+(_[a-z]+)*$`)

// ValidationError carries field-level detail about a rejected permission string.
type ValidationError struct {
	Permission string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid permission %q: %s", e.Permission, e.Reason)
}

// Validate checks a single permission string against the registered
// resource and action sets. The universal wildcard "*" and one-sided
// wildcards ("resource:*", "*:action") are valid.
func Validate(perm string) error {
	if perm == "" {
		return &ValidationError{Permission: perm, Reason: "permission is empty"}
	}
	if perm == Wildcard {
		return nil
	}

	parts := strings.Split(perm, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return &ValidationError{Permission: perm, Reason: "expected resource:action format"}
	}

	res, act := Resource(parts[0]), Action(parts[1])

	mu.RLock()
	defer mu.RUnlock()

	if res != WildcardResource {
		if _, ok := knownResources[res]; !ok {
			return &ValidationError{Permission: perm, Reason: fmt.Sprintf("unknown resource %q", parts[0])}
		}
	}
	if act != WildcardAction {
		if _, ok := knownActions[act]; !ok {
			return &ValidationError{Permission: perm, Reason: fmt.Sprintf("unknown action %q", parts[1])}
		}
	}
	return nil
}

// ValidateAll validates every permission in the list and additionally
// rejects exact-string duplicates.
func ValidateAll(perms []string) error {
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if err := Validate(p); err != nil {
			return err
		}
		if _, dup := seen[p]; dup {
			return &ValidationError{Permission: p, Reason: "duplicate permission"}
		}
		seen[p] = struct{}{}
	}
	return nil
}

// Normalize rewrites the recognised action aliases to their canonical
// forms: manage→write and view→read. Everything else, including the
// wildcards, passes through unchanged.
func Normalize(perm string) string {
	res, act, ok := strings.Cut(perm, ":")
	if !ok {
		return perm
	}
	switch act {
	case "manage":
		return res + ":write"
	case "view":
		return res + ":read"
	default:
		return perm
	}
}

// Grants reports whether holding granted satisfies required.
//
// Rules: exact match; "*" grants everything; "*:action" grants that
// action on any resource; "resource:*" grants any action on that
// resource; and resource:write implies resource:read (never the other
// way around). There are no other implication rules.
func Grants(granted, required string) bool {
	if granted == required {
		return true
	}
	if granted == Wildcard {
		return true
	}

	gRes, gAct, gOK := strings.Cut(granted, ":")
	rRes, rAct, rOK := strings.Cut(required, ":")
	if !gOK || !rOK {
		return false
	}

	resMatch := gRes == string(WildcardResource) || gRes == rRes
	if !resMatch {
		return false
	}

	switch {
	case gAct == string(WildcardAction):
		return true
	case gAct == rAct:
		return true
	case gAct == string(ActionWrite) && rAct == string(ActionRead):
		// write implies read
		return true
	}
	return false
}

// GrantsAny reports whether any permission in granted satisfies required.
func GrantsAny(granted []string, required string) bool {
	for _, g := range granted {
		if Grants(g, required) {
			return true
		}
	}
	return false
}

// AddResource registers a resource at runtime. The name must be
// lowercase with underscores.
func AddResource(name string) error {
	if !reIdent.MatchString(name) {
		return &ValidationError{Permission: name, Reason: "resource must be lowercase with underscores"}
	}
	mu.Lock()
	defer mu.Unlock()
	knownResources[Resource(name)] = struct{}{}
	return nil
}

// AddAction registers an action at runtime. The name must be lowercase
// with underscores.
func AddAction(name string) error {
	if !reIdent.MatchString(name) {
		return &ValidationError{Permission: name, Reason: "action must be lowercase with underscores"}
	}
	mu.Lock()
	defer mu.Unlock()
	knownActions[Action(name)] = struct{}{}
	return nil
}

// Resources returns the currently registered resource names.
func Resources() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(knownResources))
	for r := range knownResources {
		out = append(out, string(r))
	}
	return out
}

// Actions returns the currently registered action names.
func Actions() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(knownActions))
	for a := range knownActions {
		out = append(out, string(a))
	}
	return out
}
