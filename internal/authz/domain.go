package authz

import "strings"

// Well-known role names.
const (
	// RoleAdmin bypasses every grant check and is the only role allowed to
	// impersonate, manage grants, and read the audit trail.
	RoleAdmin = "admin"
	// RoleAnonymous is the synthetic role assigned to unauthenticated callers.
	RoleAnonymous = "anonymous"
)

// Operation enumerates table-level CRUD permissions.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation validates a raw operation string.
func ParseOperation(raw string) (Operation, bool) {
	switch Operation(strings.ToLower(strings.TrimSpace(raw))) {
	case OpCreate:
		return OpCreate, true
	case OpRead:
		return OpRead, true
	case OpUpdate:
		return OpUpdate, true
	case OpDelete:
		return OpDelete, true
	}
	return "", false
}

// Context carries the caller identity resolved at the edge of a request.
// It is immutable once built and must never outlive the request that
// produced it: impersonation state is strictly request-local.
type Context struct {
	SubjectID       string
	Email           string
	RealRoles       []string
	EffectiveRoles  []string
	IsRealAdmin     bool
	ImpersonationID string
}

// IsAdmin reports whether the effective role set carries admin. During an
// impersonated session this is intentionally the impersonated answer.
func (c Context) IsAdmin() bool {
	return containsRole(c.EffectiveRoles, RoleAdmin)
}

// Impersonating reports whether an impersonation override is active.
func (c Context) Impersonating() bool {
	return c.ImpersonationID != ""
}

// Result is the soft outcome of a grant mutation. Denials are reported here,
// never raised, so callers can surface them inline.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func containsRole(roles []string, want string) bool {
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(r), want) {
			return true
		}
	}
	return false
}
