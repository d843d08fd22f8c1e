package authz

import (
	"strings"

	"github.com/google/uuid"
)

// ResolveEffective computes the effective role set for a request. Only a
// caller whose real roles include admin may request impersonation; for
// everyone else the requested list is ignored outright. A non-empty request
// replaces the real roles entirely, so an impersonating admin loses admin
// privileges unless admin is part of the requested set. A blank or
// unparseable request falls back to the real roles.
func ResolveEffective(realRoles []string, requested string) []string {
	if !containsRole(realRoles, RoleAdmin) {
		return realRoles
	}
	parsed := SplitRoles(requested)
	if len(parsed) == 0 {
		return realRoles
	}
	return parsed
}

// SplitRoles parses a comma-separated role list, trimming whitespace and
// dropping empty entries.
func SplitRoles(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	return roles
}

// NewContext builds the per-request authorization context from an extracted
// identity and the raw impersonation request. The real-admin flag is derived
// from the unmodified real roles before impersonation applies; it is the
// trust anchor for audit logging and grant management.
func NewContext(identity Identity, requestedRoles string) Context {
	ctx := Context{
		SubjectID:   identity.Subject,
		Email:       identity.Email,
		RealRoles:   identity.Roles,
		IsRealAdmin: containsRole(identity.Roles, RoleAdmin),
	}
	ctx.EffectiveRoles = ResolveEffective(identity.Roles, requestedRoles)
	if ctx.IsRealAdmin && len(SplitRoles(requestedRoles)) > 0 {
		ctx.ImpersonationID = uuid.NewString()
	}
	return ctx
}
