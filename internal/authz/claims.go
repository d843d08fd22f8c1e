package authz

import "strings"

// Identity is the caller identity distilled from a set of claims.
type Identity struct {
	Subject string
	Email   string
	Roles   []string
}

// Anonymous reports whether the identity degenerated to anonymous access.
func (i Identity) Anonymous() bool {
	return i.Subject == ""
}

// AnonymousIdentity is the defined result for absent or malformed claims.
func AnonymousIdentity() Identity {
	return Identity{Roles: []string{RoleAnonymous}}
}

// ExtractIdentity pulls the subject and role list out of an identity-claims
// payload. Absent claims, a missing subject, or any malformed shape degrade
// to the anonymous identity; this never fails. Role extraction tries three
// conventional claim shapes in order: a realm-wide roles array, a roles array
// scoped to clientID, and a bare top-level roles array. An authenticated
// caller with none of them yields an empty role list, which is distinct from
// anonymous.
func ExtractIdentity(claims map[string]any, clientID string) Identity {
	if claims == nil {
		return AnonymousIdentity()
	}
	subject, _ := claims["sub"].(string)
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return AnonymousIdentity()
	}
	email, _ := claims["email"].(string)
	return Identity{
		Subject: subject,
		Email:   strings.TrimSpace(email),
		Roles:   rolesFromClaims(claims, clientID),
	}
}

func rolesFromClaims(claims map[string]any, clientID string) []string {
	if realm, ok := claims["realm_access"].(map[string]any); ok {
		if roles, ok := stringSlice(realm["roles"]); ok {
			return roles
		}
	}
	if resources, ok := claims["resource_access"].(map[string]any); ok && clientID != "" {
		if client, ok := resources[clientID].(map[string]any); ok {
			if roles, ok := stringSlice(client["roles"]); ok {
				return roles
			}
		}
	}
	if roles, ok := stringSlice(claims["roles"]); ok {
		return roles
	}
	return nil
}

// stringSlice coerces the JSON-decoded shapes a roles array shows up in.
func stringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, true
	}
	return nil, false
}
