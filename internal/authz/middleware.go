package authz

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Middleware builds the per-request authorization context from the headers
// injected by the authenticating gateway. The service never validates
// tokens itself; it consumes an already-authenticated identity.
type Middleware struct {
	// ClaimsHeader carries the base64-encoded JSON identity claims.
	ClaimsHeader string
	// ImpersonationHeader carries the comma-separated requested role list.
	ImpersonationHeader string
	// ClientID scopes the resource_access claim lookup.
	ClientID string
	Logger   *slog.Logger
}

// WithContext derives the authorization context and attaches it to the
// request. Malformed claims degrade to anonymous and malformed
// impersonation requests fall back to the real roles; this middleware never
// rejects a request.
func (m Middleware) WithContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := ExtractIdentity(m.decodeClaims(r), m.ClientID)
		actx := NewContext(identity, r.Header.Get(m.ImpersonationHeader))
		if actx.Impersonating() && m.Logger != nil {
			m.Logger.Info("impersonation active",
				slog.String("subject", actx.SubjectID),
				slog.String("impersonation_id", actx.ImpersonationID),
				slog.Any("effective_roles", actx.EffectiveRoles))
		}
		next.ServeHTTP(w, r.WithContext(ContextWith(r.Context(), actx)))
	})
}

// RequireAdmin guards registry writes with the effective role set, so an
// impersonating admin experiences the same denials the impersonated role
// would.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).IsAdmin() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRealAdmin guards routes that only a real administrator may reach.
// The check runs against the real roles, so an impersonating admin keeps
// access to grant management and audit data while testing as another role.
func (m Middleware) RequireRealAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).IsRealAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) decodeClaims(r *http.Request) map[string]any {
	raw := r.Header.Get(m.ClaimsHeader)
	if raw == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		if data, err = base64.RawURLEncoding.DecodeString(raw); err != nil {
			if m.Logger != nil {
				m.Logger.Warn("undecodable claims header, treating as anonymous")
			}
			return nil
		}
	}
	var claims map[string]any
	if err := json.Unmarshal(data, &claims); err != nil {
		if m.Logger != nil {
			m.Logger.Warn("unparseable claims payload, treating as anonymous")
		}
		return nil
	}
	return claims
}
