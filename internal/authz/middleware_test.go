package authz

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testMiddleware() Middleware {
	return Middleware{
		ClaimsHeader:        "X-Identity-Claims",
		ImpersonationHeader: "X-Impersonate-Roles",
		ClientID:            "castellan",
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func encodeClaims(t *testing.T, claims map[string]any) string {
	t.Helper()
	data, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func captureContext(mw Middleware, req *http.Request) Context {
	var captured Context
	handler := mw.WithContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = FromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return captured
}

func TestWithContextDecodesClaims(t *testing.T) {
	mw := testMiddleware()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Identity-Claims", encodeClaims(t, map[string]any{
		"sub":          "user-1",
		"email":        "admin@example.com",
		"realm_access": map[string]any{"roles": []string{"admin"}},
	}))

	actx := captureContext(mw, req)
	if actx.SubjectID != "user-1" || !actx.IsRealAdmin {
		t.Fatalf("unexpected context %+v", actx)
	}
}

func TestWithContextNoHeaderIsAnonymous(t *testing.T) {
	actx := captureContext(testMiddleware(), httptest.NewRequest(http.MethodGet, "/", nil))
	if actx.SubjectID != "" {
		t.Fatalf("expected anonymous, got %+v", actx)
	}
	if !containsRole(actx.EffectiveRoles, RoleAnonymous) {
		t.Fatalf("expected anonymous role, got %v", actx.EffectiveRoles)
	}
}

func TestWithContextMalformedHeaderNeverRejects(t *testing.T) {
	mw := testMiddleware()
	for name, raw := range map[string]string{
		"not base64": "%%%%",
		"not json":   base64.StdEncoding.EncodeToString([]byte("not-json")),
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Identity-Claims", raw)
		rec := httptest.NewRecorder()
		var captured Context
		mw.WithContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: malformed claims must not reject the request", name)
		}
		if captured.SubjectID != "" {
			t.Fatalf("%s: expected anonymous degradation, got %+v", name, captured)
		}
	}
}

func TestWithContextRawURLEncodedClaims(t *testing.T) {
	mw := testMiddleware()
	data, _ := json.Marshal(map[string]any{"sub": "user-2", "roles": []string{"viewer"}})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Identity-Claims", base64.RawURLEncoding.EncodeToString(data))

	actx := captureContext(mw, req)
	if actx.SubjectID != "user-2" {
		t.Fatalf("raw URL encoding must be accepted, got %+v", actx)
	}
}

func TestWithContextImpersonation(t *testing.T) {
	mw := testMiddleware()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Identity-Claims", encodeClaims(t, map[string]any{
		"sub":   "user-1",
		"roles": []string{"admin"},
	}))
	req.Header.Set("X-Impersonate-Roles", "editor,viewer")

	actx := captureContext(mw, req)
	if !actx.Impersonating() {
		t.Fatal("expected impersonation")
	}
	if actx.IsAdmin() {
		t.Fatal("effective admin must be dropped")
	}
	if !actx.IsRealAdmin {
		t.Fatal("real admin flag must survive impersonation")
	}
}

func TestRequireAdminUsesEffectiveRoles(t *testing.T) {
	mw := testMiddleware()
	guarded := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// Admin impersonating editor is denied by the effective check.
	actx := NewContext(Identity{Subject: "user-1", Roles: []string{"admin"}}, "editor")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req.WithContext(ContextWith(req.Context(), actx)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for impersonated editor, got %d", rec.Code)
	}

	// Plain admin passes.
	actx = NewContext(Identity{Subject: "user-1", Roles: []string{"admin"}}, "")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req.WithContext(ContextWith(req.Context(), actx)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", rec.Code)
	}
}

func TestRequireRealAdminIgnoresImpersonation(t *testing.T) {
	mw := testMiddleware()
	guarded := mw.RequireRealAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	actx := NewContext(Identity{Subject: "user-1", Roles: []string{"admin"}}, "editor")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req.WithContext(ContextWith(req.Context(), actx)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("real admin impersonating must keep access, got %d", rec.Code)
	}

	actx = NewContext(Identity{Subject: "user-2", Roles: []string{"editor"}}, "")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req.WithContext(ContextWith(req.Context(), actx)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("editor must be denied, got %d", rec.Code)
	}
}
