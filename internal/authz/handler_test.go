package authz

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(repo Repository) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, nil)
	handler := NewHandler(logger, svc, testMiddleware())
	r := chi.NewRouter()
	r.Route("/authz", handler.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string, actx Context) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req.WithContext(ContextWith(req.Context(), actx)))
	return rec
}

func TestHandleMe(t *testing.T) {
	router := newTestRouter(&stubRepo{})
	actx := NewContext(Identity{Subject: "user-1", Roles: []string{"admin"}}, "editor")

	rec := doRequest(t, router, http.MethodGet, "/authz/me", "", actx)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp struct {
		Subject       string `json:"subject"`
		IsAdmin       bool   `json:"is_admin"`
		IsRealAdmin   bool   `json:"is_real_admin"`
		Impersonating bool   `json:"impersonating"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Subject != "user-1" || resp.IsAdmin || !resp.IsRealAdmin || !resp.Impersonating {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHandleCheck(t *testing.T) {
	router := newTestRouter(&stubRepo{tableGrants: map[string]bool{"documents/read": true}})
	actx := NewContext(Identity{Subject: "user-1", Roles: []string{"editor"}}, "")

	rec := doRequest(t, router, http.MethodGet, "/authz/check?table=documents&operation=read", "", actx)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp checkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Allowed {
		t.Fatal("expected allowed")
	}

	rec = doRequest(t, router, http.MethodGet, "/authz/check?table=documents&operation=drop", "", actx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid operation must 400, got %d", rec.Code)
	}
}

func TestGrantRoutesRequireRealAdmin(t *testing.T) {
	router := newTestRouter(&stubRepo{knownRoles: map[string]bool{"editor": true}})
	body := `{"table_name":"documents","operation":"read","role":"editor"}`

	editor := NewContext(Identity{Subject: "user-2", Roles: []string{"editor"}}, "")
	rec := doRequest(t, router, http.MethodPost, "/authz/grants/tables", body, editor)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("editor must be rejected at the route, got %d", rec.Code)
	}

	admin := NewContext(Identity{Subject: "user-1", Roles: []string{"admin"}}, "")
	rec = doRequest(t, router, http.MethodPost, "/authz/grants/tables", body, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin grant failed with %d: %s", rec.Code, rec.Body.String())
	}
	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestGrantUnknownRoleIsSoftError(t *testing.T) {
	router := newTestRouter(&stubRepo{knownRoles: map[string]bool{}})
	admin := NewContext(Identity{Subject: "user-1", Roles: []string{"admin"}}, "")

	body := `{"table_name":"documents","operation":"read","role":"ghost"}`
	rec := doRequest(t, router, http.MethodPost, "/authz/grants/tables", body, admin)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("soft failure must map to 422, got %d", rec.Code)
	}
	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("expected soft error, got %+v", res)
	}
}

func TestGrantValidation(t *testing.T) {
	router := newTestRouter(&stubRepo{knownRoles: map[string]bool{"editor": true}})
	admin := NewContext(Identity{Subject: "user-1", Roles: []string{"admin"}}, "")

	rec := doRequest(t, router, http.MethodPost, "/authz/grants/tables", `{"table_name":"documents","operation":"drop","role":"editor"}`, admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid operation must 400, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/authz/grants/actions", `{"action_id":0,"role":"editor"}`, admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero action id must 400, got %d", rec.Code)
	}
}

func TestActionCheckRoute(t *testing.T) {
	router := newTestRouter(&stubRepo{actionGrants: map[int64]bool{5: true}})
	actx := NewContext(Identity{Subject: "user-1", Roles: []string{"editor"}}, "")

	rec := doRequest(t, router, http.MethodGet, "/authz/actions/5/check", "", actx)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp checkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Allowed {
		t.Fatal("expected allowed")
	}

	rec = doRequest(t, router, http.MethodGet, "/authz/actions/abc/check", "", actx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id must 400, got %d", rec.Code)
	}
}
