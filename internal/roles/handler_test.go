package roles

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/castellan-io/castellan/internal/authz"
)

type stubRoleRepo struct {
	roles   []Role
	created []Role
	updated map[int64]string
}

func (s *stubRoleRepo) ListRoles(ctx context.Context) ([]Role, error) {
	return s.roles, nil
}

func (s *stubRoleRepo) CreateRole(ctx context.Context, name, description string) (Role, error) {
	role := Role{ID: int64(len(s.created) + 1), Name: name, Description: description}
	s.created = append(s.created, role)
	return role, nil
}

func (s *stubRoleRepo) UpdateRole(ctx context.Context, id int64, description string) (Role, error) {
	if s.updated == nil {
		s.updated = map[int64]string{}
	}
	s.updated[id] = description
	return Role{ID: id, Description: description}, nil
}

func newRolesRouter(repo RepositoryPort) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo), authz.Middleware{})
	r := chi.NewRouter()
	r.Route("/roles", handler.MountRoutes)
	return r
}

func requestAs(method, path, body string, roles ...string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	actx := authz.NewContext(authz.Identity{Subject: "user-1", Roles: roles}, "")
	return req.WithContext(authz.ContextWith(req.Context(), actx))
}

func TestListRolesIsOpen(t *testing.T) {
	repo := &stubRoleRepo{roles: []Role{{ID: 1, Name: "admin"}, {ID: 2, Name: "editor"}}}
	router := newRolesRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(http.MethodGet, "/roles/", "", "viewer"))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp struct {
		Roles []Role `json:"roles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(resp.Roles))
	}
}

func TestCreateRoleRequiresAdmin(t *testing.T) {
	repo := &stubRoleRepo{}
	router := newRolesRouter(repo)
	body := `{"name":"auditor","description":"read-only compliance"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(http.MethodPost, "/roles/", body, "editor"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for editor, got %d", rec.Code)
	}
	if len(repo.created) != 0 {
		t.Fatal("denied request must not create")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(http.MethodPost, "/roles/", body, "admin"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.created) != 1 || repo.created[0].Name != "auditor" {
		t.Fatalf("unexpected created roles %+v", repo.created)
	}
}

func TestCreateRoleValidation(t *testing.T) {
	router := newRolesRouter(&stubRoleRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(http.MethodPost, "/roles/", `{"description":"nameless"}`, "admin"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateRoleOnlyTouchesDescription(t *testing.T) {
	repo := &stubRoleRepo{}
	router := newRolesRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestAs(http.MethodPut, "/roles/3", `{"description":"updated"}`, "admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if repo.updated[3] != "updated" {
		t.Fatalf("expected description update, got %v", repo.updated)
	}
}
