package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("authz: not found")

// Repository defines the grant relation the evaluator runs over.
type Repository interface {
	TableGrantExists(ctx context.Context, table string, op Operation, roles []string) (bool, error)
	ActionGrantExists(ctx context.Context, actionID int64, roles []string) (bool, error)
	RoleExists(ctx context.Context, role string) (bool, error)
	UpsertTableGrant(ctx context.Context, table string, op Operation, role string) error
	DeleteTableGrant(ctx context.Context, table string, op Operation, role string) error
	UpsertActionGrant(ctx context.Context, actionID int64, role string) error
	DeleteActionGrant(ctx context.Context, actionID int64, role string) error
	ListTableGrants(ctx context.Context, table string) ([]TableGrant, error)
}

// TableGrant is one row of the resource-level grant relation.
type TableGrant struct {
	TableName string    `json:"table_name"`
	Operation Operation `json:"operation"`
	Role      string    `json:"role"`
}

// DecisionRecorder receives permission decisions for observability.
type DecisionRecorder interface {
	RecordDecision(kind string, allowed bool)
}

// Service evaluates permissions and manages the grant relation.
type Service struct {
	repo     Repository
	recorder DecisionRecorder
}

// NewService constructs a Service.
func NewService(repo Repository, recorder DecisionRecorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// Can decides a table-level CRUD permission for the current caller:
// admin bypass, else membership in the grant set. A (table, operation)
// pair with no grants configured denies everyone but admin, so newly
// introduced tables fail closed.
func (s *Service) Can(ctx context.Context, table string, op Operation) (bool, error) {
	allowed, err := s.can(ctx, table, op)
	if err == nil {
		s.record("table", allowed)
	}
	return allowed, err
}

func (s *Service) can(ctx context.Context, table string, op Operation) (bool, error) {
	actx := FromContext(ctx)
	if actx.IsAdmin() {
		return true, nil
	}
	roles := usableRoles(actx.EffectiveRoles)
	if len(roles) == 0 {
		return false, nil
	}
	return s.repo.TableGrantExists(ctx, table, op, roles)
}

// CanExecuteAction decides an action-level permission under the same rule.
// An action with zero grant rows is administrator-only.
func (s *Service) CanExecuteAction(ctx context.Context, actionID int64) (bool, error) {
	actx := FromContext(ctx)
	if actx.IsAdmin() {
		s.record("action", true)
		return true, nil
	}
	roles := usableRoles(actx.EffectiveRoles)
	if len(roles) == 0 {
		s.record("action", false)
		return false, nil
	}
	allowed, err := s.repo.ActionGrantExists(ctx, actionID, roles)
	if err == nil {
		s.record("action", allowed)
	}
	return allowed, err
}

// GrantTable adds a (table, operation, role) grant. Granting an existing
// pair is a no-op success. Only a real administrator may mutate grants; the
// check is repeated here even though the HTTP layer gates the route.
func (s *Service) GrantTable(ctx context.Context, table string, op Operation, role string) Result {
	return s.mutateGrant(ctx, role, func() error {
		return s.repo.UpsertTableGrant(ctx, table, op, role)
	})
}

// RevokeTable removes a (table, operation, role) grant. Revoking an absent
// pair is a no-op success.
func (s *Service) RevokeTable(ctx context.Context, table string, op Operation, role string) Result {
	if res := s.requireRealAdmin(ctx); !res.Success {
		return res
	}
	if err := s.repo.DeleteTableGrant(ctx, table, op, strings.TrimSpace(role)); err != nil {
		return Result{Error: fmt.Sprintf("revoke failed: %v", err)}
	}
	return Result{Success: true}
}

// GrantAction adds an (action, role) grant, idempotently.
func (s *Service) GrantAction(ctx context.Context, actionID int64, role string) Result {
	return s.mutateGrant(ctx, role, func() error {
		return s.repo.UpsertActionGrant(ctx, actionID, role)
	})
}

// RevokeAction removes an (action, role) grant, idempotently.
func (s *Service) RevokeAction(ctx context.Context, actionID int64, role string) Result {
	if res := s.requireRealAdmin(ctx); !res.Success {
		return res
	}
	if err := s.repo.DeleteActionGrant(ctx, actionID, strings.TrimSpace(role)); err != nil {
		return Result{Error: fmt.Sprintf("revoke failed: %v", err)}
	}
	return Result{Success: true}
}

// ListTableGrants returns the configured grants for a table.
func (s *Service) ListTableGrants(ctx context.Context, table string) ([]TableGrant, error) {
	return s.repo.ListTableGrants(ctx, table)
}

func (s *Service) mutateGrant(ctx context.Context, role string, apply func() error) Result {
	if res := s.requireRealAdmin(ctx); !res.Success {
		return res
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return Result{Error: "role is required"}
	}
	known, err := s.repo.RoleExists(ctx, role)
	if err != nil {
		return Result{Error: fmt.Sprintf("grant failed: %v", err)}
	}
	if !known {
		return Result{Error: fmt.Sprintf("unknown role %q", role)}
	}
	if err := apply(); err != nil {
		return Result{Error: fmt.Sprintf("grant failed: %v", err)}
	}
	return Result{Success: true}
}

func (s *Service) requireRealAdmin(ctx context.Context) Result {
	if !FromContext(ctx).IsRealAdmin {
		return Result{Error: "administrator privileges required"}
	}
	return Result{Success: true}
}

func (s *Service) record(kind string, allowed bool) {
	if s.recorder != nil {
		s.recorder.RecordDecision(kind, allowed)
	}
}

// usableRoles strips the synthetic anonymous marker and blanks; anonymous
// never matches a grant row.
func usableRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		trimmed := strings.TrimSpace(role)
		if trimmed == "" || strings.EqualFold(trimmed, RoleAnonymous) {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
