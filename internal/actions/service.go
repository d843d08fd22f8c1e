package actions

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for the action registry.
type RepositoryPort interface {
	ListForTable(ctx context.Context, table string) ([]Action, error)
	Get(ctx context.Context, id int64) (Action, error)
	Create(ctx context.Context, action Action) (Action, error)
	UpdateMetadata(ctx context.Context, action Action) (Action, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles action registry business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListForTable returns the actions registered for a table.
func (s *Service) ListForTable(ctx context.Context, table string) ([]Action, error) {
	return s.repo.ListForTable(ctx, table)
}

// Get fetches an action by id.
func (s *Service) Get(ctx context.Context, id int64) (Action, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new action.
func (s *Service) Create(ctx context.Context, action Action) (Action, error) {
	action.TableName = strings.TrimSpace(action.TableName)
	action.ActionName = strings.TrimSpace(action.ActionName)
	if action.TableName == "" || action.ActionName == "" {
		return Action{}, errors.New("actions: table name and action name required")
	}
	return s.repo.Create(ctx, action)
}

// UpdateMetadata edits display metadata; identity fields are ignored.
func (s *Service) UpdateMetadata(ctx context.Context, action Action) (Action, error) {
	return s.repo.UpdateMetadata(ctx, action)
}

// Delete removes an action and, via the schema cascade, its grants.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
