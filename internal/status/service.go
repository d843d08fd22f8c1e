package status

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for the status catalog.
type RepositoryPort interface {
	CreateDomain(ctx context.Context, domain Domain) error
	DeleteDomain(ctx context.Context, entityType string) error
	ListDomains(ctx context.Context) ([]Domain, error)
	CreateValue(ctx context.Context, value Value) (Value, error)
	UpdateValue(ctx context.Context, value Value) (Value, error)
	DeleteValue(ctx context.Context, id int64) error
	ListForDomain(ctx context.Context, entityType string) ([]Value, error)
	Initial(ctx context.Context, entityType string) (Value, error)
	ResolveID(ctx context.Context, entityType, key string) (int64, error)
	EntityTypeOf(ctx context.Context, id int64) (string, error)
}

// Invalidator drops cached catalog entries after destructive edits.
type Invalidator interface {
	Invalidate(ctx context.Context, id int64)
}

// Service wraps status catalog business rules.
type Service struct {
	repo  RepositoryPort
	cache Invalidator
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// WithCache attaches the lookup cache so deletions invalidate eagerly
// instead of waiting for the TTL.
func (s *Service) WithCache(cache Invalidator) *Service {
	s.cache = cache
	return s
}

// CreateDomain registers a status domain.
func (s *Service) CreateDomain(ctx context.Context, entityType, description string) (Domain, error) {
	entityType = strings.TrimSpace(entityType)
	if entityType == "" {
		return Domain{}, errors.New("status: entity type required")
	}
	domain := Domain{EntityType: entityType, Description: strings.TrimSpace(description)}
	if err := s.repo.CreateDomain(ctx, domain); err != nil {
		return Domain{}, err
	}
	return domain, nil
}

// DeleteDomain removes a domain and, through the schema cascade, its values.
func (s *Service) DeleteDomain(ctx context.Context, entityType string) error {
	return s.repo.DeleteDomain(ctx, entityType)
}

// ListDomains returns all registered domains.
func (s *Service) ListDomains(ctx context.Context) ([]Domain, error) {
	return s.repo.ListDomains(ctx)
}

// CreateValue inserts a status value. When the key is omitted it is derived
// from the display name; when the display name is omitted a default label is
// derived from the key. One of the two must be supplied.
func (s *Service) CreateValue(ctx context.Context, value Value) (Value, error) {
	value.EntityType = strings.TrimSpace(value.EntityType)
	if value.EntityType == "" {
		return Value{}, errors.New("status: entity type required")
	}
	value.Key = strings.TrimSpace(value.Key)
	value.DisplayName = strings.TrimSpace(value.DisplayName)
	if value.Key == "" && value.DisplayName == "" {
		return Value{}, errors.New("status: status_key or display_name required")
	}
	if value.Key == "" {
		value.Key = DeriveKey(value.DisplayName)
	}
	if value.DisplayName == "" {
		value.DisplayName = DeriveDisplayName(value.Key)
	}
	return s.repo.CreateValue(ctx, value)
}

// UpdateValue edits display metadata of a value. The stable key never
// changes through this path.
func (s *Service) UpdateValue(ctx context.Context, value Value) (Value, error) {
	value.DisplayName = strings.TrimSpace(value.DisplayName)
	if value.DisplayName == "" {
		return Value{}, errors.New("status: display name required")
	}
	return s.repo.UpdateValue(ctx, value)
}

// DeleteValue removes a value by id.
func (s *Service) DeleteValue(ctx context.Context, id int64) error {
	if err := s.repo.DeleteValue(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

// ListForDomain returns the values of a domain sorted by sort order then
// display name.
func (s *Service) ListForDomain(ctx context.Context, entityType string) ([]Value, error) {
	return s.repo.ListForDomain(ctx, entityType)
}

// Initial returns the designated initial value of a domain, if any.
func (s *Service) Initial(ctx context.Context, entityType string) (Value, error) {
	return s.repo.Initial(ctx, entityType)
}

// ResolveID is the sanctioned lookup by programmatic key, the alternative to
// matching on mutable display text.
func (s *Service) ResolveID(ctx context.Context, entityType, key string) (int64, error) {
	return s.repo.ResolveID(ctx, entityType, key)
}
