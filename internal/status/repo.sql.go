package status

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation    = "23505"
	initialIndexName   = "ux_status_values_initial"
	valueKeyIndexName  = "ux_status_values_key"
	displayIndexName   = "ux_status_values_display"
)

// PGRepository provides PostgreSQL backed persistence for the status catalog.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateDomain registers a status domain.
func (r *PGRepository) CreateDomain(ctx context.Context, domain Domain) error {
	const query = `INSERT INTO status_domains (entity_type, description) VALUES ($1, $2)`
	if _, err := r.pool.Exec(ctx, query, domain.EntityType, domain.Description); err != nil {
		return mapConstraintError(err)
	}
	return nil
}

// DeleteDomain removes a domain; values cascade at the schema level.
func (r *PGRepository) DeleteDomain(ctx context.Context, entityType string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM status_domains WHERE entity_type = $1`, entityType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDomains returns all registered domains.
func (r *PGRepository) ListDomains(ctx context.Context) ([]Domain, error) {
	rows, err := r.pool.Query(ctx, `SELECT entity_type, description FROM status_domains ORDER BY entity_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var domains []Domain
	for rows.Next() {
		var domain Domain
		if err := rows.Scan(&domain.EntityType, &domain.Description); err != nil {
			return nil, err
		}
		domains = append(domains, domain)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domains, nil
}

// CreateValue inserts a status value. The exactly-one-initial invariant is
// enforced by a partial unique index on (entity_type) WHERE is_initial, so a
// first initial value always succeeds and only duplicates are rejected.
func (r *PGRepository) CreateValue(ctx context.Context, value Value) (Value, error) {
	const query = `
		INSERT INTO status_values (entity_type, status_key, display_name, color, sort_order, is_initial, is_terminal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		value.EntityType, value.Key, value.DisplayName, value.Color,
		value.SortOrder, value.IsInitial, value.IsTerminal,
	).Scan(&value.ID)
	if err != nil {
		return Value{}, mapConstraintError(err)
	}
	return value, nil
}

// UpdateValue edits the mutable fields of a value. The status key is
// immutable once set and is deliberately not part of the statement.
func (r *PGRepository) UpdateValue(ctx context.Context, value Value) (Value, error) {
	const query = `
		UPDATE status_values
		SET display_name = $2, color = $3, sort_order = $4, is_initial = $5, is_terminal = $6
		WHERE id = $1
		RETURNING entity_type, status_key`
	err := r.pool.QueryRow(ctx, query,
		value.ID, value.DisplayName, value.Color, value.SortOrder, value.IsInitial, value.IsTerminal,
	).Scan(&value.EntityType, &value.Key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Value{}, ErrNotFound
		}
		return Value{}, mapConstraintError(err)
	}
	return value, nil
}

// DeleteValue removes a value by id.
func (r *PGRepository) DeleteValue(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM status_values WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForDomain returns the values of a domain ordered for dropdowns.
func (r *PGRepository) ListForDomain(ctx context.Context, entityType string) ([]Value, error) {
	const query = `
		SELECT id, entity_type, status_key, display_name, color, sort_order, is_initial, is_terminal
		FROM status_values
		WHERE entity_type = $1
		ORDER BY sort_order, display_name`
	rows, err := r.pool.Query(ctx, query, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var values []Value
	for rows.Next() {
		var value Value
		if err := rows.Scan(&value.ID, &value.EntityType, &value.Key, &value.DisplayName,
			&value.Color, &value.SortOrder, &value.IsInitial, &value.IsTerminal); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// Initial returns the designated initial value of a domain, or ErrNotFound.
func (r *PGRepository) Initial(ctx context.Context, entityType string) (Value, error) {
	const query = `
		SELECT id, entity_type, status_key, display_name, color, sort_order, is_initial, is_terminal
		FROM status_values
		WHERE entity_type = $1 AND is_initial`
	var value Value
	err := r.pool.QueryRow(ctx, query, entityType).Scan(&value.ID, &value.EntityType, &value.Key,
		&value.DisplayName, &value.Color, &value.SortOrder, &value.IsInitial, &value.IsTerminal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Value{}, ErrNotFound
		}
		return Value{}, err
	}
	return value, nil
}

// ResolveID looks a value id up by its stable key.
func (r *PGRepository) ResolveID(ctx context.Context, entityType, key string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM status_values WHERE entity_type = $1 AND status_key = $2`,
		entityType, key,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// EntityTypeOf returns the domain a value belongs to.
func (r *PGRepository) EntityTypeOf(ctx context.Context, id int64) (string, error) {
	var entityType string
	err := r.pool.QueryRow(ctx, `SELECT entity_type FROM status_values WHERE id = $1`, id).Scan(&entityType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return entityType, nil
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case initialIndexName:
			return ErrInitialExists
		case valueKeyIndexName, displayIndexName:
			return ErrDuplicate
		default:
			return ErrDuplicate
		}
	}
	return err
}
