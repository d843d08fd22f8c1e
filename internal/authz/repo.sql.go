package authz

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository provides PostgreSQL backed persistence for the grant relation.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// TableGrantExists reports whether any of the roles holds the grant.
func (r *PGRepository) TableGrantExists(ctx context.Context, table string, op Operation, roles []string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM permission_grants pg
			JOIN roles ro ON ro.id = pg.role_id
			WHERE pg.table_name = $1 AND pg.operation = $2 AND ro.name = ANY($3)
		)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, table, string(op), roles).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ActionGrantExists reports whether any of the roles may execute the action.
func (r *PGRepository) ActionGrantExists(ctx context.Context, actionID int64, roles []string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM entity_action_grants ag
			JOIN roles ro ON ro.id = ag.role_id
			WHERE ag.entity_action_id = $1 AND ro.name = ANY($2)
		)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, actionID, roles).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// RoleExists reports whether a role definition with the given name exists.
func (r *PGRepository) RoleExists(ctx context.Context, role string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, role).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpsertTableGrant inserts a grant row; an existing row is left untouched so
// the operation stays idempotent under concurrent grants.
func (r *PGRepository) UpsertTableGrant(ctx context.Context, table string, op Operation, role string) error {
	const query = `
		INSERT INTO permission_grants (table_name, operation, role_id)
		SELECT $1, $2, ro.id FROM roles ro WHERE ro.name = $3
		ON CONFLICT (table_name, operation, role_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, table, string(op), role)
	return err
}

// DeleteTableGrant removes a grant row if present.
func (r *PGRepository) DeleteTableGrant(ctx context.Context, table string, op Operation, role string) error {
	const query = `
		DELETE FROM permission_grants pg
		USING roles ro
		WHERE ro.id = pg.role_id AND pg.table_name = $1 AND pg.operation = $2 AND ro.name = $3`
	_, err := r.pool.Exec(ctx, query, table, string(op), role)
	return err
}

// UpsertActionGrant inserts an (action, role) row, idempotently.
func (r *PGRepository) UpsertActionGrant(ctx context.Context, actionID int64, role string) error {
	const query = `
		INSERT INTO entity_action_grants (entity_action_id, role_id)
		SELECT $1, ro.id FROM roles ro WHERE ro.name = $2
		ON CONFLICT (entity_action_id, role_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, actionID, role)
	return err
}

// DeleteActionGrant removes an (action, role) row if present.
func (r *PGRepository) DeleteActionGrant(ctx context.Context, actionID int64, role string) error {
	const query = `
		DELETE FROM entity_action_grants ag
		USING roles ro
		WHERE ro.id = ag.role_id AND ag.entity_action_id = $1 AND ro.name = $2`
	_, err := r.pool.Exec(ctx, query, actionID, role)
	return err
}

// ListTableGrants returns all grants configured for a table.
func (r *PGRepository) ListTableGrants(ctx context.Context, table string) ([]TableGrant, error) {
	const query = `
		SELECT pg.table_name, pg.operation, ro.name
		FROM permission_grants pg
		JOIN roles ro ON ro.id = pg.role_id
		WHERE pg.table_name = $1
		ORDER BY pg.operation, ro.name`
	rows, err := r.pool.Query(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []TableGrant
	for rows.Next() {
		var grant TableGrant
		var op string
		if err := rows.Scan(&grant.TableName, &op, &grant.Role); err != nil {
			return nil, err
		}
		grant.Operation = Operation(op)
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

var _ Repository = (*PGRepository)(nil)
