package actions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const actionColumns = `id, table_name, action_name, rpc_reference, label, confirmation_text, condition_expr, created_at, updated_at`

// ListForTable returns the actions registered for a table.
func (r *Repository) ListForTable(ctx context.Context, table string) ([]Action, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+actionColumns+` FROM entity_actions WHERE table_name = $1 ORDER BY action_name`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actions []Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

// Get fetches an action by id.
func (r *Repository) Get(ctx context.Context, id int64) (Action, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+actionColumns+` FROM entity_actions WHERE id = $1`, id)
	action, err := scanAction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Action{}, ErrNotFound
		}
		return Action{}, err
	}
	return action, nil
}

// Create inserts a new action.
func (r *Repository) Create(ctx context.Context, action Action) (Action, error) {
	const query = `
		INSERT INTO entity_actions (table_name, action_name, rpc_reference, label, confirmation_text, condition_expr)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + actionColumns
	row := r.pool.QueryRow(ctx, query,
		action.TableName, action.ActionName, action.RPCReference,
		action.Label, action.ConfirmationText, action.ConditionExpr)
	created, err := scanAction(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Action{}, ErrDuplicate
		}
		return Action{}, err
	}
	return created, nil
}

// UpdateMetadata edits the mutable fields; the (table, action) identity is
// deliberately absent from the statement.
func (r *Repository) UpdateMetadata(ctx context.Context, action Action) (Action, error) {
	const query = `
		UPDATE entity_actions
		SET rpc_reference = $2, label = $3, confirmation_text = $4, condition_expr = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + actionColumns
	row := r.pool.QueryRow(ctx, query,
		action.ID, action.RPCReference, action.Label, action.ConfirmationText, action.ConditionExpr)
	updated, err := scanAction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Action{}, ErrNotFound
		}
		return Action{}, err
	}
	return updated, nil
}

// Delete removes an action; grants cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM entity_actions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAction(row pgx.Row) (Action, error) {
	var action Action
	err := row.Scan(&action.ID, &action.TableName, &action.ActionName, &action.RPCReference,
		&action.Label, &action.ConfirmationText, &action.ConditionExpr,
		&action.CreatedAt, &action.UpdatedAt)
	return action, err
}
