package metadata

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed access to column metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StatusColumns returns the status-referencing columns configured for a table.
func (r *Repository) StatusColumns(ctx context.Context, table string) ([]StatusColumn, error) {
	const query = `
		SELECT table_name, column_name, status_entity_type
		FROM column_metadata
		WHERE table_name = $1 AND status_entity_type IS NOT NULL
		ORDER BY column_name`
	rows, err := r.pool.Query(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var columns []StatusColumn
	for rows.Next() {
		var column StatusColumn
		if err := rows.Scan(&column.TableName, &column.ColumnName, &column.EntityType); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}

// UpsertStatusColumn records or updates the expected domain for a column.
func (r *Repository) UpsertStatusColumn(ctx context.Context, column StatusColumn) error {
	const query = `
		INSERT INTO column_metadata (table_name, column_name, status_entity_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (table_name, column_name) DO UPDATE SET status_entity_type = EXCLUDED.status_entity_type`
	_, err := r.pool.Exec(ctx, query, column.TableName, column.ColumnName, column.EntityType)
	return err
}
