package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository provides PostgreSQL backed persistence for audit entries.
// Only insert and select exist; the table is append-only by construction.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert appends one audit entry.
func (r *PGRepository) Insert(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry.EventData)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO admin_audit_log (id, real_user_id, real_user_email, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.pool.Exec(ctx, query,
		entry.ID, entry.RealUserID, entry.RealUserEmail, entry.EventType, data,
		pgtype.Timestamptz{Time: entry.CreatedAt, Valid: true})
	return err
}

// List returns entries newest first with an optional event-type filter.
func (r *PGRepository) List(ctx context.Context, filters ListFilters) ([]Entry, error) {
	const query = `
		SELECT id, real_user_id, real_user_email, event_type, event_data, created_at
		FROM admin_audit_log
		WHERE ($1 = '' OR event_type = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, filters.EventType, filters.Limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var data []byte
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&entry.ID, &entry.RealUserID, &entry.RealUserEmail,
			&entry.EventType, &data, &createdAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &entry.EventData); err != nil {
				return nil, err
			}
		}
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ Repository = (*PGRepository)(nil)
