package status

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RowWriter performs row mutations on dynamically named tables. The guarded
// implementation is the only write path the service hands out, so every
// mutation passes the domain validator regardless of who calls it.
type RowWriter interface {
	InsertRow(ctx context.Context, table string, row map[string]any) error
	UpdateRow(ctx context.Context, table string, id int64, row map[string]any) error
}

// WriteGate decides whether the caller may mutate rows of a table. It is
// the permission evaluator seen through the narrow lens this package needs.
type WriteGate interface {
	Can(ctx context.Context, table, operation string) (bool, error)
}

// GuardedWriter decorates a RowWriter with the status-domain validator.
type GuardedWriter struct {
	next      RowWriter
	validator *Validator
}

// NewGuardedWriter constructs the decorator.
func NewGuardedWriter(next RowWriter, validator *Validator) *GuardedWriter {
	return &GuardedWriter{next: next, validator: validator}
}

// InsertRow validates then delegates.
func (w *GuardedWriter) InsertRow(ctx context.Context, table string, row map[string]any) error {
	if err := w.validator.CheckRow(ctx, table, row); err != nil {
		return err
	}
	return w.next.InsertRow(ctx, table, row)
}

// UpdateRow validates then delegates.
func (w *GuardedWriter) UpdateRow(ctx context.Context, table string, id int64, row map[string]any) error {
	if err := w.validator.CheckRow(ctx, table, row); err != nil {
		return err
	}
	return w.next.UpdateRow(ctx, table, id, row)
}

// PGRowWriter writes rows with dynamically sanitized identifiers. Values are
// always bound as parameters; only identifiers are interpolated, through
// pgx.Identifier quoting.
type PGRowWriter struct {
	pool *pgxpool.Pool
}

// NewRowWriter constructs a PGRowWriter.
func NewRowWriter(pool *pgxpool.Pool) *PGRowWriter {
	return &PGRowWriter{pool: pool}
}

// InsertRow inserts a row into the named table.
func (w *PGRowWriter) InsertRow(ctx context.Context, table string, row map[string]any) error {
	if len(row) == 0 {
		return fmt.Errorf("status: empty row for %s", table)
	}
	columns, args := orderedColumns(row)
	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, column := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quoted[i] = pgx.Identifier{column}.Sanitize()
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
	_, err := w.pool.Exec(ctx, query, args...)
	return err
}

// UpdateRow updates a row by id in the named table.
func (w *PGRowWriter) UpdateRow(ctx context.Context, table string, id int64, row map[string]any) error {
	if len(row) == 0 {
		return fmt.Errorf("status: empty row for %s", table)
	}
	columns, args := orderedColumns(row)
	assignments := make([]string, len(columns))
	for i, column := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{column}.Sanitize(), i+1)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(assignments, ", "),
		len(args))
	_, err := w.pool.Exec(ctx, query, args...)
	return err
}

func orderedColumns(row map[string]any) ([]string, []any) {
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	args := make([]any, len(columns))
	for i, column := range columns {
		args[i] = row[column]
	}
	return columns, args
}

var _ RowWriter = (*PGRowWriter)(nil)
var _ RowWriter = (*GuardedWriter)(nil)
