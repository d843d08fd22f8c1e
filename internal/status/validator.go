package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/castellan-io/castellan/internal/metadata"
)

// ColumnRegistry supplies the status-referencing columns configured for a
// table. Backed by the shared column-metadata registry.
type ColumnRegistry interface {
	StatusColumns(ctx context.Context, table string) ([]metadata.StatusColumn, error)
}

// Lookup resolves the domain a status value belongs to.
type Lookup interface {
	EntityTypeOf(ctx context.Context, id int64) (string, error)
}

// Validator guards row mutations on status-bearing tables: every configured
// column must reference a value from its expected domain. A violation is a
// hard failure that aborts the enclosing mutation.
type Validator struct {
	columns  ColumnRegistry
	statuses Lookup
}

// NewValidator constructs a Validator.
func NewValidator(columns ColumnRegistry, statuses Lookup) *Validator {
	return &Validator{columns: columns, statuses: statuses}
}

// CheckRow validates every configured status column of the incoming row.
// Null or absent columns are skipped; nullability belongs to the column's
// own constraint. A table with several status columns is checked once per
// column, all within the same mutation's guard.
func (v *Validator) CheckRow(ctx context.Context, table string, row map[string]any) error {
	columns, err := v.columns.StatusColumns(ctx, table)
	if err != nil {
		return fmt.Errorf("status: load column metadata for %s: %w", table, err)
	}
	for _, column := range columns {
		raw, present := row[column.ColumnName]
		if !present || raw == nil {
			continue
		}
		id, ok := toValueID(raw)
		if !ok {
			return &DomainViolationError{
				Table:    table,
				Column:   column.ColumnName,
				Expected: column.EntityType,
				NotFound: true,
			}
		}
		actual, err := v.statuses.EntityTypeOf(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return &DomainViolationError{
					Table:    table,
					Column:   column.ColumnName,
					Expected: column.EntityType,
					ValueID:  id,
					NotFound: true,
				}
			}
			return err
		}
		if actual != column.EntityType {
			return &DomainViolationError{
				Table:    table,
				Column:   column.ColumnName,
				Expected: column.EntityType,
				Actual:   actual,
				ValueID:  id,
			}
		}
	}
	return nil
}

// toValueID coerces the shapes a numeric id arrives in after JSON decoding.
func toValueID(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		id := int64(v)
		if float64(id) != v {
			return 0, false
		}
		return id, true
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	}
	return 0, false
}
