// Package metadata exposes the shared column-metadata registry. The engine
// does not own this registry; it reads the status-domain expectations other
// tooling records per column.
package metadata

// StatusColumn is the configuration fact that a column holds references into
// the status catalog and which domain those references must belong to.
type StatusColumn struct {
	TableName  string `json:"table_name"`
	ColumnName string `json:"column_name"`
	EntityType string `json:"expected_entity_type"`
}
