package main

import (
	"strings"
	"testing"
)

// Repositories prepare their statements against these tables, so the DDL
// must declare every column they reference. The stub-backed handler tests
// never touch the schema, which is why the contract is pinned here.
func TestSchemaDeclaresRepositoryColumns(t *testing.T) {
	required := map[string][]string{
		"roles":                {"id", "name", "description", "created_at", "updated_at"},
		"permission_grants":    {"table_name", "operation", "role_id"},
		"entity_actions":       {"table_name", "action_name", "rpc_reference", "label", "confirmation_text", "condition_expr", "created_at", "updated_at"},
		"entity_action_grants": {"entity_action_id", "role_id"},
		"status_domains":       {"entity_type", "description"},
		"status_values":        {"entity_type", "status_key", "display_name", "color", "sort_order", "is_initial", "is_terminal"},
		"column_metadata":      {"table_name", "column_name", "status_entity_type"},
		"admin_audit_log":      {"id", "real_user_id", "real_user_email", "event_type", "event_data", "created_at"},
	}

	for table, columns := range required {
		ddl := tableDDL(t, table)
		for _, column := range columns {
			if !strings.Contains(ddl, column+" ") {
				t.Errorf("table %s: column %s missing from DDL", table, column)
			}
		}
	}
}

func TestSchemaKeepsGrantConflictTargets(t *testing.T) {
	if ddl := tableDDL(t, "entity_action_grants"); !strings.Contains(ddl, "PRIMARY KEY (entity_action_id, role_id)") {
		t.Error("entity_action_grants primary key must cover (entity_action_id, role_id); the upsert relies on it as conflict target")
	}
	if ddl := tableDDL(t, "permission_grants"); !strings.Contains(ddl, "UNIQUE (table_name, operation, role_id)") {
		t.Error("permission_grants must keep the (table_name, operation, role_id) unique constraint; the upsert relies on it as conflict target")
	}
}

func TestSchemaKeepsInitialStatusIndex(t *testing.T) {
	for _, stmt := range statements {
		if strings.Contains(stmt, "ux_status_values_initial") &&
			strings.Contains(stmt, "WHERE is_initial") {
			return
		}
	}
	t.Fatal("partial unique index ux_status_values_initial missing; it enforces at most one initial value per domain")
}

func tableDDL(t *testing.T, table string) string {
	t.Helper()
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	for _, stmt := range statements {
		if strings.Contains(stmt, marker) {
			return stmt
		}
	}
	t.Fatalf("no CREATE TABLE statement for %s", table)
	return ""
}
