package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opsgate/opsgate/internal/auth"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]Entry{
		{Tool: "sql_query", Roles: []auth.Role{auth.RoleAdmin, auth.RoleAnalyst, auth.RoleReadonly}},
		{Tool: "view_audit_log", Roles: []auth.Role{auth.RoleAdmin, auth.RoleAnalyst}},
	})
	require.NoError(t, err)
	return table
}

func TestIsPermitted_GrantedRole(t *testing.T) {
	table := testTable(t)
	require.True(t, table.IsPermitted("sql_query", auth.RoleReadonly))
	require.True(t, table.IsPermitted("view_audit_log", auth.RoleAnalyst))
}

func TestIsPermitted_DeniedRole(t *testing.T) {
	table := testTable(t)
	require.False(t, table.IsPermitted("view_audit_log", auth.RoleReadonly))
}

func TestIsPermitted_UnknownToolFailsClosed(t *testing.T) {
	table := testTable(t)
	require.False(t, table.IsPermitted("manage_users", auth.RoleAdmin))
	require.False(t, table.IsPermitted("", auth.RoleAdmin))
}

func TestNewTable_RejectsDuplicateTool(t *testing.T) {
	_, err := NewTable([]Entry{
		{Tool: "sql_query", Roles: []auth.Role{auth.RoleAdmin}},
		{Tool: "sql_query", Roles: []auth.Role{auth.RoleAnalyst}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate permission entry")
}

func TestNewTable_RejectsUnknownRole(t *testing.T) {
	_, err := NewTable([]Entry{
		{Tool: "sql_query", Roles: []auth.Role{auth.Role("root")}},
	})
	require.Error(t, err)
}
