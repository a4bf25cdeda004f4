package tools

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/opsgate/opsgate/api"
	"github.com/opsgate/opsgate/internal/audit"
	"github.com/opsgate/opsgate/internal/auth"
	"github.com/opsgate/opsgate/internal/opsdb"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	db, err := opsdb.Open(filepath.Join(t.TempDir(), "operations.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	trail := audit.NewTrail(audit.TrailConfig{
		Store:  audit.NewMemStore(),
		Logger: zerolog.Nop(),
	})
	return NewRunner(RunnerConfig{
		DB:     db,
		Trail:  trail,
		Logger: zerolog.Nop(),
	})
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(api.ToolsContract, newTestRunner(t))
	require.NoError(t, err)
	return registry
}

func TestNewRegistry_ParsesEmbeddedContract(t *testing.T) {
	registry := newTestRegistry(t)

	names := make([]string, 0)
	for _, descriptor := range registry.List() {
		names = append(names, descriptor.Name)
	}
	require.Equal(t, []string{"sql_query", "database_schema", "web_search", "weather", "geocode_location", "view_audit_log"}, names)
}

func TestNewRegistry_RejectsUnknownRole(t *testing.T) {
	contract := []byte(`
tools:
  - name: sql_query
    roles: [superuser]
`)
	_, err := NewRegistry(contract, newTestRunner(t))
	require.Error(t, err)
}

func TestNewRegistry_RejectsDuplicateTool(t *testing.T) {
	contract := []byte(`
tools:
  - name: sql_query
    roles: [admin]
  - name: sql_query
    roles: [admin]
`)
	_, err := NewRegistry(contract, newTestRunner(t))
	require.Error(t, err)
}

func TestNewRegistry_RejectsEntryWithoutHandler(t *testing.T) {
	contract := []byte(`
tools:
  - name: launch_missiles
    roles: [admin]
`)
	_, err := NewRegistry(contract, newTestRunner(t))
	require.Error(t, err)
}

func TestLookup_UnknownToolNotFound(t *testing.T) {
	registry := newTestRegistry(t)

	_, ok := registry.Lookup("no_such_tool")
	require.False(t, ok)
}

func TestDescriptor_QueryFieldOnlyOnSQLQuery(t *testing.T) {
	registry := newTestRegistry(t)

	sqlQuery, ok := registry.Lookup("sql_query")
	require.True(t, ok)
	require.Equal(t, "query", sqlQuery.QueryField)

	weather, ok := registry.Lookup("weather")
	require.True(t, ok)
	require.Empty(t, weather.QueryField)
}

func TestDescriptor_RoleGrants(t *testing.T) {
	registry := newTestRegistry(t)

	webSearch, ok := registry.Lookup("web_search")
	require.True(t, ok)
	require.ElementsMatch(t, []auth.Role{auth.RoleAdmin, auth.RoleAnalyst}, webSearch.Roles)

	sqlQuery, ok := registry.Lookup("sql_query")
	require.True(t, ok)
	require.Contains(t, sqlQuery.Roles, auth.RoleReadonly)
}

func TestValidateInput_RejectsMissingRequiredField(t *testing.T) {
	registry := newTestRegistry(t)
	sqlQuery, _ := registry.Lookup("sql_query")

	require.Error(t, sqlQuery.ValidateInput(map[string]any{}))
	require.NoError(t, sqlQuery.ValidateInput(map[string]any{"query": "SELECT 1"}))
}

func TestValidateInput_RejectsUnknownField(t *testing.T) {
	registry := newTestRegistry(t)
	sqlQuery, _ := registry.Lookup("sql_query")

	err := sqlQuery.ValidateInput(map[string]any{"query": "SELECT 1", "mode": "yolo"})
	require.Error(t, err)
}

func TestValidateInput_EnforcesBounds(t *testing.T) {
	registry := newTestRegistry(t)

	weather, _ := registry.Lookup("weather")
	require.Error(t, weather.ValidateInput(map[string]any{"latitude": 120.0, "longitude": 0.0}))
	require.NoError(t, weather.ValidateInput(map[string]any{"latitude": 52.52, "longitude": 13.4, "days": 3}))

	webSearch, _ := registry.Lookup("web_search")
	require.Error(t, webSearch.ValidateInput(map[string]any{"query": "news", "max_results": 50}))
	require.Error(t, webSearch.ValidateInput(map[string]any{"query": "news", "search_depth": "exhaustive"}))
}

func TestValidateOutput_RejectsMissingFields(t *testing.T) {
	registry := newTestRegistry(t)
	sqlQuery, _ := registry.Lookup("sql_query")

	require.Error(t, sqlQuery.ValidateOutput(map[string]any{"row_count": 1}))
	require.NoError(t, sqlQuery.ValidateOutput(map[string]any{
		"row_count":         1,
		"columns":           []string{"id"},
		"rows":              []map[string]any{{"id": 1}},
		"execution_time_ms": 0.5,
		"query_hash":        "abc123",
	}))
}
