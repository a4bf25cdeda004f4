// Package policy defines the static role-based permission table gating
// every tool execution.
package policy

import (
	"fmt"
	"strings"

	"github.com/opsgate/opsgate/internal/auth"
)

// Entry grants a set of roles access to one tool.
type Entry struct {
	Tool  string
	Roles []auth.Role
}

// Table is an immutable tool→permitted-roles mapping, fixed at startup.
// No mutation API is exposed after construction so a compromised tool body
// cannot escalate privileges.
type Table struct {
	permitted map[string]map[auth.Role]struct{}
}

// NewTable builds a permission table from entries. Duplicate tools and
// unknown roles are configuration errors.
func NewTable(entries []Entry) (*Table, error) {
	permitted := make(map[string]map[auth.Role]struct{}, len(entries))
	for _, entry := range entries {
		tool := strings.TrimSpace(entry.Tool)
		if tool == "" {
			return nil, fmt.Errorf("permission entry has empty tool name")
		}
		if _, exists := permitted[tool]; exists {
			return nil, fmt.Errorf("duplicate permission entry for tool %q", tool)
		}
		roles := make(map[auth.Role]struct{}, len(entry.Roles))
		for _, role := range entry.Roles {
			parsed, err := auth.ParseRole(string(role))
			if err != nil {
				return nil, fmt.Errorf("permission entry for tool %q: %w", tool, err)
			}
			roles[parsed] = struct{}{}
		}
		permitted[tool] = roles
	}
	return &Table{permitted: permitted}, nil
}

// IsPermitted reports whether role may invoke the named tool.
// Unknown tools are not permitted (fail-closed).
func (t *Table) IsPermitted(toolName string, role auth.Role) bool {
	roles, ok := t.permitted[strings.TrimSpace(toolName)]
	if !ok {
		return false
	}
	_, allowed := roles[role]
	return allowed
}
