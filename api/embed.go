// Package api carries the embedded tool contract served and enforced by the
// gateway.
package api

import _ "embed"

// ToolsContract is the YAML tool contract: names, role grants, and
// input/output schemas for every tool the gateway exposes.
//
//go:embed tools.yaml
var ToolsContract []byte
