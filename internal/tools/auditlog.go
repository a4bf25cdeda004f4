package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/opsgate/opsgate/internal/audit"
)

const defaultAuditLogLimit = 20

// viewAuditLog returns recent invocation records, newest first. Records come
// back exactly as stored: already redacted, never rewritten.
func (r *Runner) viewAuditLog(ctx context.Context, args map[string]any) (map[string]any, error) {
	var req struct {
		Principal string `json:"principal"`
		ToolName  string `json:"tool_name"`
		Outcome   string `json:"outcome"`
		FromTime  string `json:"from_time"`
		ToTime    string `json:"to_time"`
		Limit     int    `json:"limit"`
	}
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = defaultAuditLogLimit
	}

	filter := audit.Filter{
		Principal: req.Principal,
		Tool:      req.ToolName,
		Outcome:   req.Outcome,
		Limit:     req.Limit,
	}
	if req.FromTime != "" {
		from, err := time.Parse(time.RFC3339, req.FromTime)
		if err != nil {
			return nil, fmt.Errorf("parsing from_time: %w", err)
		}
		filter.From = from
	}
	if req.ToTime != "" {
		to, err := time.Parse(time.RFC3339, req.ToTime)
		if err != nil {
			return nil, fmt.Errorf("parsing to_time: %w", err)
		}
		filter.To = to
	}

	records, err := r.trail.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	if records == nil {
		records = []audit.Record{}
	}

	return toMap(map[string]any{
		"entries": records,
		"count":   len(records),
	})
}
