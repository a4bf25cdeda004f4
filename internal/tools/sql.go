package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type sqlQueryResult struct {
	RowCount        int              `json:"row_count"`
	Columns         []string         `json:"columns"`
	Rows            []map[string]any `json:"rows"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
	QueryHash       string           `json:"query_hash"`
}

// sqlQuery runs a read-only query against the operations database. Query
// safety is already established by the time a handler runs; this only
// executes and shapes the result.
func (r *Runner) sqlQuery(ctx context.Context, args map[string]any) (map[string]any, error) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := r.db.ExecuteQuery(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	elapsed := time.Since(start)

	digest := sha256.Sum256([]byte(req.Query))
	queryHash := hex.EncodeToString(digest[:])[:16]

	r.logger.Info().
		Int("rows", len(result.Rows)).
		Dur("elapsed", elapsed).
		Str("query_hash", queryHash).
		Msg("query executed")

	return toMap(sqlQueryResult{
		RowCount:        len(result.Rows),
		Columns:         result.Columns,
		Rows:            result.Rows,
		ExecutionTimeMS: float64(elapsed.Microseconds()) / 1000,
		QueryHash:       queryHash,
	})
}

// databaseSchema returns the catalogue of queryable tables so callers can
// write queries without guessing column names.
func (r *Runner) databaseSchema(_ context.Context, _ map[string]any) (map[string]any, error) {
	schema := r.db.Schema()
	tables := make(map[string]any, len(schema))
	descriptions := make(map[string]any, len(schema))
	for name, table := range schema {
		tables[name] = table.Columns
		descriptions[name] = table.Description
	}
	return map[string]any{
		"tables":       tables,
		"descriptions": descriptions,
	}, nil
}
