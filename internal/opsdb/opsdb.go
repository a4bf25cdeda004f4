// Package opsdb manages the operations database that sql_query reads from.
// It is a demo dataset: the gateway only ever issues validated SELECTs
// against it, so the schema and seed data exist to give every role something
// real to query.
package opsdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // sqlite driver registration
)

const (
	// DefaultRowLimit is applied when a query carries no LIMIT clause.
	DefaultRowLimit = 100

	// MaxRowLimit caps the rows any single query may return.
	MaxRowLimit = 1000

	busyTimeoutMS = 5000
)

// DB wraps the sqlite operations database.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens the operations database at path, creating the schema and seed
// data on first use.
func Open(path string, logger zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("opsdb: create directory %s: %w", dir, err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opsdb: open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("opsdb: enable WAL: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("opsdb: set busy_timeout: %w", err)
	}

	db := &DB{db: sqlDB, logger: logger.With().Str("component", "opsdb").Logger()}
	if err := db.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := db.seed(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// QueryResult carries the rows a validated query produced.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
}

// ExecuteQuery runs an already-validated read-only query. If the query text
// carries no LIMIT clause one is appended; limit values outside 1..MaxRowLimit
// are clamped.
func (d *DB) ExecuteQuery(ctx context.Context, queryText string, limit int) (*QueryResult, error) {
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	if limit > MaxRowLimit {
		limit = MaxRowLimit
	}
	queryText = strings.TrimSuffix(strings.TrimSpace(queryText), ";")
	if !strings.Contains(strings.ToUpper(queryText), "LIMIT") {
		queryText = fmt.Sprintf("%s LIMIT %d", queryText, limit)
	}

	rows, err := d.db.QueryContext(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("opsdb: query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("opsdb: columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: []map[string]any{}}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("opsdb: scan: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[column] = string(v)
			default:
				row[column] = v
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("opsdb: iterating rows: %w", err)
	}
	return result, nil
}

// TableSchema describes one queryable table.
type TableSchema struct {
	Columns     []string `json:"columns"`
	Description string   `json:"description"`
}

// Schema returns the fixed catalogue of queryable tables.
func (d *DB) Schema() map[string]TableSchema {
	return map[string]TableSchema{
		"customers": {
			Columns:     []string{"id", "name", "email", "company", "industry", "created_at", "lifetime_value", "is_active"},
			Description: "Customer information including company and lifetime value",
		},
		"products": {
			Columns:     []string{"id", "name", "category", "price", "stock_quantity", "is_available"},
			Description: "Available products with pricing and inventory",
		},
		"orders": {
			Columns:     []string{"id", "customer_id", "order_date", "total_amount", "status", "shipping_city", "shipping_country"},
			Description: "Customer orders with status and shipping info",
		},
		"metrics": {
			Columns:     []string{"id", "date", "metric_name", "value", "dimension"},
			Description: "Daily business metrics and KPIs",
		},
	}
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT UNIQUE,
			company TEXT,
			industry TEXT,
			created_at TIMESTAMP,
			lifetime_value REAL NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			category TEXT,
			price REAL NOT NULL,
			stock_quantity INTEGER NOT NULL DEFAULT 0,
			is_available BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id INTEGER REFERENCES customers (id),
			order_date TIMESTAMP,
			total_amount REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			shipping_city TEXT,
			shipping_country TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TIMESTAMP NOT NULL,
			metric_name TEXT NOT NULL,
			value REAL NOT NULL,
			dimension TEXT
		)`,
	}
	for _, statement := range statements {
		if _, err := d.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("opsdb: migrate: %w", err)
		}
	}
	return nil
}
