package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"

	_ "github.com/lib/pq"       // postgres driver registration
	_ "modernc.org/sqlite"      // sqlite driver registration
)

const sqliteBusyTimeoutMS = 5000

// SQLStore persists invocation records in a SQL database. It supports the
// pure-Go sqlite driver for single-node deployments and postgres for shared
// ones; the schema and query paths are identical apart from placeholders.
type SQLStore struct {
	db       *sql.DB
	sb       sq.StatementBuilderType
	postgres bool
}

// OpenSQLite opens (and migrates) a sqlite-backed store at path. The
// database is created with WAL mode, a busy timeout, and a single connection
// so concurrent appends serialise without corruption.
func OpenSQLite(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("audit: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", sqliteBusyTimeoutMS)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: set busy_timeout: %w", err)
	}

	store := &SQLStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenPostgres opens (and migrates) a postgres-backed store.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open postgres: %w", err)
	}

	store := &SQLStore{
		db:       db,
		sb:       sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		postgres: true,
	}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.postgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS audit_logs (
	id %s,
	ts TIMESTAMP NOT NULL,
	principal TEXT NOT NULL,
	role TEXT NOT NULL,
	tool TEXT NOT NULL,
	input TEXT NOT NULL,
	outcome TEXT NOT NULL,
	error_code TEXT NOT NULL DEFAULT '',
	result_summary TEXT NOT NULL DEFAULT '',
	latency_ms REAL NOT NULL DEFAULT 0
)`, idColumn)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: migrate schema: %w", err)
	}
	for _, index := range []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_ts ON audit_logs (ts)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_principal ON audit_logs (principal)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_tool ON audit_logs (tool)",
	} {
		if _, err := s.db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("audit: migrate index: %w", err)
		}
	}
	return nil
}

// Ping checks store connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Append writes one record and returns the store-assigned identifier.
// Failures are wrapped in ErrUnavailable so the dispatcher fails closed.
func (s *SQLStore) Append(ctx context.Context, record Record) (int64, error) {
	encodedInput, err := json.Marshal(record.Input)
	if err != nil {
		return 0, fmt.Errorf("%w: encoding input: %v", ErrUnavailable, err)
	}

	insert := s.sb.
		Insert("audit_logs").
		Columns("ts", "principal", "role", "tool", "input", "outcome", "error_code", "result_summary", "latency_ms").
		Values(
			record.Timestamp.UTC(),
			record.Principal,
			record.Role,
			record.Tool,
			string(encodedInput),
			string(record.Outcome),
			record.ErrorCode,
			record.ResultSummary,
			record.LatencyMS,
		)

	if s.postgres {
		sqlStr, args, buildErr := insert.Suffix("RETURNING id").ToSql()
		if buildErr != nil {
			return 0, fmt.Errorf("%w: building insert: %v", ErrUnavailable, buildErr)
		}
		var id int64
		if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return id, nil
	}

	sqlStr, args, buildErr := insert.ToSql()
	if buildErr != nil {
		return 0, fmt.Errorf("%w: building insert: %v", ErrUnavailable, buildErr)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

// Query returns records matching filter, newest first.
func (s *SQLStore) Query(ctx context.Context, filter Filter) ([]Record, error) {
	query := s.sb.
		Select("id", "ts", "principal", "role", "tool", "input", "outcome", "error_code", "result_summary", "latency_ms").
		From("audit_logs").
		OrderBy("ts DESC", "id DESC")

	if filter.Principal != "" {
		query = query.Where(sq.Eq{"principal": filter.Principal})
	}
	if filter.Tool != "" {
		query = query.Where(sq.Eq{"tool": filter.Tool})
	}
	if filter.Outcome != "" {
		query = query.Where(sq.Eq{"outcome": filter.Outcome})
	}
	if !filter.From.IsZero() {
		query = query.Where(sq.GtOrEq{"ts": filter.From.UTC()})
	}
	if !filter.To.IsZero() {
		query = query.Where(sq.LtOrEq{"ts": filter.To.UTC()})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("audit: building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: querying records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			record       Record
			encodedInput string
		)
		if err := rows.Scan(
			&record.ID,
			&record.Timestamp,
			&record.Principal,
			&record.Role,
			&record.Tool,
			&encodedInput,
			&record.Outcome,
			&record.ErrorCode,
			&record.ResultSummary,
			&record.LatencyMS,
		); err != nil {
			return nil, fmt.Errorf("audit: scanning record: %w", err)
		}
		if encodedInput != "" && encodedInput != "null" {
			if err := json.Unmarshal([]byte(encodedInput), &record.Input); err != nil {
				return nil, fmt.Errorf("audit: decoding record %d input: %w", record.ID, err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterating records: %w", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
