// Package sqlexec runs emitted SQL against an in-memory SQLite
// database, so a rendered query can be executed in the same invocation
// that produced it. Opaque sources become single-column tables named
// after the source, with the column named "value".
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Executor owns one in-memory database per instance. Instances are not
// safe for concurrent use; open one per execution.
type Executor struct {
	db *sql.DB
}

// Open creates a fresh in-memory database.
func Open() (*Executor, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// the recursive range CTEs grow linearly with range size; one
	// connection keeps the temp tables on a single handle
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Executor{db: db}, nil
}

// Close releases the database.
func (e *Executor) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

// LoadSource creates the backing table for one opaque source and fills
// it with the given values.
func (e *Executor) LoadSource(ctx context.Context, name string, values []int64) error {
	if !validIdent(name) {
		return fmt.Errorf("invalid source name %q", name)
	}
	if _, err := e.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (value INTEGER NOT NULL)", name)); err != nil {
		return fmt.Errorf("failed to create source table %s: %w", name, err)
	}
	if len(values) == 0 {
		return nil
	}

	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "(?)"
		args[i] = v
	}
	stmt := fmt.Sprintf("INSERT INTO %s (value) VALUES %s", name, strings.Join(placeholders, ", "))
	if _, err := e.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to load source %s: %w", name, err)
	}
	return nil
}

// Query runs an emitted query and returns all rows, each as the slice
// of column values. Aggregate NULLs (e.g. SUM over zero rows) come
// back as nil entries.
func (e *Executor) Query(ctx context.Context, query string) ([][]any, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		row := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func validIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
