package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/CangTianYi/CS3331/internal/model"
)

// DB is the storage backend. It owns a single SQLite connection and offers
// one entry point per result shape: Exec for writes, QueryAll for row sets
// and QueryOne for at most one row.
type DB struct {
	sql *sql.DB
}

// Result describes the outcome of a write.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// pragmas are applied by the driver to every connection it opens.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// Open opens a SQLite database connection and configures pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database is per connection, so keep exactly one.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &DB{sql: db}, nil
}

// dsn appends the pragmas as _pragma query parameters.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(path)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Exec runs a write statement. Every write commits immediately.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := d.sql.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, classify(err)
	}

	var out Result
	if out.LastInsertID, err = res.LastInsertId(); err != nil {
		return Result{}, fmt.Errorf("getting last insert id: %w", err)
	}
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return Result{}, fmt.Errorf("getting rows affected: %w", err)
	}
	return out, nil
}

// QueryAll runs a query and calls scan once per row, in order.
func (d *DB) QueryAll(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// QueryOne runs a query expected to match at most one row and scans it into
// dest. It reports false when no row matched.
func (d *DB) QueryOne(ctx context.Context, query string, dest []any, args ...any) (bool, error) {
	err := d.sql.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return true, nil
}

// classify maps SQLite constraint failures onto the model error kinds.
func classify(err error) error {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return err
	}

	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", model.ErrConflict, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: referenced row missing: %w", model.ErrNotFound, err)
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return fmt.Errorf("%w: %w", model.ErrValidation, err)
	}
	if serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w", model.ErrConflict, err)
	}
	return err
}
