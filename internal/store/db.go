package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"classtrack/internal/apperr"
)

// DB wraps the SQLite handle and translates driver faults into
// apperr.StoreError for the domain layer.
type DB struct {
	Client *sql.DB
}

// Open creates the database file if needed, applies the schema and the
// additive hour-column upgrade, and returns a ready handle. Migration
// completes before any request is served.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{Client: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Healthy verifies the database answers.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Result reports what a write statement did.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Execute runs a write statement and returns affected-row metadata plus
// the last inserted row id.
func (d *DB) Execute(ctx context.Context, stmt string, args ...any) (Result, error) {
	res, err := d.Client.ExecContext(ctx, stmt, args...)
	if err != nil {
		return Result{}, apperr.Store("exec", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, apperr.Store("rows affected", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Result{}, apperr.Store("last insert id", err)
	}
	return Result{RowsAffected: affected, LastInsertID: id}, nil
}

// QueryOne runs a single-row query. The scan function receives the row;
// sql.ErrNoRows is reported as found=false, not as an error.
func (d *DB) QueryOne(ctx context.Context, stmt string, scan func(*sql.Row) error, args ...any) (bool, error) {
	row := d.Client.QueryRowContext(ctx, stmt, args...)
	if err := scan(row); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, apperr.Store("query one", err)
	}
	return true, nil
}

// QueryMany runs a multi-row query, invoking scan per row in order.
func (d *DB) QueryMany(ctx context.Context, stmt string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := d.Client.QueryContext(ctx, stmt, args...)
	if err != nil {
		return apperr.Store("query", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return apperr.Store("scan", err)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Store("rows", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error.
func (d *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.Client.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Store("begin tx", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Store("commit", err)
	}
	return nil
}
