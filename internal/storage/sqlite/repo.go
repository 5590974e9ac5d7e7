// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. SQLite has no bulk-load API comparable to COPY, so each batch
// is a transaction around a prepared INSERT.
//
// Every destination table on the same DSN shares one *sql.DB limited to a
// single open connection; writers from concurrent categories queue on it
// instead of failing with SQLITE_BUSY.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"discogs/internal/ddl"
	"discogs/internal/storage"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:discogs.db?_pragma=foreign_keys(1)"
	//   "discogs.db"
	DSN string

	Table   string
	Columns []string

	// Recreate drops the table before the first write.
	Recreate bool

	// BusyTimeout is applied with PRAGMA busy_timeout when the shared
	// handle is first opened.
	BusyTimeout time.Duration
}

// Repository is a SQLite-backed implementation of storage.Repository for one
// table.
type Repository struct {
	db     *sql.DB
	cfg    Config
	insert string
}

var handles = storage.Shared[*sql.DB]{
	Open:  openDB,
	Close: func(db *sql.DB) error { return db.Close() },
}

// busyTimeoutMS is read by openDB when a DSN is first opened.
var busyTimeoutMS atomic.Int64

func init() { busyTimeoutMS.Store(5000) }

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// WAL is refused for :memory: databases; that is harmless.
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL;")
	_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS.Load()))
	return db, nil
}

// NewRepository acquires the shared handle for cfg.DSN, ensures the table
// exists and returns a Repository plus a release function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func() error, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if len(cfg.Columns) == 0 {
		return nil, nil, fmt.Errorf("sqlite: columns must not be empty")
	}
	if cfg.BusyTimeout > 0 {
		busyTimeoutMS.Store(cfg.BusyTimeout.Milliseconds())
	}

	db, release, err := handles.Acquire(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	r := &Repository{db: db, cfg: cfg, insert: insertSQL(cfg.Table, cfg.Columns)}

	if err := storage.EnsureTable(ctx, r.Exec, ddl.SQLite, storage.Config{
		Table:    cfg.Table,
		Columns:  cfg.Columns,
		Recreate: cfg.Recreate,
	}); err != nil {
		_ = release()
		return nil, nil, err
	}
	return r, release, nil
}

// insertSQL builds INSERT INTO "t" ("a", "b") VALUES (?, ?).
func insertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ddl.SQLite.QuoteFQN(table),
		strings.Join(ddl.SQLite.QuoteAll(columns), ", "),
		strings.Join(placeholders, ", "),
	)
}

// CopyFrom inserts rows into the table using a single transaction and a
// prepared INSERT statement.
//
// It returns the number of rows inserted or an error. len(row) must equal
// len(columns) for every row.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) != len(r.cfg.Columns) {
		return 0, fmt.Errorf("sqlite: CopyFrom: got %d columns, want %d", len(columns), len(r.cfg.Columns))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, r.insert)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert into %s: %w", r.cfg.Table, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Count returns the number of rows in the table.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + ddl.SQLite.QuoteFQN(r.cfg.Table)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", r.cfg.Table, err)
	}
	return n, nil
}
