// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. Each batch is one bulk insert inside a
// transaction, directly into the destination table.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"discogs/internal/ddl"
	"discogs/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN      string
	Table    string // possibly schema-qualified, e.g. "dbo.release_track"
	Columns  []string
	Recreate bool
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

var pools = storage.Shared[*sql.DB]{
	Open: func(ctx context.Context, dsn string) (*sql.DB, error) {
		db, err := sql.Open("sqlserver", dsn)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping: %w", err)
		}
		return db, nil
	},
	Close: func(db *sql.DB) error { return db.Close() },
}

// NewRepository validates the DSN, acquires the shared pool, ensures the
// table exists and returns a Repository plus a release function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func() error, error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, release, err := pools.Acquire(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	r := &Repository{db: db, cfg: cfg}
	if err := storage.EnsureTable(ctx, r.Exec, ddl.MSSQL, storage.Config{
		Table:    cfg.Table,
		Columns:  cfg.Columns,
		Recreate: cfg.Recreate,
	}); err != nil {
		_ = release()
		return nil, nil, err
	}
	return r, release, nil
}

// CopyFrom performs a bulk insert directly into the configured table.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.cfg.Table, mssql.BulkOptions{Tablock: true}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare bulk %s: %w", r.cfg.Table, err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql: exec: %w", err)
	}
	return nil
}

// qualify prefixes table with schema when one is configured.
func qualify(schema, table string) string {
	schema = strings.TrimSpace(schema)
	if schema == "" || strings.Contains(table, ".") {
		return table
	}
	return schema + "." + table
}
