// Package duckdb implements a DuckDB repository using the native Appender
// API. All tables on one DSN share a connector and *sql.DB; every table gets
// its own driver connection and appender, so category workers append in
// parallel without sharing state.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/duckdb/duckdb-go/v2"

	"discogs/internal/ddl"
	"discogs/internal/storage"
)

// Config holds DuckDB repository configuration. An empty DSN opens an
// in-memory database.
type Config struct {
	DSN      string
	Table    string
	Columns  []string
	Recreate bool
}

type engine struct {
	connector *duckdb.Connector
	db        *sql.DB
}

var engines = storage.Shared[*engine]{
	Open: func(ctx context.Context, dsn string) (*engine, error) {
		connector, err := duckdb.NewConnector(dsn, nil)
		if err != nil {
			return nil, fmt.Errorf("duckdb: connector: %w", err)
		}
		db := sql.OpenDB(connector)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("duckdb: ping: %w", err)
		}
		return &engine{connector: connector, db: db}, nil
	},
	Close: func(e *engine) error {
		return errors.Join(e.db.Close(), e.connector.Close())
	},
}

// Repository appends rows to one DuckDB table.
type Repository struct {
	cfg      Config
	db       *sql.DB
	conn     driver.Conn
	appender *duckdb.Appender
}

// NewRepository ensures the table exists, opens a dedicated connection with
// an appender on it and returns the Repository plus its close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func() error, error) {
	if len(cfg.Columns) == 0 {
		return nil, nil, fmt.Errorf("duckdb: columns must not be empty")
	}
	e, release, err := engines.Acquire(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	r := &Repository{cfg: cfg, db: e.db}
	fail := func(err error) (*Repository, func() error, error) {
		if r.conn != nil {
			_ = r.conn.Close()
		}
		_ = release()
		return nil, nil, err
	}

	if err := storage.EnsureTable(ctx, r.Exec, ddl.DuckDB, storage.Config{
		Table:    cfg.Table,
		Columns:  cfg.Columns,
		Recreate: cfg.Recreate,
	}); err != nil {
		return fail(err)
	}

	conn, err := e.connector.Connect(ctx)
	if err != nil {
		return fail(fmt.Errorf("duckdb: connect: %w", err))
	}
	r.conn = conn
	duckConn, ok := conn.(*duckdb.Conn)
	if !ok {
		return fail(fmt.Errorf("duckdb: unexpected connection type %T", conn))
	}
	schema, table := splitFQN(cfg.Table)
	r.appender, err = duckdb.NewAppenderFromConn(duckConn, schema, table)
	if err != nil {
		return fail(fmt.Errorf("duckdb: appender %s: %w", cfg.Table, err))
	}

	closeFn := func() error {
		return errors.Join(r.appender.Close(), r.conn.Close(), release())
	}
	return r, closeFn, nil
}

// CopyFrom appends rows and flushes the appender so the batch is visible to
// other connections.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) != len(r.cfg.Columns) {
		return 0, fmt.Errorf("duckdb: CopyFrom: got %d columns, want %d", len(columns), len(r.cfg.Columns))
	}
	vals := make([]driver.Value, len(columns))
	for i, row := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if len(row) != len(vals) {
			return 0, fmt.Errorf("duckdb: CopyFrom: row length %d != columns length %d", len(row), len(vals))
		}
		for j, v := range row {
			vals[j] = v
		}
		if err := r.appender.AppendRow(vals...); err != nil {
			return 0, fmt.Errorf("duckdb: append %s row %d: %w", r.cfg.Table, i, err)
		}
	}
	if err := r.appender.Flush(); err != nil {
		return 0, fmt.Errorf("duckdb: flush %s: %w", r.cfg.Table, err)
	}
	return int64(len(rows)), nil
}

// Exec runs a single statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("duckdb: exec: %w", err)
	}
	return nil
}

// Count returns the number of rows in the table.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + ddl.DuckDB.QuoteFQN(r.cfg.Table)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("duckdb: count %s: %w", r.cfg.Table, err)
	}
	return n, nil
}

// splitFQN splits "schema.table"; the schema is empty when unqualified.
func splitFQN(fqn string) (schema, table string) {
	for i := len(fqn) - 1; i >= 0; i-- {
		if fqn[i] == '.' {
			return fqn[:i], fqn[i+1:]
		}
	}
	return "", fqn
}
