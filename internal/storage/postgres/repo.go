// Package postgres implements a Postgres repository using pgx v5. Batches are
// streamed with COPY FROM STDIN straight into the destination table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"discogs/internal/ddl"
	"discogs/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN      string   // connection string for pgxpool
	Table    string   // possibly schema-qualified table, e.g. "discogs.release_genre"
	Columns  []string // ordered columns for COPY
	Recreate bool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

var pools = storage.Shared[*pgxpool.Pool]{
	Open: func(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		return pool, nil
	},
	Close: func(p *pgxpool.Pool) error { p.Close(); return nil },
}

// NewRepository acquires the pool for cfg.DSN, ensures the table exists and
// returns a Repository plus a release function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func() error, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, release, err := pools.Acquire(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	r := &Repository{pool: pool, cfg: cfg}
	if err := storage.EnsureTable(ctx, r.Exec, ddl.Postgres, storage.Config{
		Table:    cfg.Table,
		Columns:  cfg.Columns,
		Recreate: cfg.Recreate,
	}); err != nil {
		_ = release()
		return nil, nil, err
	}
	return r, release, nil
}

// CopyFrom streams rows into the table with COPY.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("postgres: copy into %s: %s (%s): %w", r.cfg.Table, pgErr.Detail, pgErr.SQLState(), err)
		}
		return n, fmt.Errorf("postgres: copy into %s: %w", r.cfg.Table, err)
	}
	return n, nil
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

// qualify prefixes table with schema when one is configured.
func qualify(schema, table string) string {
	schema = strings.TrimSpace(schema)
	if schema == "" || strings.Contains(table, ".") {
		return table
	}
	return schema + "." + table
}

// Exec runs a single statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}
