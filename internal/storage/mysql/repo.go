// Package mysql implements a MySQL repository over database/sql and
// go-sql-driver/mysql. Batches are written as multi-row INSERT statements
// inside one transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"discogs/internal/ddl"
	"discogs/internal/storage"
)

// maxPlaceholders is the server's limit on bound parameters per statement.
const maxPlaceholders = 65535

// maxRowsPerInsert keeps individual statements well under max_allowed_packet.
const maxRowsPerInsert = 1000

// Config holds MySQL repository configuration.
type Config struct {
	DSN      string // e.g. "user:pass@tcp(localhost:3306)/discogs?charset=utf8mb4"
	Table    string
	Columns  []string
	Recreate bool
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db   *sql.DB
	cfg  Config
	head string // INSERT INTO `t` (`a`,`b`) VALUES
	tup  string // (?,?)
}

var pools = storage.Shared[*sql.DB]{
	Open: func(ctx context.Context, dsn string) (*sql.DB, error) {
		db, err := sql.Open("mysql", dsn)
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
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	if len(cfg.Columns) == 0 {
		return nil, nil, fmt.Errorf("mysql: columns must not be empty")
	}
	db, release, err := pools.Acquire(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	r := newRepo(db, cfg)
	if err := storage.EnsureTable(ctx, r.Exec, ddl.MySQL, storage.Config{
		Table:    cfg.Table,
		Columns:  cfg.Columns,
		Recreate: cfg.Recreate,
	}); err != nil {
		_ = release()
		return nil, nil, err
	}
	return r, release, nil
}

func newRepo(db *sql.DB, cfg Config) *Repository {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(cfg.Columns)), ",")
	return &Repository{
		db:  db,
		cfg: cfg,
		head: fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
			ddl.MySQL.QuoteFQN(cfg.Table), strings.Join(ddl.MySQL.QuoteAll(cfg.Columns), ",")),
		tup: "(" + marks + ")",
	}
}

// chunkSize returns how many rows fit in one INSERT for ncols columns.
func chunkSize(ncols int) int {
	n := maxPlaceholders / ncols
	if n > maxRowsPerInsert {
		n = maxRowsPerInsert
	}
	if n < 1 {
		n = 1
	}
	return n
}

// insertSQL renders the statement for n rows.
func (r *Repository) insertSQL(n int) string {
	var sb strings.Builder
	sb.Grow(len(r.head) + n*(len(r.tup)+1))
	sb.WriteString(r.head)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r.tup)
	}
	return sb.String()
}

// CopyFrom inserts rows in multi-row chunks within a single transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) != len(r.cfg.Columns) {
		return 0, fmt.Errorf("mysql: CopyFrom: got %d columns, want %d", len(columns), len(r.cfg.Columns))
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	step := chunkSize(len(columns))
	args := make([]any, 0, step*len(columns))
	var inserted int64
	for start := 0; start < len(rows); start += step {
		end := min(start+step, len(rows))
		args = args[:0]
		for _, row := range rows[start:end] {
			if len(row) != len(columns) {
				rollback()
				return 0, fmt.Errorf("mysql: CopyFrom: row length %d != columns length %d", len(row), len(columns))
			}
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, r.insertSQL(end-start), args...)
		if err != nil {
			rollback()
			return 0, fmt.Errorf("insert into %s: %w", r.cfg.Table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}
