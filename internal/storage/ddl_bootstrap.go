package storage

import (
	"context"
	"fmt"

	"discogs/internal/ddl"
)

// ExecFn runs one SQL statement, typically DDL.
type ExecFn func(ctx context.Context, sql string) error

// EnsureTable prepares cfg.Table on a SQL backend: when cfg.Recreate is set
// the table is dropped first, then it is created if missing. Every column is
// the dialect's text type.
func EnsureTable(ctx context.Context, exec ExecFn, d ddl.Dialect, cfg Config) error {
	if cfg.Recreate {
		if err := exec(ctx, d.DropTable(cfg.Table)); err != nil {
			return fmt.Errorf("%s: drop %s: %w", d.Name, cfg.Table, err)
		}
	}
	stmt, err := d.CreateTable(ddl.TextTable(cfg.Table, cfg.Columns))
	if err != nil {
		return err
	}
	if err := exec(ctx, stmt); err != nil {
		return fmt.Errorf("%s: create %s: %w", d.Name, cfg.Table, err)
	}
	return nil
}
