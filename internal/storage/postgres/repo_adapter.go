// Package postgres wires the Postgres backend into the storage factory by
// registering a constructor at init time. Callers obtain a Repository via
// storage.New without importing this package directly.
package postgres

import (
	"context"

	"discogs/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to *Repository;
// Close releases the shared pool.
type wrappedRepo struct {
	*Repository
	closeFn func() error
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() error {
	if w.closeFn == nil {
		return nil
	}
	return w.closeFn()
}

// init registers the "postgres" backend. The "schema" option qualifies
// unqualified table names.
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:      cfg.DSN,
			Table:    qualify(cfg.Options.String("schema", ""), cfg.Table),
			Columns:  cfg.Columns,
			Recreate: cfg.Recreate,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}
