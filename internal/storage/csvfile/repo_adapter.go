package csvfile

import (
	"context"

	"discogs/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("csv", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, Config{
			Dir:       cfg.Dir,
			Table:     cfg.Table,
			Columns:   cfg.Columns,
			Delimiter: cfg.Options.Rune("delimiter", ','),
		})
	})
}
