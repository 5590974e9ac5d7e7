// Package storage contains the backend-agnostic output contract for the
// destination tables and the factory that hands out concrete writers.
//
// Each destination table gets its own Repository, opened through New with a
// Config naming the backend kind. Backends register themselves from init
// (see internal/storage/all), so callers depend only on this package.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"discogs/internal/config"
)

// Repository accepts rows for exactly one destination table.
//
// CopyFrom must not retain rows after it returns; callers reuse the batch
// backing array. Close flushes anything the backend buffers itself and
// releases the table's resources. It is called exactly once.
type Repository interface {
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Close() error
}

// Config describes one destination table on one backend.
type Config struct {
	Kind string // registered backend kind, e.g. "csv", "postgres"
	DSN  string // connection string for database backends
	Dir  string // output directory for file backends

	Table   string   // destination table name (may be schema-qualified)
	Columns []string // ordered columns; every row has exactly these

	// Recreate drops an existing table (or truncates an existing file)
	// before the first write.
	Recreate bool

	// Options carries backend-specific knobs (e.g. "schema", "delimiter").
	Options config.Options
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
