// Package csvfile implements a storage.Repository that writes one delimited
// text file per destination table: <dir>/<table>.csv, header row first.
package csvfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds CSV repository configuration derived from storage.Config.
type Config struct {
	Dir       string
	Table     string
	Columns   []string
	Delimiter rune
}

// Repository writes rows for one table to its own file. It is owned by a
// single sink and is not safe for concurrent use.
type Repository struct {
	cfg  Config
	path string
	f    *os.File
	bw   *bufio.Writer
	w    *csv.Writer
	rec  []string
}

// NewRepository creates (or truncates) the table file and writes the header.
func NewRepository(_ context.Context, cfg Config) (*Repository, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("csv: dir must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" || strings.ContainsAny(cfg.Table, `/\`) {
		return nil, fmt.Errorf("csv: invalid table name %q", cfg.Table)
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("csv: columns must not be empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("csv: mkdir %s: %w", cfg.Dir, err)
	}

	path := filepath.Join(cfg.Dir, cfg.Table+".csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	w := csv.NewWriter(bw)
	if cfg.Delimiter != 0 {
		w.Comma = cfg.Delimiter
	}
	r := &Repository{cfg: cfg, path: path, f: f, bw: bw, w: w, rec: make([]string, len(cfg.Columns))}
	if err := w.Write(cfg.Columns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: header %s: %w", path, err)
	}
	return r, nil
}

// Path returns the file being written.
func (r *Repository) Path() string { return r.path }

// CopyFrom appends rows to the file. nil values are written as empty fields.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) != len(r.cfg.Columns) {
		return 0, fmt.Errorf("csv: %s: got %d columns, want %d", r.cfg.Table, len(columns), len(r.cfg.Columns))
	}
	var n int64
	for i, row := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		if len(row) != len(r.rec) {
			return n, fmt.Errorf("csv: %s: row length %d != columns length %d", r.cfg.Table, len(row), len(r.rec))
		}
		for j, v := range row {
			r.rec[j] = toString(v)
		}
		if err := r.w.Write(r.rec); err != nil {
			return n, fmt.Errorf("csv: write %s: %w", r.path, err)
		}
		n++
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return n, fmt.Errorf("csv: write %s: %w", r.path, err)
	}
	return n, nil
}

// Close flushes buffered output and closes the file.
func (r *Repository) Close() error {
	r.w.Flush()
	err := r.w.Error()
	if ferr := r.bw.Flush(); err == nil {
		err = ferr
	}
	if cerr := r.f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("csv: close %s: %w", r.path, err)
	}
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
