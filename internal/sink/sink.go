package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"

	"discogs/internal/entity"
	"discogs/internal/storage"
)

// DefaultBatchSize is the number of buffered rows that triggers a flush.
const DefaultBatchSize = 25_000

// ErrFinalized is returned by any call on a Sink after Finalize.
var ErrFinalized = errors.New("sink: already finalized")

// WriteError reports a failure opening, flushing or closing a table's
// output.
type WriteError struct {
	Table string
	Op    string // "open", "flush" or "close"
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink %s: %s: %v", e.Table, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

type options struct {
	batchSize int
	logger    Logger
}

// Option configures a Sink.
type Option func(*options)

// WithBatchSize sets the flush threshold. Non-positive values keep the
// default.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithLogger receives per-flush progress lines. A nil logger discards them.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// Stats summarizes what a Sink has written.
type Stats struct {
	Table       string
	Rows        int64  // rows accepted
	Written     int64  // rows reported written by the backend
	Flushes     int64  // successful batch flushes
	Truncated   int64  // list elements dropped by zip-shortest alignment
	Fingerprint uint64 // xxh3 over every accepted row, in order
}

// Sink buffers rows for one table and flushes them to a Repository. It is
// owned by a single category worker and is not safe for concurrent use.
type Sink struct {
	table     Table
	repo      storage.Repository
	batch     *storage.Batcher
	hash      *xxh3.Hasher
	rows      int64
	truncated int64
	finalized bool
}

// New returns a Sink writing table to repo. The Sink takes ownership of repo
// and closes it in Finalize.
func New(table Table, repo storage.Repository, opts ...Option) (*Sink, error) {
	o := options{batchSize: DefaultBatchSize}
	for _, fn := range opts {
		fn(&o)
	}
	if repo == nil {
		return nil, &WriteError{Table: table.Name, Op: "open", Err: errors.New("nil repository")}
	}
	var logf storage.Logf
	if o.logger != nil {
		logf = o.logger.Printf
	}
	b, err := storage.NewBatcher(table.Name, table.Columns, o.batchSize, repo.CopyFrom, logf)
	if err != nil {
		return nil, &WriteError{Table: table.Name, Op: "open", Err: err}
	}
	return &Sink{table: table, repo: repo, batch: b, hash: xxh3.New()}, nil
}

// Table returns the sink's destination table.
func (s *Sink) Table() Table { return s.table }

// Consume fans rec out and accepts every resulting row.
func (s *Sink) Consume(ctx context.Context, rec entity.Record) error {
	if s.finalized {
		return ErrFinalized
	}
	rows, dropped := s.table.Fanout(rec)
	s.truncated += int64(dropped)
	for _, row := range rows {
		if err := s.Accept(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// Accept buffers row and flushes once the batch threshold is reached.
func (s *Sink) Accept(ctx context.Context, row Row) error {
	if s.finalized {
		return ErrFinalized
	}
	if len(row) != len(s.table.Columns) {
		return fmt.Errorf("sink %s: row has %d values, table has %d columns", s.table.Name, len(row), len(s.table.Columns))
	}
	s.fingerprint(row)
	s.rows++
	if err := s.batch.Add(ctx, row); err != nil {
		return &WriteError{Table: s.table.Name, Op: "flush", Err: err}
	}
	return nil
}

func (s *Sink) fingerprint(row Row) {
	for _, v := range row {
		switch t := v.(type) {
		case nil:
			_, _ = s.hash.Write([]byte{0})
		case string:
			_, _ = s.hash.WriteString(t)
		default:
			_, _ = s.hash.WriteString(fmt.Sprint(t))
		}
		_, _ = s.hash.Write([]byte{0x1f})
	}
	_, _ = s.hash.Write([]byte{0x1e})
}

// Finalize flushes buffered rows and closes the repository. It runs once;
// later calls return ErrFinalized and do not touch the repository. The
// repository is closed even when the final flush fails.
func (s *Sink) Finalize(ctx context.Context) error {
	if s.finalized {
		return ErrFinalized
	}
	s.finalized = true

	var errs []error
	if err := s.batch.Flush(ctx); err != nil {
		errs = append(errs, &WriteError{Table: s.table.Name, Op: "flush", Err: err})
	}
	if err := s.repo.Close(); err != nil {
		errs = append(errs, &WriteError{Table: s.table.Name, Op: "close", Err: err})
	}
	return errors.Join(errs...)
}

// Finalized reports whether Finalize has run.
func (s *Sink) Finalized() bool { return s.finalized }

// Stats returns the sink's counters so far.
func (s *Sink) Stats() Stats {
	return Stats{
		Table:       s.table.Name,
		Rows:        s.rows,
		Written:     s.batch.Total(),
		Flushes:     s.batch.Batches(),
		Truncated:   s.truncated,
		Fingerprint: s.hash.Sum64(),
	}
}
