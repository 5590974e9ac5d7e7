// This file implements the generic batched loader that buffers rows for one
// table and hands them to a backend's bulk-insert function (CopyFn) once the
// batch is full.
//
// Logging: on every successful flush, a concise progress line is emitted with
// running totals and instantaneous rows/sec since the previous flush.
package storage

import (
	"context"
	"fmt"
	"time"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations should
// insert the provided rows (aligned to 'columns' order) and return the number
// of rows reported as inserted. The rows slice is reused after the call.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// Logf matches log.Printf.
type Logf func(format string, v ...any)

// Batcher groups rows into batches of a fixed size and calls copyFn for each
// full batch. Flush drains whatever remains. A Batcher is not safe for
// concurrent use; each table's sink owns one.
type Batcher struct {
	name    string
	columns []string
	size    int
	copyFn  CopyFn
	logf    Logf

	batch       [][]any
	total       int64
	batches     int64
	start       time.Time
	lastFlushTS time.Time
	lastTotal   int64
}

// NewBatcher returns a Batcher for the named table. A nil logf discards
// progress lines.
func NewBatcher(name string, columns []string, size int, copyFn CopyFn, logf Logf) (*Batcher, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return nil, fmt.Errorf("copyFn must not be nil")
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	now := time.Now()
	return &Batcher{
		name:        name,
		columns:     columns,
		size:        size,
		copyFn:      copyFn,
		logf:        logf,
		batch:       make([][]any, 0, size),
		start:       now,
		lastFlushTS: now,
	}, nil
}

// Add appends row and flushes when the batch reaches its size.
func (b *Batcher) Add(ctx context.Context, row []any) error {
	b.batch = append(b.batch, row)
	if len(b.batch) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes any pending rows. It is a no-op on an empty batch.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.batch) == 0 {
		return nil
	}
	n, err := b.copyFn(ctx, b.columns, b.batch)
	b.total += n

	// Reuse allocated slice; keep capacity to avoid churn.
	b.batch = b.batch[:0]

	if err != nil {
		b.logf("loader: COPY failed table=%s after=%d total=%d err=%v", b.name, n, b.total, err)
		return err
	}

	b.batches++
	now := time.Now()
	sinceLast := now.Sub(b.lastFlushTS)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(b.total-b.lastTotal) / sinceLast.Seconds()
	}
	b.logf(
		"batch #%d: table=%s rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
		b.batches,
		b.name,
		rps,
		n,
		b.total,
		now.Sub(b.start).Truncate(time.Millisecond),
		sinceLast.Truncate(time.Millisecond),
	)
	b.lastFlushTS = now
	b.lastTotal = b.total
	return nil
}

// Pending is the number of buffered, unflushed rows.
func (b *Batcher) Pending() int { return len(b.batch) }

// Total is the number of rows reported written by copyFn.
func (b *Batcher) Total() int64 { return b.total }

// Batches is the number of successful flushes.
func (b *Batcher) Batches() int64 { return b.batches }
