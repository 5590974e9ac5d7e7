// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the dump import.
//
// Backend is a narrow interface for counters and timings. The global backend
// defaults to a no-op, so instrumentation is always safe to call; concrete
// systems (Prometheus Pushgateway, Datadog) live in subpackages.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by all backends.
const (
	CategoryTotal    = "discogs_category_total"
	CategoryDuration = "discogs_category_duration_seconds"
	RecordsTotal     = "discogs_records_total"
	RowsTotal        = "discogs_rows_total"
	FlushesTotal     = "discogs_flushes_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordCategory records the outcome and wall time of one category import.
func RecordCategory(job, category string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":      job,
		"category": category,
		"status":   status,
	}
	b := current()
	b.IncCounter(CategoryTotal, 1, lbls)
	b.ObserveHistogram(CategoryDuration, d.Seconds(), lbls)
}

// RecordRecords counts per-category element outcomes. Typical kinds:
//   - "decoded"
//   - "normalized"
//   - "dropped"
func RecordRecords(job, category, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":      job,
		"category": category,
		"kind":     kind,
	})
}

// RecordRows counts rows per destination table. kind is "written" or
// "truncated" (rows lost to unequal parallel list lengths).
func RecordRows(job, table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
		"kind":  kind,
	})
}

// RecordFlushes counts batch flushes for a table.
func RecordFlushes(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(FlushesTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}
