// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// The import is a batch job with no scrape endpoint, so collected metrics
// are pushed to a Pushgateway once the run finishes. The job name becomes
// the Pushgateway "job" grouping key and is not repeated as a label.
package prompush

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"discogs/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	categoryCounter  *prometheus.CounterVec // discogs_category_total
	categoryDuration *prometheus.SummaryVec // discogs_category_duration_seconds
	recordCounter    *prometheus.CounterVec // discogs_records_total
	rowCounter       *prometheus.CounterVec // discogs_rows_total
	flushCounter     *prometheus.CounterVec // discogs_flushes_total

	pushMu sync.Mutex
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name.
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "discogs"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		categoryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.CategoryTotal,
			Help: "Category imports, partitioned by category and status.",
		}, []string{"category", "status"}),
		categoryDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.CategoryDuration,
			Help:       "Wall time of category imports in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"category", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Top-level elements per category and outcome (decoded, normalized, dropped).",
		}, []string{"category", "kind"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows per destination table and kind (written, truncated).",
		}, []string{"table", "kind"}),
		flushCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.FlushesTotal,
			Help: "Batch flushes per destination table.",
		}, []string{"table"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"category counter": b.categoryCounter,
		"category summary": b.categoryDuration,
		"record counter":   b.recordCounter,
		"row counter":      b.rowCounter,
		"flush counter":    b.flushCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.CategoryTotal:
		if b.categoryCounter != nil {
			b.categoryCounter.WithLabelValues(labels["category"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(labels["category"], labels["kind"]).Add(delta)
		}
	case metrics.RowsTotal:
		if b.rowCounter != nil {
			b.rowCounter.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
		}
	case metrics.FlushesTotal:
		if b.flushCounter != nil {
			b.flushCounter.WithLabelValues(labels["table"]).Add(delta)
		}
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.CategoryDuration || b.categoryDuration == nil {
		return
	}
	b.categoryDuration.WithLabelValues(labels["category"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	b.pushMu.Lock()
	defer b.pushMu.Unlock()
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
