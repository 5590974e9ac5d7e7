// Package config defines the run configuration for the dump normalizer: which
// categories to process, where their dumps live, where the tables go and how
// progress is reported.
//
// A run file may be JSON or YAML (picked by extension). Flags in cmd/etl and
// ETL_* environment variables override it.
//
// Example (YAML):
//
//	job: discogs-nightly
//	raw_dir: /data/raw
//	dump_date: "20240701"
//	categories: [label, artist]
//	sample: true
//	output:
//	  kind: postgres
//	  dsn: postgresql://etl@localhost/discogs
//	  recreate: true
//	  options: { schema: discogs }
//	runtime:
//	  batch_size: 25000
//	metrics:
//	  backend: prometheus
//	  pushgateway_url: http://localhost:9091
package config

import (
	"fmt"
	"path/filepath"
	"slices"
)

// Defaults applied by Normalize.
const (
	DefaultJob        = "discogs"
	DefaultRawDir     = "raw_data"
	DefaultDumpDate   = "20240701"
	DefaultOutputKind = "csv"
	DefaultOutputDir  = "out"
	DefaultBatchSize  = 25_000
	DefaultSampleSize = 50_000
)

// Categories lists every entity category in processing order.
var Categories = []string{"label", "artist", "release", "master"}

// Run is the top-level run configuration.
type Run struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" yaml:"job"`

	// RawDir and DumpDate derive each category's dump path as
	// <raw_dir>/discogs_<dump_date>_<category>s.xml.gz.
	RawDir   string `json:"raw_dir" yaml:"raw_dir"`
	DumpDate string `json:"dump_date" yaml:"dump_date"`

	// Sources overrides the derived path per category.
	Sources map[string]string `json:"sources" yaml:"sources"`

	// Categories restricts the run to a subset; empty means all.
	Categories []string `json:"categories" yaml:"categories"`

	// Sample caps each category at SampleSize source elements.
	Sample     bool `json:"sample" yaml:"sample"`
	SampleSize int  `json:"sample_size" yaml:"sample_size"`

	Output  Output  `json:"output" yaml:"output"`
	Runtime Runtime `json:"runtime" yaml:"runtime"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// Output selects the table writer backend.
type Output struct {
	// Kind is a registered storage kind: csv, sqlite, postgres, mssql,
	// mysql, duckdb.
	Kind string `json:"kind" yaml:"kind"`

	// Dir is the output root for file backends.
	Dir string `json:"dir" yaml:"dir"`

	// DSN is the connection string for database backends.
	DSN string `json:"dsn" yaml:"dsn"`

	// Recreate drops existing tables before loading.
	Recreate bool `json:"recreate" yaml:"recreate"`

	// Options is a free-form map interpreted by the backend.
	Options Options `json:"options" yaml:"options"`
}

// Runtime controls batching.
type Runtime struct {
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Metrics selects the metrics backend: "", "none", "prometheus" or "datadog".
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
}

// Normalize fills unset fields with defaults.
func (r *Run) Normalize() {
	if r.Job == "" {
		r.Job = DefaultJob
	}
	if r.RawDir == "" {
		r.RawDir = DefaultRawDir
	}
	if r.DumpDate == "" {
		r.DumpDate = DefaultDumpDate
	}
	if len(r.Categories) == 0 {
		r.Categories = slices.Clone(Categories)
	}
	if r.SampleSize <= 0 {
		r.SampleSize = DefaultSampleSize
	}
	if r.Output.Kind == "" {
		r.Output.Kind = DefaultOutputKind
	}
	if r.Output.Kind == "csv" && r.Output.Dir == "" {
		r.Output.Dir = DefaultOutputDir
	}
	if r.Output.Options == nil {
		r.Output.Options = Options{}
	}
	if r.Runtime.BatchSize <= 0 {
		r.Runtime.BatchSize = DefaultBatchSize
	}
}

// SourcePath returns the dump path for category.
func (r Run) SourcePath(category string) string {
	if p := r.Sources[category]; p != "" {
		return p
	}
	return filepath.Join(r.RawDir, fmt.Sprintf("discogs_%s_%ss.xml.gz", r.DumpDate, category))
}

// Limit returns the per-category element cap; 0 means unlimited.
func (r Run) Limit() int {
	if !r.Sample {
		return 0
	}
	return r.SampleSize
}
