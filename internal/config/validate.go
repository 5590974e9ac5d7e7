package config

import (
	"fmt"
	"slices"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Run.
//
// Path is a dotted path into the config (e.g. "output.dsn",
// "categories[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over a normalized Run. It does not touch
// the filesystem or the network; a missing dump is reported per category at
// run time.
func (r Run) Validate() []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateCategories(r)...)
	issues = append(issues, validateOutput(r.Output)...)
	issues = append(issues, validateRuntime(r)...)
	issues = append(issues, validateMetrics(r.Metrics)...)
	return issues
}

func validateCategories(r Run) []Issue {
	var issues []Issue
	seen := map[string]bool{}
	for i, c := range r.Categories {
		path := fmt.Sprintf("categories[%d]", i)
		if !slices.Contains(Categories, c) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("unknown category %q; expected one of %s", c, strings.Join(Categories, ", ")),
			})
			continue
		}
		if seen[c] {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("category %q listed twice", c),
			})
		}
		seen[c] = true
	}
	for c := range r.Sources {
		if !slices.Contains(Categories, c) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "sources." + c,
				Message:  fmt.Sprintf("source for unknown category %q is ignored", c),
			})
		}
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue

	if strings.TrimSpace(o.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.kind",
			Message:  "output.kind must not be empty",
		})
	}

	switch o.Kind {
	case "csv":
		if strings.TrimSpace(o.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.dir",
				Message:  "csv output requires a directory",
			})
		}
	case "duckdb":
		if strings.TrimSpace(o.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "output.dsn",
				Message:  "duckdb dsn is empty; tables will live in an in-memory database and be lost on exit",
			})
		}
	case "sqlite", "postgres", "mssql", "mysql":
		if strings.TrimSpace(o.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.dsn",
				Message:  fmt.Sprintf("%s output requires a dsn", o.Kind),
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.kind",
			Message:  fmt.Sprintf("unknown output kind %q; ensure a matching backend is registered", o.Kind),
		})
	}
	return issues
}

func validateRuntime(r Run) []Issue {
	var issues []Issue
	if r.Runtime.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; must be positive", r.Runtime.BatchSize),
		})
	}
	if r.Sample && r.SampleSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sample_size",
			Message:  "sample mode needs a positive sample_size",
		})
	}
	if !r.Sample && r.SampleSize > 0 && r.SampleSize != DefaultSampleSize {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sample_size",
			Message:  "sample_size is set but sample is false; the whole dump will be processed",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is empty; the statsd client default (localhost:8125) is used",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q", m.Backend),
		})
	}
	return issues
}
