package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discogs/internal/config"
	"discogs/internal/metrics"
	"discogs/internal/metrics/datadog"
	"discogs/internal/metrics/prompush"
	"discogs/internal/pipeline"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "discogs/internal/storage/all"
)

// main loads the run configuration, optionally initializes a metrics
// backend, and normalizes every selected category concurrently.
func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	f := bindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := loadRun(fs, f)
	if err != nil {
		fatalf("%v", err)
	}

	// Validate run config.
	issues := cfg.Validate()
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", f.configPath)
		os.Exit(1)
	}
	if f.validate {
		log.Printf("Configuration is valid: %v", f.configPath)
		os.Exit(0)
	}

	flush := setupMetrics(cfg, f.verbose)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cats, err := pipeline.Categories(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	if f.verbose {
		log.Printf("run: job=%s categories=%v output=%s sample=%v limit=%d batch_size=%d",
			cfg.Job, cfg.Categories, cfg.Output.Kind, cfg.Sample, cfg.Limit(), cfg.Runtime.BatchSize)
	}

	start := time.Now()
	runner := newRunner(cfg)
	statuses := runner.Run(ctx, cats)

	report(os.Stdout, statuses, time.Since(start))
	if failed(statuses) > 0 {
		flush()
		os.Exit(1)
	}
}

// setupMetrics installs the configured backend and returns a flush func that
// is safe to call more than once.
func setupMetrics(cfg config.Run, verbose bool) func() {
	var b metrics.Backend
	switch cfg.Metrics.Backend {
	case "prometheus":
		pb, err := prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", cfg.Metrics.PushgatewayURL, cfg.Metrics.Backend, cfg.Job)
		b = pb

	case "datadog":
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.DatadogAddr,
			Namespace:  "discogs.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", cfg.Metrics.DatadogAddr, cfg.Metrics.Backend, cfg.Job)
		b = db

	default:
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", cfg.Metrics.Backend)
		}
		return func() {}
	}

	metrics.SetBackend(b)
	done := false
	return func() {
		if done {
			return
		}
		done = true
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
