package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"discogs/internal/config"
	"discogs/internal/pipeline"
	"discogs/internal/storage"
)

// cliFlags are the command line overrides. A flag only overrides the run
// file when it was set explicitly.
type cliFlags struct {
	configPath     string
	rawDir         string
	dumpDate       string
	sample         bool
	sampleSize     int
	output         string
	dir            string
	dsn            string
	categories     string
	recreate       bool
	batchSize      int
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
	validate       bool
	verbose        bool
}

func bindFlags(fs *flag.FlagSet) *cliFlags {
	f := &cliFlags{}
	fs.StringVar(&f.configPath, "config", "", "run config path (.json, .yaml or .yml)")
	fs.StringVar(&f.rawDir, "raw-dir", "", "directory holding discogs_<date>_<category>s.xml.gz dumps")
	fs.StringVar(&f.dumpDate, "dump-date", "", "dump date, e.g. 20240701")
	fs.BoolVar(&f.sample, "sample", false, "stop each category after -sample-size elements")
	fs.IntVar(&f.sampleSize, "sample-size", 0, "elements per category in sample mode (default 50000)")
	fs.StringVar(&f.output, "output", "", "output kind: "+strings.Join(storage.ListKinds(), ", "))
	fs.StringVar(&f.dir, "dir", "", "output directory for csv")
	fs.StringVar(&f.dsn, "dsn", "", "connection string for database outputs")
	fs.StringVar(&f.categories, "categories", "", "comma separated subset of "+strings.Join(config.Categories, ","))
	fs.BoolVar(&f.recreate, "recreate", false, "drop and recreate destination tables")
	fs.IntVar(&f.batchSize, "batch-size", 0, "rows buffered per table before a flush (default 25000)")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend to use (prometheus, datadog, none)")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&f.datadogAddr, "datadog-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&f.verbose, "v", false, "enable verbose logs")
	return f
}

// loadRun reads the run file (if any), then applies flags, environment
// overrides and defaults, in that order.
func loadRun(fs *flag.FlagSet, f *cliFlags) (config.Run, error) {
	var cfg config.Run
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	applyFlags(&cfg, f, set)
	applyMetricsEnv(&cfg, os.Getenv)
	cfg.ApplyEnv()
	cfg.Normalize()
	return cfg, nil
}

func applyFlags(cfg *config.Run, f *cliFlags, set map[string]bool) {
	if set["raw-dir"] {
		cfg.RawDir = f.rawDir
	}
	if set["dump-date"] {
		cfg.DumpDate = f.dumpDate
	}
	if set["sample"] {
		cfg.Sample = f.sample
	}
	if set["sample-size"] {
		cfg.SampleSize = f.sampleSize
	}
	if set["output"] {
		cfg.Output.Kind = f.output
	}
	if set["dir"] {
		cfg.Output.Dir = f.dir
	}
	if set["dsn"] {
		cfg.Output.DSN = f.dsn
	}
	if set["categories"] {
		cfg.Categories = splitList(f.categories)
	}
	if set["recreate"] {
		cfg.Output.Recreate = f.recreate
	}
	if set["batch-size"] {
		cfg.Runtime.BatchSize = f.batchSize
	}
	if set["metrics-backend"] {
		cfg.Metrics.Backend = f.metricsBackend
	}
	if set["pushgateway-url"] {
		cfg.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	if set["datadog-addr"] {
		cfg.Metrics.DatadogAddr = f.datadogAddr
	}
}

// applyMetricsEnv fills metrics settings still empty after file and flags:
// METRICS_BACKEND, PUSHGATEWAY_URL and DD_AGENT_ADDR.
func applyMetricsEnv(cfg *config.Run, getenv func(string) string) {
	if cfg.Metrics.Backend == "" {
		cfg.Metrics.Backend = getenv("METRICS_BACKEND")
	}
	if cfg.Metrics.PushgatewayURL == "" {
		cfg.Metrics.PushgatewayURL = getenv("PUSHGATEWAY_URL")
	}
	if cfg.Metrics.DatadogAddr == "" {
		cfg.Metrics.DatadogAddr = getenv("DD_AGENT_ADDR")
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newRunner(cfg config.Run) *pipeline.Runner {
	return &pipeline.Runner{
		Output: storage.Config{
			Kind:     cfg.Output.Kind,
			DSN:      cfg.Output.DSN,
			Dir:      cfg.Output.Dir,
			Recreate: cfg.Output.Recreate,
			Options:  cfg.Output.Options,
		},
		Limit:     cfg.Limit(),
		BatchSize: cfg.Runtime.BatchSize,
		Job:       cfg.Job,
		Logger:    log.Default(),
	}
}

// report prints one line per category followed by per-table row counts.
func report(w io.Writer, statuses []pipeline.Status, total time.Duration) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSTATE\tELAPSED\tELEMENTS\tRECORDS\tDROPPED\tROWS\tTRUNCATED")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			st.Category, st.State, st.Elapsed.Truncate(time.Millisecond),
			humanize.Comma(st.Elements), humanize.Comma(st.Records), humanize.Comma(st.Dropped),
			humanize.Comma(st.Rows()), humanize.Comma(st.Truncated()))
	}
	_ = tw.Flush()

	for _, st := range statuses {
		if st.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", st.Category, st.Err)
			continue
		}
		for _, t := range st.Tables {
			fmt.Fprintf(w, "  %s.%s rows=%s flushes=%d fingerprint=%016x\n",
				st.Category, t.Table, humanize.Comma(t.Rows), t.Flushes, t.Fingerprint)
		}
	}
	fmt.Fprintf(w, "%d/%d categories completed in %s\n",
		len(statuses)-failed(statuses), len(statuses), total.Truncate(time.Millisecond))
}

func failed(statuses []pipeline.Status) int {
	n := 0
	for _, st := range statuses {
		if st.State != pipeline.Completed {
			n++
		}
	}
	return n
}
