// Package pipeline runs the per-category import: decode the dump, normalize
// each top-level element and fan the record out to every table sink of the
// category.
//
// Categories run concurrently, one goroutine each, and share nothing but the
// output backend. A failing category never stops the others; every category
// ends with a Status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"discogs/internal/config"
	"discogs/internal/entity"
	"discogs/internal/metrics"
	xmlparser "discogs/internal/parser/xml"
	"discogs/internal/sink"
	"discogs/internal/storage"
)

// State is a category's position in its lifecycle.
type State int

const (
	Idle State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Category pairs one dump file with its normalizer and destination tables.
type Category struct {
	Name       string
	Source     string
	Normalizer entity.Normalizer
	Tables     []sink.Table
}

// Categories builds the categories selected by cfg, in cfg order.
func Categories(cfg config.Run) ([]Category, error) {
	out := make([]Category, 0, len(cfg.Categories))
	for _, name := range cfg.Categories {
		n, ok := entity.ForTag(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		tables, _ := sink.ForCategory(name)
		out = append(out, Category{
			Name:       name,
			Source:     cfg.SourcePath(name),
			Normalizer: n,
			Tables:     tables,
		})
	}
	return out, nil
}

// Status is the outcome of one category.
type Status struct {
	Category string
	State    State
	Elapsed  time.Duration

	Elements int64 // top-level elements decoded
	Records  int64 // records handed to sinks
	Dropped  int64 // elements without an identifying key
	Sampled  bool  // the sample cap stopped decoding early

	Tables []sink.Stats
	Err    error

	// Message is a one-line human-readable summary.
	Message string
}

// Rows is the total number of rows accepted across the category's tables.
func (s Status) Rows() int64 {
	var n int64
	for _, t := range s.Tables {
		n += t.Rows
	}
	return n
}

// Truncated is the total number of list elements dropped by alignment.
func (s Status) Truncated() int64 {
	var n int64
	for _, t := range s.Tables {
		n += t.Truncated
	}
	return n
}

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// OpenFunc opens the writer for one table.
type OpenFunc func(ctx context.Context, cfg storage.Config) (storage.Repository, error)

// Runner executes categories. The zero value writes through storage.New with
// an empty output template, which is rarely useful; set Output.
type Runner struct {
	// Output is the per-table storage template; Table and Columns are
	// filled in per table.
	Output storage.Config

	// Open defaults to storage.New.
	Open OpenFunc

	// Limit caps decoded elements per category; 0 means unlimited.
	Limit int

	// BatchSize is the sink flush threshold; 0 means sink.DefaultBatchSize.
	BatchSize int

	// Job labels metrics.
	Job string

	// Logger defaults to the standard logger.
	Logger Logger
}

func (r *Runner) logger() Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

// Run executes every category concurrently and returns their statuses in
// the order of cats. Each status is also logged as it completes.
func (r *Runner) Run(ctx context.Context, cats []Category) []Status {
	done := make(chan indexed, len(cats))

	var g errgroup.Group
	for i, c := range cats {
		g.Go(func() error {
			done <- indexed{i: i, st: r.RunCategory(ctx, c)}
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	out := make([]Status, len(cats))
	for d := range done {
		out[d.i] = d.st
	}
	return out
}

type indexed struct {
	i  int
	st Status
}

// RunCategory executes one category end to end. Every sink that was opened
// is finalized before it returns, including on error, cancellation or a
// panic in a backend, which is reported as the category's error.
func (r *Runner) RunCategory(ctx context.Context, c Category) (st Status) {
	lg := r.logger()
	start := time.Now()
	st = Status{Category: c.Name, State: Running}
	lg.Printf("category=%s state=%s source=%s tables=%d", c.Name, st.State, c.Source, len(c.Tables))

	var sinks []*sink.Sink
	defer func() {
		if p := recover(); p != nil {
			lg.Printf("category=%s panic=%v", c.Name, p)
			finErr := finalizeAll(context.WithoutCancel(ctx), sinks)
			st.Tables = statsOf(sinks)
			st.Err = errors.Join(st.Err, fmt.Errorf("category %s: panic: %v", c.Name, p), finErr)
		}
		st.Elapsed = time.Since(start)
		if st.Err != nil {
			st.State = Failed
		} else {
			st.State = Completed
		}
		st.Message = summarize(st)
		lg.Printf("category=%s state=%s elapsed=%s elements=%d records=%d dropped=%d rows=%d truncated=%d err=%v",
			c.Name, st.State, st.Elapsed.Truncate(time.Millisecond), st.Elements, st.Records, st.Dropped,
			st.Rows(), st.Truncated(), st.Err)
		r.record(c.Name, st)
	}()

	var opts []xmlparser.Option
	if r.Limit > 0 {
		opts = append(opts, xmlparser.WithLimit(r.Limit))
	}
	dec, err := xmlparser.Open(ctx, c.Source, c.Normalizer.Tag(), opts...)
	if err != nil {
		st.Err = err
		return st
	}
	defer dec.Close()

	if err := r.openSinks(ctx, c, &sinks); err != nil {
		// Whatever opened before the failure still gets finalized.
		st.Tables = statsOf(sinks)
		st.Err = errors.Join(err, finalizeAll(context.WithoutCancel(ctx), sinks))
		return st
	}

	runErr := r.consume(ctx, dec, c.Normalizer, sinks, &st)

	// Finalize with a context that survives cancellation so buffered rows
	// of an interrupted run still reach the output.
	finErr := finalizeAll(context.WithoutCancel(ctx), sinks)
	st.Tables = statsOf(sinks)
	st.Sampled = dec.Sampled()
	st.Err = errors.Join(runErr, finErr)
	return st
}

func (r *Runner) consume(ctx context.Context, dec *xmlparser.Decoder, n entity.Normalizer, sinks []*sink.Sink, st *Status) error {
	for dec.Next() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("interrupted after %d elements: %w", st.Elements, err)
		}
		st.Elements++
		rec, ok := n.Normalize(dec.Element())
		if !ok {
			st.Dropped++
			continue
		}
		st.Records++
		for _, s := range sinks {
			if err := s.Consume(ctx, rec); err != nil {
				return err
			}
		}
	}
	if err := dec.Err(); err != nil {
		return err
	}
	return nil
}

// openSinks appends one sink per table to sinks, stopping at the first
// failure.
func (r *Runner) openSinks(ctx context.Context, c Category, sinks *[]*sink.Sink) error {
	open := r.Open
	if open == nil {
		open = storage.New
	}
	for _, t := range c.Tables {
		cfg := r.Output
		cfg.Table = t.Name
		cfg.Columns = t.Columns
		repo, err := open(ctx, cfg)
		if err != nil {
			return &sink.WriteError{Table: t.Name, Op: "open", Err: err}
		}
		s, err := sink.New(t, repo, sink.WithBatchSize(r.BatchSize), sink.WithLogger(r.logger()))
		if err != nil {
			_ = repo.Close()
			return err
		}
		*sinks = append(*sinks, s)
	}
	return nil
}

// protect runs fn, turning a panic into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// finalizeAll finalizes every sink and joins their errors. A panicking
// sink does not keep the others from being finalized.
func finalizeAll(ctx context.Context, sinks []*sink.Sink) error {
	var errs []error
	for _, s := range sinks {
		if s.Finalized() {
			continue
		}
		if err := protect(func() error { return s.Finalize(ctx) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func statsOf(sinks []*sink.Sink) []sink.Stats {
	out := make([]sink.Stats, len(sinks))
	for i, s := range sinks {
		out[i] = s.Stats()
	}
	return out
}

func (r *Runner) record(category string, st Status) {
	metrics.RecordCategory(r.Job, category, st.Err, st.Elapsed)
	metrics.RecordRecords(r.Job, category, "decoded", st.Elements)
	metrics.RecordRecords(r.Job, category, "normalized", st.Records)
	metrics.RecordRecords(r.Job, category, "dropped", st.Dropped)
	for _, t := range st.Tables {
		metrics.RecordRows(r.Job, t.Table, "written", t.Written)
		metrics.RecordRows(r.Job, t.Table, "truncated", t.Truncated)
		metrics.RecordFlushes(r.Job, t.Table, t.Flushes)
	}
}

func summarize(st Status) string {
	if st.Err != nil {
		return fmt.Sprintf("%s failed after %s: %v", st.Category, st.Elapsed.Truncate(time.Millisecond), st.Err)
	}
	msg := fmt.Sprintf("%s completed in %s: %d elements, %d dropped, %d rows in %d tables",
		st.Category, st.Elapsed.Truncate(time.Millisecond), st.Elements, st.Dropped, st.Rows(), len(st.Tables))
	if st.Sampled {
		msg += " (sample)"
	}
	return msg
}
