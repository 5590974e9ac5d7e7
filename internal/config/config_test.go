package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "run.json", `{
	  "job": "nightly",
	  "raw_dir": "/data/raw",
	  "dump_date": "20241001",
	  "sources": { "artist": "/elsewhere/artists.xml.gz" },
	  "categories": ["label", "artist"],
	  "sample": true,
	  "output": { "kind": "postgres", "dsn": "postgresql://etl@localhost/discogs", "recreate": true,
	              "options": { "schema": "discogs" } },
	  "runtime": { "batch_size": 1000 },
	  "metrics": { "backend": "prometheus", "pushgateway_url": "http://localhost:9091" }
	}`)

	r, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r.Normalize()

	if r.Job != "nightly" || !r.Sample || r.SampleSize != DefaultSampleSize {
		t.Fatalf("run = %+v", r)
	}
	if !reflect.DeepEqual(r.Categories, []string{"label", "artist"}) {
		t.Fatalf("categories = %v", r.Categories)
	}
	if got := r.Output.Options.String("schema", ""); got != "discogs" {
		t.Fatalf("schema option = %q", got)
	}
	if got, want := r.SourcePath("label"), filepath.Join("/data/raw", "discogs_20241001_labels.xml.gz"); got != want {
		t.Fatalf("SourcePath(label) = %q, want %q", got, want)
	}
	if got := r.SourcePath("artist"); got != "/elsewhere/artists.xml.gz" {
		t.Fatalf("SourcePath(artist) = %q", got)
	}
	if r.Limit() != DefaultSampleSize {
		t.Fatalf("Limit() = %d", r.Limit())
	}
	if issues := r.Validate(); len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "run.yaml", `
job: yaml-run
categories: [master]
output:
  kind: sqlite
  dsn: file:discogs.db
  options:
    busy_timeout_ms: 10000
runtime:
  batch_size: 500
`)
	r, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r.Normalize()
	if r.Output.Kind != "sqlite" || r.Runtime.BatchSize != 500 {
		t.Fatalf("run = %+v", r)
	}
	if got := r.Output.Options.Int("busy_timeout_ms", 0); got != 10000 {
		t.Fatalf("busy_timeout_ms = %d", got)
	}
	if r.Limit() != 0 {
		t.Fatalf("Limit() = %d without sample", r.Limit())
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "run.json", `{"job":"x","outptu":{}}`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	t.Parallel()

	var r Run
	r.Normalize()
	if r.Job != DefaultJob || r.Output.Kind != "csv" || r.Output.Dir != DefaultOutputDir ||
		r.Runtime.BatchSize != DefaultBatchSize || r.SampleSize != DefaultSampleSize {
		t.Fatalf("defaults = %+v", r)
	}
	if !reflect.DeepEqual(r.Categories, Categories) {
		t.Fatalf("categories = %v", r.Categories)
	}
	// Mutating the run must not leak into the package default.
	r.Categories[0] = "changed"
	if Categories[0] != "label" {
		t.Fatalf("Categories mutated through Normalize")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ETL_BATCH_SIZE", "123")
	t.Setenv("ETL_SAMPLE_SIZE", "not-a-number")

	r := Run{Runtime: Runtime{BatchSize: 10}, SampleSize: 50}
	r.ApplyEnv()
	if r.Runtime.BatchSize != 123 || r.SampleSize != 50 {
		t.Fatalf("ApplyEnv = %+v", r)
	}
}

func TestOptions_Accessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":    "x",
		"b":    true,
		"f":    float64(3),
		"i":    7,
		"r":    "|",
		"list": []any{"a", 1, "b"},
	}
	if o.String("s", "d") != "x" || o.String("b", "d") != "d" {
		t.Errorf("String")
	}
	if !o.Bool("b", false) || o.Bool("s", false) {
		t.Errorf("Bool")
	}
	if o.Int("f", 0) != 3 || o.Int("i", 0) != 7 || o.Int("s", 9) != 9 {
		t.Errorf("Int")
	}
	if o.Rune("r", ',') != '|' || o.Rune("missing", ',') != ',' {
		t.Errorf("Rune")
	}
	if got := o.StringSlice("list"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("StringSlice = %v", got)
	}
}

func TestOptions_UnmarshalJSON_NullYieldsEmptyMap(t *testing.T) {
	t.Parallel()

	var o Options
	if err := o.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatal(err)
	}
	if o == nil || len(o) != 0 {
		t.Fatalf("want empty non-nil map, got %#v", o)
	}
}

// The shipped run files must stay loadable and valid.
func TestShippedConfigs(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"discogs.yaml", "discogs-duckdb.json"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r, err := Load(filepath.Join("..", "..", "configs", name))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			r.Normalize()
			if issues := r.Validate(); HasErrors(issues) {
				t.Fatalf("Validate: %v", issues)
			}
		})
	}
}
