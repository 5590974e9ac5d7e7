package csvfile

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"discogs/internal/config"
	"discogs/internal/storage"
)

func readCSV(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = comma
	recs, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return recs
}

func TestRepository_WritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	cols := []string{"label_id", "url"}
	r, err := NewRepository(context.Background(), Config{Dir: dir, Table: "label_url", Columns: cols})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	n, err := r.CopyFrom(context.Background(), cols, [][]any{
		{"1", "http://planet-e.net"},
		{"1", `quoted "url", with comma`},
		{"2", nil},
	})
	if err != nil || n != 3 {
		t.Fatalf("CopyFrom = %d, %v", n, err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := readCSV(t, filepath.Join(dir, "label_url.csv"), ',')
	want := [][]string{
		{"label_id", "url"},
		{"1", "http://planet-e.net"},
		{"1", `quoted "url", with comma`},
		{"2", ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("file = %#v, want %#v", got, want)
	}
}

func TestRepository_RowLengthMismatch(t *testing.T) {
	t.Parallel()

	cols := []string{"a", "b"}
	r, err := NewRepository(context.Background(), Config{Dir: t.TempDir(), Table: "t", Columns: cols})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.CopyFrom(context.Background(), cols, [][]any{{"only-one"}}); err == nil {
		t.Fatalf("expected row length error")
	}
}

func TestNewRepository_Validation(t *testing.T) {
	t.Parallel()

	cases := []Config{
		{Table: "t", Columns: []string{"a"}},
		{Dir: t.TempDir(), Table: "../escape", Columns: []string{"a"}},
		{Dir: t.TempDir(), Table: "t"},
	}
	for _, c := range cases {
		if _, err := NewRepository(context.Background(), c); err == nil {
			t.Errorf("NewRepository(%+v) expected error", c)
		}
	}
}

func TestFactory_DelimiterOption(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := storage.New(context.Background(), storage.Config{
		Kind:    "csv",
		Dir:     dir,
		Table:   "artist_alias",
		Columns: []string{"artist_id", "alias"},
		Options: config.Options{"delimiter": "\t"},
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if _, err := repo.CopyFrom(context.Background(), []string{"artist_id", "alias"}, [][]any{{"1", "AFX"}}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}
	got := readCSV(t, filepath.Join(dir, "artist_alias.csv"), '\t')
	if len(got) != 2 || got[1][1] != "AFX" {
		t.Fatalf("file = %#v", got)
	}
}
