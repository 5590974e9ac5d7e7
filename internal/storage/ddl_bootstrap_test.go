package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"discogs/internal/ddl"
)

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	var stmts []string
	exec := func(_ context.Context, sql string) error {
		stmts = append(stmts, sql)
		return nil
	}
	cfg := Config{Table: "label_url", Columns: []string{"label_id", "url"}, Recreate: true}
	if err := EnsureTable(context.Background(), exec, ddl.SQLite, cfg); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(stmts) != 2 || !strings.HasPrefix(stmts[0], "DROP TABLE IF EXISTS") || !strings.HasPrefix(stmts[1], "CREATE TABLE IF NOT EXISTS") {
		t.Fatalf("stmts = %q", stmts)
	}

	stmts = nil
	cfg.Recreate = false
	if err := EnsureTable(context.Background(), exec, ddl.SQLite, cfg); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("without recreate want only CREATE, got %q", stmts)
	}
}

func TestEnsureTable_ExecError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	exec := func(context.Context, string) error { return boom }
	err := EnsureTable(context.Background(), exec, ddl.Postgres, Config{Table: "t", Columns: []string{"a"}})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "create t") {
		t.Fatalf("err = %v", err)
	}
}
