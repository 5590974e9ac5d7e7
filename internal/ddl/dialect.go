// Package ddl defines a small, backend-agnostic model for SQL DDL and the
// per-dialect rendering of CREATE TABLE and DROP TABLE statements used by the
// storage backends.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect captures the differences between SQL backends that matter for
// creating the destination tables.
type Dialect struct {
	Name     string
	TextType string

	// Quote quotes a single identifier segment.
	Quote func(id string) string

	// IfMissing wraps a CREATE TABLE body for backends without
	// CREATE TABLE IF NOT EXISTS. Nil means the native clause is used.
	IfMissing func(fqnQuoted, create string) string

	// Drop renders a DROP TABLE IF EXISTS statement. Nil means the
	// standard form.
	Drop func(fqnQuoted string) string
}

func doubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// Postgres renders "schema"."table" with TEXT columns.
var Postgres = Dialect{Name: "postgres", TextType: "TEXT", Quote: doubleQuote}

// SQLite renders "table" with TEXT columns.
var SQLite = Dialect{Name: "sqlite", TextType: "TEXT", Quote: doubleQuote}

// DuckDB renders "table" with VARCHAR columns.
var DuckDB = Dialect{Name: "duckdb", TextType: "VARCHAR", Quote: doubleQuote}

// MySQL renders `table` with LONGTEXT columns.
var MySQL = Dialect{
	Name:     "mysql",
	TextType: "LONGTEXT",
	Quote:    func(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" },
}

// MSSQL renders [schema].[table] with NVARCHAR(MAX) columns. T-SQL lacks
// CREATE TABLE IF NOT EXISTS, so creation is guarded by OBJECT_ID.
var MSSQL = Dialect{
	Name:     "mssql",
	TextType: "NVARCHAR(MAX)",
	Quote:    func(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" },
	IfMissing: func(fqn, create string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  %s\nEND;", fqn, create)
	},
	Drop: func(fqn string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;", fqn, fqn)
	},
}

// QuoteFQN quotes a possibly schema-qualified name segment by segment.
// Empty segments are ignored.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// QuoteAll quotes every column name.
func (d Dialect) QuoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.Quote(c)
	}
	return out
}

// CreateTable renders a CREATE TABLE statement that is a no-op when the
// table already exists.
//
// Rules:
//   - t.FQN must be non-empty and at least one column is required.
//   - Each column must have a non-empty Name.
//   - An empty SQLType means the dialect's text type.
//   - Primary-key columns are always rendered as NOT NULL and collected
//     into a separate PRIMARY KEY clause.
func (d Dialect) CreateTable(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			typ = d.TextType
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	if d.IfMissing != nil {
		create := fmt.Sprintf("CREATE TABLE %s (\n    %s\n  );", quoted, strings.Join(cols, ",\n    "))
		return d.IfMissing(quoted, create), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", quoted, strings.Join(cols, ",\n  ")), nil
}

// DropTable renders a DROP TABLE statement that is a no-op when the table
// does not exist.
func (d Dialect) DropTable(fqn string) string {
	quoted := d.QuoteFQN(fqn)
	if d.Drop != nil {
		return d.Drop(quoted)
	}
	return "DROP TABLE IF EXISTS " + quoted + ";"
}
