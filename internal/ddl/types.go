package ddl

// ColumnDef describes a single column in a table definition. It uses
// simple, database-agnostic fields.
//
// Fields:
//   - Name: logical column name (unquoted; quoting/escaping happens at render time)
//   - SQLType: target SQL type; empty means the dialect's text type
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table") and will
// be quoted/escaped by renderers as needed.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// TextTable returns a definition where every column is nullable text. The
// destination tables all take this shape: values are copied verbatim from
// the dump and typing is left to the consumer.
func TextTable(fqn string, columns []string) TableDef {
	def := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(columns))}
	for _, c := range columns {
		def.Columns = append(def.Columns, ColumnDef{Name: c, Nullable: true})
	}
	return def
}
