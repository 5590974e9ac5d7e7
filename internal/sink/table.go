// Package sink turns intermediate records into flat rows for the destination
// tables and writes them in batches.
//
// A Table describes one destination: its columns and a pure fan-out from a
// record to zero or more rows. A Sink pairs a Table with a storage
// Repository and buffers rows until the batch threshold is reached.
package sink

import (
	"discogs/internal/entity"
)

// Row is one destination row, aligned with its table's columns. Absent
// values are nil.
type Row = []any

// Kind distinguishes one-row-per-record tables from fan-out tables.
type Kind int

const (
	// Simple tables project fixed scalar fields, one row per record.
	Simple Kind = iota
	// Nested tables iterate (or zip) list fields into zero or more rows.
	Nested
)

func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case Nested:
		return "nested"
	}
	return "unknown"
}

// FanoutFunc produces the rows for one record and the number of list
// elements dropped by zip-shortest alignment.
type FanoutFunc func(rec entity.Record) (rows []Row, truncated int)

// Table is one destination table.
type Table struct {
	Name    string
	Kind    Kind
	Columns []string

	fanout FanoutFunc
}

// NewTable builds a Table with a custom fan-out.
func NewTable(name string, kind Kind, columns []string, fn FanoutFunc) Table {
	return Table{Name: name, Kind: kind, Columns: columns, fanout: fn}
}

// Fanout returns the rows rec contributes to t. It has no side effects and
// never mutates rec.
func (t Table) Fanout(rec entity.Record) ([]Row, int) {
	if t.fanout == nil {
		return nil, 0
	}
	return t.fanout(rec)
}

// Zip pairs lists position by position and returns min(len) tuples. The
// second result counts the surplus elements of longer lists that were
// dropped.
func Zip(lists ...[]string) ([][]string, int) {
	if len(lists) == 0 {
		return nil, 0
	}
	n := len(lists[0])
	for _, l := range lists[1:] {
		n = min(n, len(l))
	}
	dropped := 0
	for _, l := range lists {
		dropped += len(l) - n
	}
	out := make([][]string, n)
	for i := range out {
		tuple := make([]string, len(lists))
		for j, l := range lists {
			tuple[j] = l[i]
		}
		out[i] = tuple
	}
	return out, dropped
}

// scalar returns the value for key, or nil when the record lacks it.
func scalar(rec entity.Record, key string) any {
	if v, ok := rec.Lookup(key); ok {
		return v
	}
	return nil
}

// simple projects columns named like the record's scalar keys.
func simple(name string, columns ...string) Table {
	return NewTable(name, Simple, columns, func(rec entity.Record) ([]Row, int) {
		row := make(Row, len(columns))
		for i, c := range columns {
			row[i] = scalar(rec, c)
		}
		return []Row{row}, 0
	})
}

// list emits one (id, value) row per element of a list field.
func list(name, fkColumn, valueColumn, key string) Table {
	return NewTable(name, Nested, []string{fkColumn, valueColumn}, func(rec entity.Record) ([]Row, int) {
		values := rec.Strings(key)
		if len(values) == 0 {
			return nil, 0
		}
		id := rec.String("id")
		rows := make([]Row, len(values))
		for i, v := range values {
			rows[i] = Row{id, v}
		}
		return rows, 0
	})
}

// zipped emits one row per aligned tuple of the given list fields, prefixed
// with the record id. columns[0] is the foreign key column.
func zipped(name string, columns []string, keys ...string) Table {
	return NewTable(name, Nested, columns, func(rec entity.Record) ([]Row, int) {
		lists := make([][]string, len(keys))
		for i, k := range keys {
			lists[i] = rec.Strings(k)
		}
		tuples, dropped := Zip(lists...)
		if len(tuples) == 0 {
			return nil, dropped
		}
		id := rec.String("id")
		rows := make([]Row, len(tuples))
		for i, tup := range tuples {
			row := make(Row, 0, len(tup)+1)
			row = append(row, id)
			for _, v := range tup {
				row = append(row, v)
			}
			rows[i] = row
		}
		return rows, dropped
	})
}
