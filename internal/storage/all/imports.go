// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it runs the init
// function of each backend, which registers its factory with the storage
// package. After importing it, storage.New accepts these kinds:
//
//   - "csv"      (discogs/internal/storage/csvfile)
//   - "sqlite"   (discogs/internal/storage/sqlite)
//   - "duckdb"   (discogs/internal/storage/duckdb)
//   - "postgres" (discogs/internal/storage/postgres)
//   - "mssql"    (discogs/internal/storage/mssql)
//   - "mysql"    (discogs/internal/storage/mysql)
//
// A binary that needs only a subset can import the backends it wants
// instead of this package.
package all

import (
	_ "discogs/internal/storage/csvfile"
	_ "discogs/internal/storage/duckdb"
	_ "discogs/internal/storage/mssql"
	_ "discogs/internal/storage/mysql"
	_ "discogs/internal/storage/postgres"
	_ "discogs/internal/storage/sqlite"
)
