// internal/store/sqlstore/dialect.go
package sqlstore

import (
	_ "embed"
	"regexp"
)

var (
	//go:embed schema/postgres.sql
	postgresSchema string

	//go:embed schema/sqlite.sql
	sqliteSchema string
)

// Dialect carries the per-database differences. Queries are written with $N
// placeholders.
type Dialect struct {
	Name   string
	schema string
	rebind func(string) string
}

var (
	Postgres = Dialect{Name: "postgres", schema: postgresSchema, rebind: func(q string) string { return q }}
	SQLite   = Dialect{Name: "sqlite", schema: sqliteSchema, rebind: toOrdinal}
)

var placeholder = regexp.MustCompile(`\$(\d+)`)

// toOrdinal rewrites $N as ?N, SQLite's explicit positional form.
func toOrdinal(query string) string {
	return placeholder.ReplaceAllString(query, "?${1}")
}
