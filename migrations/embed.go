// Package migrations holds the versioned SQL schema for the cart tables.
// The same files run against PostgreSQL and SQLite.
package migrations

import "embed"

// FS contains every *.sql migration, named NNNNNN_title.{up,down}.sql
//
//go:embed *.sql
var FS embed.FS
