// Package migrations embeds the SQL schema for the Postgres record store.
package migrations

import "embed"

// FS holds the golang-migrate source files.
//
//go:embed *.sql
var FS embed.FS
