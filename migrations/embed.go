// Package migrations embeds the catalogue schema into the binary.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS holds the *.sql migration files at its root. Pass it to
// database.DB.Migrate.
var FS = files
