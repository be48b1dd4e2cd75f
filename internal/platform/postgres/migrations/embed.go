// Package migrations holds the goose SQL migrations for the taskboard schema.
package migrations

import "embed"

// Dir is the path of the migration files inside FS.
const Dir = "."

// FS contains every migration file, compiled into the binary.
//
//go:embed *.sql
var FS embed.FS
