package migrations

import "embed"

// FS contains embedded SQLite migrations for brigade storage.
//
//go:embed *.sql
var FS embed.FS
