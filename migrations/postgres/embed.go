// Package migrations embebe el esquema SQL (formato goose).
package migrations

import "embed"

// FS contiene las migraciones de PostgreSQL en su raíz.
//
//go:embed *.sql
var FS embed.FS
