// Package migrations carries the SQL schema so binaries and tests apply the same files.
package migrations

import "embed"

// FS holds every numbered migration file
//
//go:embed *.sql
var FS embed.FS
