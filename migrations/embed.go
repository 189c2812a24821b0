// Package migrations holds the PostgreSQL schema as golang-migrate file pairs
package migrations

import "embed"

// FS carries every *.sql migration so binaries do not depend on the
// working directory
//
//go:embed *.sql
var FS embed.FS
