// Package migrations embeds SQL migration files into the binary.
//
// Importing this package for its side effect registers the schema with the
// database package, so the server and the CLI migrate the same way.
package migrations

import (
	"embed"

	"github.com/gripid/tracker-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

// FS exposes the embedded schema for tests that build their own database.
func FS() embed.FS {
	return migrationsFS
}

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
