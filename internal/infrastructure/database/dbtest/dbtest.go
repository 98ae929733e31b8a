// Package dbtest opens throwaway tracker databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gripid/tracker-core/internal/infrastructure/database"
	_ "github.com/gripid/tracker-core/migrations" // registers the schema
)

// Open returns a migrated database in a temporary directory. It is closed
// when the test ends.
func Open(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "gripid-test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
