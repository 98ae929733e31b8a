// Package database provides the SQLite connection used by the GripID
// device registry and audit trail.
//
// This package manages:
//   - Opening the database file with foreign keys, busy timeout and
//     optional WAL mode
//   - Schema migrations embedded from the migrations package
//   - Transaction and constraint-error helpers shared by the repositories
//   - Timestamp encoding shared by every table (RFC 3339, UTC)
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is restricted to owner read/write (0600)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: each version ships an .up.sql and a .down.sql
// named YYYYMMDD_HHMMSS_description.
package database
