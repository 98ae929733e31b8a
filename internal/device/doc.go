// Package device holds the GripID device registry: one current-state row
// per physical unit, identified by a serial number and up to two IMEIs.
//
// # Key Types
//
//   - Device: the registry row (serial, IMEIs, derived model tag, current status)
//   - Identity: the serial/IMEI triple used for duplicate detection
//   - Conflict / ConflictError: an existing device colliding with a candidate
//   - Repository: persistence interface, implemented by SQLiteRepository
//   - Resolver: read-only duplicate check run before every registration
//
// # Uniqueness
//
// Serials are unique under case-insensitive comparison and every IMEI is
// unique across both slots of every device. The Resolver reports a
// conflict before a write is attempted; the unique indexes on
// devices.serial_key and device_imeis.imei reject any write that races past
// that check, and the repository turns those failures into the same
// ConflictError.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	resolver := device.NewResolver(repo)
//
//	if c, err := resolver.FindConflict(ctx, device.Identity{Serial: "GRIPID100"}); err != nil {
//	    return err
//	} else if c != nil {
//	    return &device.ConflictError{Conflict: *c}
//	}
package device
