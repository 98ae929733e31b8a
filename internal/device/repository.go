package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gripid/tracker-core/internal/identity"
	"github.com/gripid/tracker-core/internal/infrastructure/database"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// FindMatches returns every device whose serial or IMEIs collide with
	// candidate, oldest first, skipping the device with id excludeID.
	FindMatches(ctx context.Context, candidate Identity, excludeID string) ([]Device, error)

	// Create inserts a new device and claims its IMEIs.
	// Returns *ConflictError if the serial or an IMEI is already registered.
	Create(ctx context.Context, device *Device) error

	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetBySerial retrieves a device by serial, ignoring case and
	// surrounding whitespace. Returns ErrDeviceNotFound if none matches.
	GetBySerial(ctx context.Context, serial string) (*Device, error)

	// Update replaces the identifiers and status of an existing device.
	// Returns ErrDeviceNotFound or *ConflictError.
	Update(ctx context.Context, device *Device) error

	// Modify applies edit to the stored device and saves the result
	// atomically. Returns the saved device, ErrDeviceNotFound, a
	// validation error or *ConflictError.
	Modify(ctx context.Context, id string, edit func(*Device)) (*Device, error)

	// Delete removes a device and its IMEI claims.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// ListPage returns up to limit devices, newest first, skipping offset.
	ListPage(ctx context.Context, limit, offset int) ([]Device, error)

	// ListAll returns every device, newest first.
	ListAll(ctx context.Context) ([]Device, error)

	// Count returns the number of registered devices.
	Count(ctx context.Context) (int, error)
}

// queryer is implemented by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const deviceColumns = `id, serial, imei1, imei2, model_tag, current_status, created_at, updated_at`

// newestFirst orders devices by creation time, ties broken by insertion order.
const newestFirst = `ORDER BY created_at DESC, seq DESC`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// FindMatches returns devices colliding with candidate.
func (r *SQLiteRepository) FindMatches(ctx context.Context, candidate Identity, excludeID string) ([]Device, error) {
	return findMatches(ctx, r.db, candidate, excludeID)
}

func findMatches(ctx context.Context, q queryer, candidate Identity, excludeID string) ([]Device, error) {
	key := candidate.SerialKey()
	imeis := candidate.IMEIs()
	if key == "" && len(imeis) == 0 {
		return nil, nil
	}

	var conds []string
	args := []any{excludeID}
	if key != "" {
		conds = append(conds, "serial_key = ?")
		args = append(args, key)
	}
	if len(imeis) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(imeis)), ",")
		conds = append(conds, "id IN (SELECT device_id FROM device_imeis WHERE imei IN ("+placeholders+"))")
		for _, imei := range imeis {
			args = append(args, imei)
		}
	}

	query := `SELECT ` + deviceColumns + ` FROM devices
		WHERE id <> ? AND (` + strings.Join(conds, " OR ") + `)
		ORDER BY seq`

	devices, err := queryDevices(ctx, q, query, args...)
	if err != nil {
		return nil, persistenceError("finding matches", err)
	}
	return devices, nil
}

// Create inserts a new device.
//
// The duplicate check and the inserts share one transaction. A unique
// index violation from a concurrent writer is reported as the same
// *ConflictError the check would have produced.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	device.Clean()
	if err := device.Identity().Validate(); err != nil {
		return err
	}

	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	now := r.now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now
	device.deriveModel()

	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		matches, err := findMatches(ctx, tx, device.Identity(), "")
		if err != nil {
			return err
		}
		if c := ResolveConflict(device.Identity(), matches); c != nil {
			return &ConflictError{Conflict: *c}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO devices (
				id, serial, serial_key, imei1, imei2, model_tag,
				current_status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			device.ID,
			device.Serial,
			identity.Normalize(device.Serial),
			nullableString(device.IMEI1),
			nullableString(device.IMEI2),
			nullableString(string(device.ModelTag)),
			device.CurrentStatus,
			database.FormatTime(device.CreatedAt),
			database.FormatTime(device.UpdatedAt),
		)
		if err != nil {
			return err
		}
		return claimIMEIs(ctx, tx, device)
	})
	if err != nil {
		return r.mapWriteError(ctx, "inserting device", device, err)
	}
	return nil
}

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	return getOne(ctx, r.db, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
}

// GetBySerial retrieves a device by case-insensitive serial.
func (r *SQLiteRepository) GetBySerial(ctx context.Context, serial string) (*Device, error) {
	key := identity.Normalize(serial)
	if key == "" {
		return nil, ErrDeviceNotFound
	}
	return getOne(ctx, r.db, `SELECT `+deviceColumns+` FROM devices WHERE serial_key = ?`, key)
}

// Update modifies an existing device. CreatedAt is preserved from storage.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	edit := *device
	updated, err := r.Modify(ctx, device.ID, func(d *Device) {
		d.Serial = edit.Serial
		d.IMEI1 = edit.IMEI1
		d.IMEI2 = edit.IMEI2
		d.CurrentStatus = edit.CurrentStatus
	})
	if err != nil {
		return err
	}
	*device = *updated
	return nil
}

// Modify loads a device, applies edit to it and writes it back in one
// transaction. Concurrent edits of the same device are serialised, so
// each one sees the other's result.
func (r *SQLiteRepository) Modify(ctx context.Context, id string, edit func(*Device)) (*Device, error) {
	var device *Device
	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getOne(ctx, tx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
		if err != nil {
			return err
		}
		device = current
		edit(device)
		device.ID = current.ID
		device.CreatedAt = current.CreatedAt

		device.Clean()
		if err := device.Identity().Validate(); err != nil {
			return err
		}
		device.UpdatedAt = r.now().UTC()
		device.deriveModel()

		matches, err := findMatches(ctx, tx, device.Identity(), device.ID)
		if err != nil {
			return err
		}
		if c := ResolveConflict(device.Identity(), matches); c != nil {
			return &ConflictError{Conflict: *c}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE devices SET
				serial = ?, serial_key = ?, imei1 = ?, imei2 = ?, model_tag = ?,
				current_status = ?, updated_at = ?
			WHERE id = ?`,
			device.Serial,
			identity.Normalize(device.Serial),
			nullableString(device.IMEI1),
			nullableString(device.IMEI2),
			nullableString(string(device.ModelTag)),
			device.CurrentStatus,
			database.FormatTime(device.UpdatedAt),
			device.ID,
		)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM device_imeis WHERE device_id = ?", device.ID); err != nil {
			return err
		}
		return claimIMEIs(ctx, tx, device)
	})
	if err != nil {
		if IsValidation(err) {
			return nil, err
		}
		if device == nil {
			device = &Device{ID: id}
		}
		return nil, r.mapWriteError(ctx, "updating device", device, err)
	}
	return device, nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM device_imeis WHERE device_id = ?", id); err != nil {
			return persistenceError("releasing imeis", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
		if err != nil {
			return persistenceError("deleting device", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return persistenceError("checking rows affected", err)
		}
		if rowsAffected == 0 {
			return ErrDeviceNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrDeviceNotFound) && !errors.Is(err, ErrPersistence) {
		return persistenceError("deleting device", err)
	}
	return err
}

// ListPage returns one page of devices, newest first.
func (r *SQLiteRepository) ListPage(ctx context.Context, limit, offset int) ([]Device, error) {
	devices, err := queryDevices(ctx, r.db,
		`SELECT `+deviceColumns+` FROM devices `+newestFirst+` LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, persistenceError("listing devices", err)
	}
	return devices, nil
}

// ListAll returns every device, newest first.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]Device, error) {
	devices, err := queryDevices(ctx, r.db, `SELECT `+deviceColumns+` FROM devices `+newestFirst)
	if err != nil {
		return nil, persistenceError("listing devices", err)
	}
	return devices, nil
}

// Count returns the number of registered devices.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&n); err != nil {
		return 0, persistenceError("counting devices", err)
	}
	return n, nil
}

// mapWriteError translates a failed write transaction into the package's
// error taxonomy.
func (r *SQLiteRepository) mapWriteError(ctx context.Context, op string, device *Device, err error) error {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict),
		errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, ErrPersistence):
		return err
	case database.IsUniqueConstraintError(err):
		return r.raceConflict(ctx, device, err)
	default:
		return persistenceError(op, err)
	}
}

// raceConflict builds the ConflictError for a write that passed the
// in-transaction check but hit a unique index, which happens when another
// connection wrote the same identifier first.
func (r *SQLiteRepository) raceConflict(ctx context.Context, device *Device, cause error) error {
	matches, err := findMatches(ctx, r.db, device.Identity(), device.ID)
	if err == nil {
		if c := ResolveConflict(device.Identity(), matches); c != nil {
			return &ConflictError{Conflict: *c}
		}
	}

	reason := ReasonIMEI
	if strings.HasPrefix(database.ConstraintTarget(cause), "devices.") {
		reason = ReasonSerial
	}
	return &ConflictError{Conflict: Conflict{Reason: reason}}
}

// claimIMEIs records the device's IMEIs in device_imeis.
func claimIMEIs(ctx context.Context, tx *sql.Tx, device *Device) error {
	for slot, imei := range []string{device.IMEI1, device.IMEI2} {
		if imei == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO device_imeis (imei, device_id, slot) VALUES (?, ?, ?)",
			imei, device.ID, slot+1,
		); err != nil {
			return err
		}
	}
	return nil
}

func getOne(ctx context.Context, q queryer, query string, args ...any) (*Device, error) {
	device, err := scanDevice(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, persistenceError("getting device", err)
	}
	return device, nil
}

// queryDevices executes a query and returns a slice of devices.
func queryDevices(ctx context.Context, q queryer, query string, args ...any) ([]Device, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var imei1, imei2, modelTag sql.NullString
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&d.ID, &d.Serial, &imei1, &imei2, &modelTag,
		&d.CurrentStatus, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	d.IMEI1 = imei1.String
	d.IMEI2 = imei2.String
	d.ModelTag = identity.ModelTag(modelTag.String)

	var err error
	if d.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// nullableString stores empty optional fields as NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
