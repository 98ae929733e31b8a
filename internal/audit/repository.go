// Package audit provides the append-only status history of registered
// devices, stored in the device_history table.
package audit

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

// Query limits for List.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var (
	// ErrInvalidEntry is returned when an entry lacks a device ID or serial.
	ErrInvalidEntry = errors.New("audit: device id and serial are required")

	// ErrEntryNotFound is returned by Latest when a device has no entries.
	ErrEntryNotFound = errors.New("audit: no entries")

	// ErrPersistence is returned when the underlying store fails.
	ErrPersistence = errors.New("audit: storage unavailable")
)

// Entry is one immutable status transition of a device.
type Entry struct {
	ID             string    `json:"_id"`
	DeviceID       string    `json:"device_id"`
	SerialSnapshot string    `json:"sn_no"`
	Status         string    `json:"status"`
	Note           string    `json:"note"`
	Timestamp      time.Time `json:"date"`
}

// Filter controls which entries List returns.
type Filter struct {
	DeviceID string // optional: entries of one device
	Status   string // optional: exact status match
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// ListResult contains one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the audit log operations. Entries are never updated;
// the only removal path is CascadeDelete for a deleted device.
type Repository interface {
	// Append records a new entry and sets its ID and Timestamp.
	Append(ctx context.Context, entry *Entry) error

	// HistoryFor returns the entries whose serial snapshot equals serial
	// ignoring case, newest first. Unknown serials yield an empty slice.
	HistoryFor(ctx context.Context, serial string) ([]Entry, error)

	// HistoryForDevice returns a device's entries, newest first.
	HistoryForDevice(ctx context.Context, deviceID string) ([]Entry, error)

	// Latest returns the newest entry of a device or ErrEntryNotFound.
	Latest(ctx context.Context, deviceID string) (*Entry, error)

	// CascadeDelete removes every entry of a device and returns how many
	// were removed.
	CascadeDelete(ctx context.Context, deviceID string) (int64, error)

	// DeviceIDs returns the distinct device IDs that own entries.
	DeviceIDs(ctx context.Context) ([]string, error)

	// List returns a filtered page of entries across all devices.
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

const entryColumns = `id, device_id, serial_snapshot, status, note, created_at`

// newestFirst orders entries by time, ties broken by append order.
const newestFirst = `ORDER BY created_at DESC, seq DESC`

// SQLiteRepository stores entries in SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Append inserts an entry. The timestamp is the append time, raised to the
// device's latest entry time when the clock is behind it, so a device's
// history never runs backwards.
func (r *SQLiteRepository) Append(ctx context.Context, entry *Entry) error {
	entry.DeviceID = strings.TrimSpace(entry.DeviceID)
	entry.SerialSnapshot = strings.TrimSpace(entry.SerialSnapshot)
	if entry.DeviceID == "" || entry.SerialSnapshot == "" {
		return ErrInvalidEntry
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		at := r.now().UTC()

		var latest sql.NullString
		if err := tx.QueryRowContext(ctx,
			"SELECT MAX(created_at) FROM device_history WHERE device_id = ?", entry.DeviceID,
		).Scan(&latest); err != nil {
			return fmt.Errorf("reading latest entry: %w", err)
		}
		if latest.Valid {
			prev, err := database.ParseTime(latest.String)
			if err != nil {
				return err
			}
			if at.Before(prev) {
				at = prev
			}
		}
		entry.Timestamp = at

		_, err := tx.ExecContext(ctx,
			`INSERT INTO device_history (id, device_id, serial_snapshot, serial_key, status, note, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.DeviceID, entry.SerialSnapshot,
			identity.Normalize(entry.SerialSnapshot),
			entry.Status, entry.Note,
			database.FormatTime(entry.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("inserting entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// HistoryFor returns the history recorded under a serial.
func (r *SQLiteRepository) HistoryFor(ctx context.Context, serial string) ([]Entry, error) {
	key := identity.Normalize(serial)
	if key == "" {
		return []Entry{}, nil
	}
	return r.query(ctx,
		`SELECT `+entryColumns+` FROM device_history WHERE serial_key = ? `+newestFirst, key)
}

// HistoryForDevice returns the history of one device.
func (r *SQLiteRepository) HistoryForDevice(ctx context.Context, deviceID string) ([]Entry, error) {
	return r.query(ctx,
		`SELECT `+entryColumns+` FROM device_history WHERE device_id = ? `+newestFirst, deviceID)
}

// Latest returns the newest entry of a device.
func (r *SQLiteRepository) Latest(ctx context.Context, deviceID string) (*Entry, error) {
	entries, err := r.query(ctx,
		`SELECT `+entryColumns+` FROM device_history WHERE device_id = ? `+newestFirst+` LIMIT 1`, deviceID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEntryNotFound
	}
	return &entries[0], nil
}

// CascadeDelete removes every entry owned by deviceID.
func (r *SQLiteRepository) CascadeDelete(ctx context.Context, deviceID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM device_history WHERE device_id = ?", deviceID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting entries: %w", ErrPersistence, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: checking rows affected: %w", ErrPersistence, err)
	}
	return n, nil
}

// DeviceIDs returns every device ID present in the history.
func (r *SQLiteRepository) DeviceIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT device_id FROM device_history ORDER BY device_id")
	if err != nil {
		return nil, fmt.Errorf("%w: listing device ids: %w", ErrPersistence, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning device id: %w", ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating device ids: %w", ErrPersistence, err)
	}
	return ids, nil
}

// List returns entries matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE is assembled from fixed fragments with ? placeholders.
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM device_history "+where, args...).Scan(&total); err != nil { //nolint:gosec // fixed fragments
		return nil, fmt.Errorf("%w: counting entries: %w", ErrPersistence, err)
	}

	entries, err := r.query(ctx,
		`SELECT `+entryColumns+` FROM device_history `+where+` `+newestFirst+` LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Offset)...,
	)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying entries: %w", ErrPersistence, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.SerialSnapshot, &e.Status, &e.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning entry: %w", ErrPersistence, err)
		}
		if e.Timestamp, err = database.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating entries: %w", ErrPersistence, err)
	}
	return entries, nil
}
