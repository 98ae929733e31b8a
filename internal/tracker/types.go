package tracker

import (
	"fmt"

	"github.com/gripid/tracker-core/internal/audit"
	"github.com/gripid/tracker-core/internal/device"
)

// Defaults applied to writes that omit a status or note.
const (
	DefaultStatus     = "In Stock"
	DefaultSeedNote   = "Initial Entry"
	DefaultImportNote = "Imported"
	ReconcileNote     = "Reconciled"
)

// Outcome is the final state of a write.
type Outcome string

// Write outcomes.
const (
	// Committed means the device write and its audit entry both succeeded.
	Committed Outcome = "committed"

	// CommittedWithAuditGap means the device write succeeded but the audit
	// store did not record it.
	CommittedWithAuditGap Outcome = "committed_with_audit_gap"
)

// WriteResult is returned by successful writes.
type WriteResult struct {
	Device  *device.Device
	Entry   *audit.Entry // nil when Outcome is CommittedWithAuditGap
	Outcome Outcome
	Warning string // set when Outcome is CommittedWithAuditGap
}

// AuditGap reports whether the write left the audit log behind.
func (r *WriteResult) AuditGap() bool {
	return r.Outcome == CommittedWithAuditGap
}

// CreateInput is a registration request.
type CreateInput struct {
	Serial string
	IMEI1  string
	IMEI2  string
	Status string // defaults to DefaultStatus
	Note   string // defaults to DefaultSeedNote
}

// UpdateInput is a status change. Nil identifier fields are left as they
// are; a blank Status keeps the current status.
type UpdateInput struct {
	Status string
	Note   string
	Serial *string
	IMEI1  *string
	IMEI2  *string
}

// Page is one page of the device list.
type Page struct {
	Items      []device.Device `json:"data"`
	Page       int             `json:"currentPage"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
	TotalCount int             `json:"totalDevices"`
}

// RowStatus is the outcome of one import row.
type RowStatus string

// Row outcomes.
const (
	RowSuccess RowStatus = "Success"
	RowSkipped RowStatus = "Skipped"
	RowFailed  RowStatus = "Failed"
)

// Import row reasons.
const (
	ReasonAdded         = "Added"
	ReasonMissingSerial = "Missing Serial Number"
	ReasonSerialExists  = "SN already exists"
	ReasonIMEIExists    = "IMEI already exists"
)

// RowOutcome is one line of an import log.
type RowOutcome struct {
	Row     int       `json:"row"`
	Serial  string    `json:"sn,omitempty"`
	Status  RowStatus `json:"status"`
	Reason  string    `json:"reason"`
	Warning string    `json:"warning,omitempty"`
}

// RowError is a non-fatal failure of one import row.
type RowError struct {
	Row    int
	Serial string
	Status RowStatus // RowSkipped or RowFailed
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	if e.Serial == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d (%s): %s", e.Row, e.Serial, e.Reason)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

func (e *RowError) outcome() RowOutcome {
	return RowOutcome{Row: e.Row, Serial: e.Serial, Status: e.Status, Reason: e.Reason}
}

// ImportReport summarises a bulk import.
type ImportReport struct {
	Added     int          `json:"added"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	AuditGaps int          `json:"auditGaps,omitempty"`
	Logs      []RowOutcome `json:"logs"`
}

// AuditGap describes a device whose status is not backed by its newest
// audit entry.
type AuditGap struct {
	DeviceID      string `json:"device_id"`
	Serial        string `json:"sn_no"`
	CurrentStatus string `json:"current_status"`
	LatestStatus  string `json:"latest_status,omitempty"` // empty when the device has no entries
	Repaired      bool   `json:"repaired"`
}

// ReconcileReport is the result of Reconcile.
type ReconcileReport struct {
	OrphanDevices  []string   `json:"orphanDevices"`
	OrphansRemoved int64      `json:"orphanEntriesRemoved"`
	Gaps           []AuditGap `json:"gaps"`
}
