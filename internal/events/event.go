package events

import "time"

// Type names an event.
type Type string

// Event types.
const (
	DeviceCreated   Type = "device.created"
	DeviceUpdated   Type = "device.updated"
	DeviceDeleted   Type = "device.deleted"
	ImportCompleted Type = "import.completed"
)

// Event is one committed change. Device events carry the device fields;
// ImportCompleted carries Import.
type Event struct {
	Type     Type           `json:"type"`
	DeviceID string         `json:"device_id,omitempty"`
	Serial   string         `json:"sn_no,omitempty"`
	ModelTag string         `json:"model_type,omitempty"`
	Status   string         `json:"status,omitempty"`
	Note     string         `json:"note,omitempty"`
	Import   *ImportSummary `json:"import,omitempty"`
	At       time.Time      `json:"at"`
}

// ImportSummary is the outcome of one bulk import.
type ImportSummary struct {
	Source  string `json:"source"`
	Added   int    `json:"added"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// IsDevice reports whether e describes a single device.
func (e Event) IsDevice() bool {
	return e.Type == DeviceCreated || e.Type == DeviceUpdated || e.Type == DeviceDeleted
}
