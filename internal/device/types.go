package device

import (
	"strings"
	"time"

	"github.com/gripid/tracker-core/internal/identity"
)

// Device is one physical unit in the registry.
//
// Serial keeps the casing it was registered with; identity.Normalize gives
// the comparison key. ModelTag is derived from Serial by the repository on
// every write and cannot be set independently.
type Device struct {
	ID            string            `json:"_id"`
	Serial        string            `json:"sn_no"`
	IMEI1         string            `json:"imei_1"`
	IMEI2         string            `json:"imei_2"`
	ModelTag      identity.ModelTag `json:"model_type,omitempty"`
	CurrentStatus string            `json:"current_status"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Identity returns the fields used for duplicate detection.
func (d *Device) Identity() Identity {
	return Identity{Serial: d.Serial, IMEI1: d.IMEI1, IMEI2: d.IMEI2}
}

// Clean trims the identity and status fields in place.
func (d *Device) Clean() {
	d.Serial = strings.TrimSpace(d.Serial)
	d.IMEI1 = identity.CleanIMEI(d.IMEI1)
	d.IMEI2 = identity.CleanIMEI(d.IMEI2)
	d.CurrentStatus = strings.TrimSpace(d.CurrentStatus)
}

// deriveModel recomputes ModelTag from Serial.
func (d *Device) deriveModel() {
	d.ModelTag, _ = identity.ClassifyModel(d.Serial)
}

// Identity is the serial/IMEI triple of a registration candidate.
type Identity struct {
	Serial string
	IMEI1  string
	IMEI2  string
}

// SerialKey returns the case-insensitive comparison key of the serial.
func (id Identity) SerialKey() string {
	return identity.Normalize(id.Serial)
}

// IMEIs returns the non-empty IMEIs of the candidate, trimmed, without
// duplicates.
func (id Identity) IMEIs() []string {
	out := make([]string, 0, 2)
	for _, v := range []string{id.IMEI1, id.IMEI2} {
		v = identity.CleanIMEI(v)
		if v == "" {
			continue
		}
		if len(out) == 1 && out[0] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Validate checks the fields every stored device must satisfy.
func (id Identity) Validate() error {
	if id.SerialKey() == "" {
		return ErrInvalidSerial
	}
	a, b := identity.CleanIMEI(id.IMEI1), identity.CleanIMEI(id.IMEI2)
	if a != "" && a == b {
		return ErrInvalidIMEI
	}
	return nil
}

// holds reports whether d carries imei in either slot.
func (d *Device) holds(imei string) bool {
	return imei != "" && (d.IMEI1 == imei || d.IMEI2 == imei)
}
