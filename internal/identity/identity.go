// Package identity canonicalises device identifiers for comparison and
// classifies raw scanner tokens and serial numbers.
//
// Nothing in this package touches storage; every function is pure.
package identity

import (
	"strings"
)

// ModelTag is the hardware variant derived from a serial number.
type ModelTag string

// Recognised model tags.
const (
	ModelV6    ModelTag = "V6"
	ModelFAP20 ModelTag = "FAP20"
)

// modelMarkers is checked in order; the first marker found in the
// canonical serial wins. FAP20 comes first so a serial carrying both
// markers is never reported as V6.
var modelMarkers = []struct {
	marker string
	tag    ModelTag
}{
	{marker: "FAP20", tag: ModelFAP20},
	{marker: "V6", tag: ModelV6},
}

// Normalize returns the canonical comparison key for a serial number:
// surrounding whitespace removed and upper-cased.
//
// The key is used only for matching; stored serials keep their casing.
func Normalize(serial string) string {
	return strings.ToUpper(strings.TrimSpace(serial))
}

// ClassifyModel returns the model tag for a serial, or false when the
// serial carries no recognised marker. Matching is case-insensitive.
func ClassifyModel(serial string) (ModelTag, bool) {
	key := Normalize(serial)
	if key == "" {
		return "", false
	}
	for _, m := range modelMarkers {
		if strings.Contains(key, m.marker) {
			return m.tag, true
		}
	}
	return "", false
}

// SameSerial reports whether two serials refer to the same device identity.
func SameSerial(a, b string) bool {
	ka := Normalize(a)
	return ka != "" && ka == Normalize(b)
}

// CleanIMEI trims an IMEI value. IMEIs are compared exactly after trimming.
func CleanIMEI(imei string) string {
	return strings.TrimSpace(imei)
}
