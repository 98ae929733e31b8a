package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "gripid"

// Topics builds tracker topic names under a prefix.
//
//	topics := mqtt.Topics{Prefix: "gripid"}
//	topics.DeviceEvent("device.updated")
//	// Returns: "gripid/events/device/updated"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// DeviceEvent returns the topic for a device lifecycle event. The
// "device." namespace of the event name is dropped from the topic.
//
// Example: gripid/events/device/created
func (t Topics) DeviceEvent(event string) string {
	return t.prefix() + "/events/device/" + strings.TrimPrefix(event, "device.")
}

// ImportEvent returns the topic for bulk import summaries.
//
// Example: gripid/events/import
func (t Topics) ImportEvent() string {
	return t.prefix() + "/events/import"
}

// AllDeviceEvents returns a wildcard subscription for every device event.
//
// Example: gripid/events/device/+
func (t Topics) AllDeviceEvents() string {
	return t.prefix() + "/events/device/+"
}

// SystemStatus returns the retained tracker online/offline topic.
//
// Example: gripid/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}
