package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the tracker.
const (
	MeasurementDeviceStatus = "device_status"
	MeasurementImportBatch  = "import_batch"
)

// StatusChange describes one audited status transition.
type StatusChange struct {
	DeviceID string
	Serial   string
	ModelTag string
	Status   string
	Note     string
	At       time.Time
}

// statusChangePoint builds the device_status point. Status and model are
// tags so dashboards can count devices per location; the serial is a field
// to keep series cardinality bounded.
func statusChangePoint(sc StatusChange) *write.Point {
	tags := map[string]string{
		"status": sc.Status,
	}
	if sc.ModelTag != "" {
		tags["model"] = sc.ModelTag
	}
	return write.NewPoint(
		MeasurementDeviceStatus,
		tags,
		map[string]interface{}{
			"device_id": sc.DeviceID,
			"serial":    sc.Serial,
			"note":      sc.Note,
		},
		sc.At,
	)
}

// importBatchPoint builds the import_batch summary point.
func importBatchPoint(source string, added, skipped, failed int, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementImportBatch,
		map[string]string{"source": source},
		map[string]interface{}{
			"added":   added,
			"skipped": skipped,
			"failed":  failed,
		},
		at,
	)
}

// WriteStatusChange records an audited status transition.
func (c *Client) WriteStatusChange(sc StatusChange) {
	if !c.IsConnected() {
		return
	}
	if sc.At.IsZero() {
		sc.At = time.Now()
	}
	c.writeAPI.WritePoint(statusChangePoint(sc))
}

// WriteImportBatch records the outcome counts of one bulk import.
func (c *Client) WriteImportBatch(source string, added, skipped, failed int, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(importBatchPoint(source, added, skipped, failed, at))
}
