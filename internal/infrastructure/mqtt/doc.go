// Package mqtt publishes GripID tracker events to an MQTT broker.
//
// The tracker is a publisher only: device lifecycle events and import
// summaries go out under a configurable topic prefix so warehouse
// dashboards and downstream ERP bridges can follow registry changes
// without polling the API.
//
// Topic layout (prefix defaults to "gripid"):
//
//	{prefix}/events/device/{event}   device.created, device.updated, device.deleted
//	{prefix}/events/import           import.completed summaries
//	{prefix}/system/status           retained online/offline status (LWT)
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().DeviceEvent("device.created")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
