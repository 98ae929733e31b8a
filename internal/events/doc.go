// Package events carries device lifecycle notifications out of the
// tracker after a write has committed.
//
// The tracker hands each Event to a Dispatcher, which queues it on a
// bounded buffer and returns immediately. A single goroutine (Run) feeds
// every queued event to the configured sinks:
//
//	tracker ──Notify──▶ Dispatcher ──▶ MQTTSink   (gripid/events/...)
//	                               ├─▶ InfluxSink (device_status, import_batch)
//	                               └─▶ HubSink    (websocket clients)
//
// Delivery is best effort. A full buffer drops the event with a warning
// and a failing sink is logged and skipped; neither ever changes the
// outcome of the write that produced the event.
package events
