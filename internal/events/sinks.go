package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gripid/tracker-core/internal/infrastructure/influxdb"
	"github.com/gripid/tracker-core/internal/infrastructure/mqtt"
)

// Publisher is the part of the MQTT client used by MQTTSink.
type Publisher interface {
	PublishEvent(topic string, payload []byte) error
}

// MQTTSink publishes events as JSON.
//
// Device events go to {prefix}/events/device/{created|updated|deleted};
// import summaries go to {prefix}/events/import.
type MQTTSink struct {
	pub    Publisher
	topics mqtt.Topics
}

// NewMQTTSink creates a sink publishing under topics.
func NewMQTTSink(pub Publisher, topics mqtt.Topics) *MQTTSink {
	return &MQTTSink{pub: pub, topics: topics}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Handle implements Sink.
func (s *MQTTSink) Handle(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", e.Type, err)
	}
	return s.pub.PublishEvent(s.Topic(e), payload)
}

// Topic returns the topic an event is published on.
func (s *MQTTSink) Topic(e Event) string {
	if e.Type == ImportCompleted {
		return s.topics.ImportEvent()
	}
	return s.topics.DeviceEvent(string(e.Type))
}

// StatusWriter is the part of the InfluxDB client used by InfluxSink.
type StatusWriter interface {
	WriteStatusChange(sc influxdb.StatusChange)
	WriteImportBatch(source string, added, skipped, failed int, at time.Time)
}

// InfluxSink records status changes and import batches as time-series
// points. Deletions are not recorded.
type InfluxSink struct {
	w StatusWriter
}

// NewInfluxSink creates a sink writing to w.
func NewInfluxSink(w StatusWriter) *InfluxSink {
	return &InfluxSink{w: w}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return "influxdb" }

// Handle implements Sink. Writes are non-blocking.
func (s *InfluxSink) Handle(_ context.Context, e Event) error {
	switch e.Type {
	case DeviceCreated, DeviceUpdated:
		s.w.WriteStatusChange(influxdb.StatusChange{
			DeviceID: e.DeviceID,
			Serial:   e.Serial,
			ModelTag: e.ModelTag,
			Status:   e.Status,
			Note:     e.Note,
			At:       e.At,
		})
	case ImportCompleted:
		if e.Import != nil {
			s.w.WriteImportBatch(e.Import.Source, e.Import.Added, e.Import.Skipped, e.Import.Failed, e.At)
		}
	}
	return nil
}

// Broadcaster is the part of the websocket hub used by HubSink.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// HubSink forwards every event to websocket clients subscribed to the
// event's type.
type HubSink struct {
	hub Broadcaster
}

// NewHubSink creates a sink broadcasting on hub.
func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

// Name implements Sink.
func (s *HubSink) Name() string { return "websocket" }

// Handle implements Sink.
func (s *HubSink) Handle(_ context.Context, e Event) error {
	s.hub.Broadcast(string(e.Type), e)
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

// Name implements Sink.
func (f SinkFunc) Name() string { return "func" }

// Handle implements Sink.
func (f SinkFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }
