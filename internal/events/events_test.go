package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gripid/tracker-core/internal/infrastructure/influxdb"
	"github.com/gripid/tracker-core/internal/infrastructure/mqtt"
)

// recordingSink collects handled events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	done   chan struct{}
	want   int
}

func newRecordingSink(want int) *recordingSink {
	return &recordingSink{done: make(chan struct{}), want: want}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Handle(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if len(s.events) == s.want {
		close(s.done)
	}
	return nil
}

func (s *recordingSink) wait(t *testing.T) []Event {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// warnCounter counts Warn calls.
type warnCounter struct {
	noopLogger
	mu    sync.Mutex
	warns []string
}

func (l *warnCounter) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *warnCounter) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := newRecordingSink(3)
	d := NewDispatcher(8, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx) //nolint:errcheck // always nil

	d.Notify(Event{Type: DeviceCreated, DeviceID: "a"})
	d.Notify(Event{Type: DeviceUpdated, DeviceID: "a"})
	d.Notify(Event{Type: DeviceDeleted, DeviceID: "a"})

	got := rec.wait(t)
	want := []Type{DeviceCreated, DeviceUpdated, DeviceDeleted}
	for i, e := range got {
		if e.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.Type, want[i])
		}
		if e.At.IsZero() {
			t.Errorf("event %d has no timestamp", i)
		}
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	logger := &warnCounter{}
	d := NewDispatcher(1)
	d.SetLogger(logger)

	d.Notify(Event{Type: DeviceCreated, DeviceID: "a"})
	d.Notify(Event{Type: DeviceCreated, DeviceID: "b"})
	d.Notify(Event{Type: DeviceCreated, DeviceID: "c"})

	if got := d.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if logger.count() != 2 {
		t.Errorf("warnings = %d, want 2", logger.count())
	}
}

func TestDispatcher_FailingSinkDoesNotBlockOthers(t *testing.T) {
	logger := &warnCounter{}
	failing := SinkFunc(func(context.Context, Event) error { return errors.New("broker down") })
	rec := newRecordingSink(1)

	d := NewDispatcher(4, failing, rec)
	d.SetLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx) //nolint:errcheck // always nil

	d.Notify(Event{Type: DeviceCreated, DeviceID: "a"})
	rec.wait(t)

	if logger.count() != 1 {
		t.Errorf("warnings = %d, want 1", logger.count())
	}
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	rec := newRecordingSink(2)
	d := NewDispatcher(4, rec)

	d.Notify(Event{Type: DeviceCreated, DeviceID: "a"})
	d.Notify(Event{Type: DeviceCreated, DeviceID: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := rec.wait(t); len(got) != 2 {
		t.Errorf("delivered %d events, want 2", len(got))
	}
}

type fakePublisher struct {
	topic   string
	payload []byte
}

func (p *fakePublisher) PublishEvent(topic string, payload []byte) error {
	p.topic, p.payload = topic, payload
	return nil
}

func TestMQTTSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub, mqtt.Topics{Prefix: "site-a"})

	tests := []struct {
		event Event
		topic string
	}{
		{Event{Type: DeviceCreated, DeviceID: "a"}, "site-a/events/device/created"},
		{Event{Type: DeviceDeleted, DeviceID: "a"}, "site-a/events/device/deleted"},
		{Event{Type: ImportCompleted, Import: &ImportSummary{Added: 2}}, "site-a/events/import"},
	}
	for _, tt := range tests {
		t.Run(string(tt.event.Type), func(t *testing.T) {
			if err := sink.Handle(context.Background(), tt.event); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if pub.topic != tt.topic {
				t.Errorf("topic = %q, want %q", pub.topic, tt.topic)
			}
			var decoded Event
			if err := json.Unmarshal(pub.payload, &decoded); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if decoded.Type != tt.event.Type {
				t.Errorf("payload type = %q, want %q", decoded.Type, tt.event.Type)
			}
		})
	}
}

type fakeStatusWriter struct {
	changes []influxdb.StatusChange
	batches []ImportSummary
}

func (w *fakeStatusWriter) WriteStatusChange(sc influxdb.StatusChange) {
	w.changes = append(w.changes, sc)
}

func (w *fakeStatusWriter) WriteImportBatch(source string, added, skipped, failed int, _ time.Time) {
	w.batches = append(w.batches, ImportSummary{Source: source, Added: added, Skipped: skipped, Failed: failed})
}

func TestInfluxSink(t *testing.T) {
	w := &fakeStatusWriter{}
	sink := NewInfluxSink(w)
	ctx := context.Background()

	events := []Event{
		{Type: DeviceCreated, DeviceID: "a", Serial: "GRIPID001", Status: "In Stock"},
		{Type: DeviceUpdated, DeviceID: "a", Serial: "GRIPID001", Status: "Shipped", Note: "site A"},
		{Type: DeviceDeleted, DeviceID: "a"},
		{Type: ImportCompleted, Import: &ImportSummary{Source: "stock.xlsx", Added: 3, Skipped: 1}},
	}
	for _, e := range events {
		if err := sink.Handle(ctx, e); err != nil {
			t.Fatalf("Handle(%s) error = %v", e.Type, err)
		}
	}

	if len(w.changes) != 2 {
		t.Fatalf("status changes = %d, want 2", len(w.changes))
	}
	if w.changes[1].Status != "Shipped" || w.changes[1].Note != "site A" {
		t.Errorf("second change = %+v", w.changes[1])
	}
	if len(w.batches) != 1 || w.batches[0].Added != 3 || w.batches[0].Source != "stock.xlsx" {
		t.Errorf("batches = %+v", w.batches)
	}
}

type fakeHub struct {
	channel string
	payload any
}

func (h *fakeHub) Broadcast(channel string, payload any) {
	h.channel, h.payload = channel, payload
}

func TestHubSink(t *testing.T) {
	hub := &fakeHub{}
	e := Event{Type: DeviceUpdated, DeviceID: "a"}
	if err := NewHubSink(hub).Handle(context.Background(), e); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if hub.channel != "device.updated" {
		t.Errorf("channel = %q, want device.updated", hub.channel)
	}
	if got, ok := hub.payload.(Event); !ok || got.DeviceID != "a" {
		t.Errorf("payload = %#v", hub.payload)
	}
}
