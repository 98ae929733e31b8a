package events

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	// DefaultBufferSize is the queue length used when none is given.
	DefaultBufferSize = 256

	// sinkTimeout bounds one sink call.
	sinkTimeout = 5 * time.Second

	// drainTimeout bounds the flush of queued events at shutdown.
	drainTimeout = 2 * time.Second
)

// Logger is the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives dispatched events.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Dispatcher queues events and delivers them to sinks from one goroutine.
//
// Thread Safety: Notify is safe for concurrent use. Run must be called once.
type Dispatcher struct {
	queue   chan Event
	sinks   []Sink
	logger  Logger
	dropped atomic.Uint64
}

// NewDispatcher creates a dispatcher with a queue of bufferSize events.
func NewDispatcher(bufferSize int, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Dispatcher{
		queue:  make(chan Event, bufferSize),
		sinks:  sinks,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// Notify queues e without blocking. When the queue is full the event is
// dropped and counted.
func (d *Dispatcher) Notify(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case d.queue <- e:
	default:
		n := d.dropped.Add(1)
		d.logger.Warn("event queue full, dropping event",
			"type", string(e.Type),
			"device_id", e.DeviceID,
			"dropped_total", n,
		)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Run delivers queued events until ctx is cancelled, then flushes what is
// still queued within a short grace period. It always returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case e := <-d.queue:
			d.deliver(ctx, e)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case e := <-d.queue:
			d.deliver(ctx, e)
		default:
			return
		}
		if ctx.Err() != nil {
			d.logger.Warn("event drain timed out", "pending", len(d.queue))
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := sink.Handle(sinkCtx, e)
		cancel()
		if err != nil {
			d.logger.Warn("event sink failed",
				"sink", sink.Name(),
				"type", string(e.Type),
				"device_id", e.DeviceID,
				"error", err,
			)
		}
	}
}
