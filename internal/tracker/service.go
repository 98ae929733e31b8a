package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gripid/tracker-core/internal/audit"
	"github.com/gripid/tracker-core/internal/device"
	"github.com/gripid/tracker-core/internal/events"
)

// Page size bounds used when Options leaves them unset.
const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Logger is the logging interface used by the service.
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

// Notifier receives events for committed writes. Notify must not block.
type Notifier interface {
	Notify(e events.Event)
}

type noopNotifier struct{}

func (noopNotifier) Notify(events.Event) {}

// Options configures a Service.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	Notifier        Notifier // may be nil
}

// Service is the consistency coordinator and query layer over the device
// registry and the audit log.
//
// Thread Safety: all methods are safe for concurrent use; uniqueness under
// concurrent writers is enforced by the device repository.
type Service struct {
	devices  device.Repository
	history  audit.Repository
	resolver *device.Resolver
	notifier Notifier
	logger   Logger

	defaultPageSize int
	maxPageSize     int
}

// NewService creates a Service over the two stores.
func NewService(devices device.Repository, history audit.Repository, opts Options) *Service {
	s := &Service{
		devices:         devices,
		history:         history,
		resolver:        device.NewResolver(devices),
		notifier:        opts.Notifier,
		logger:          noopLogger{},
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.defaultPageSize <= 0 {
		s.defaultPageSize = defaultPageSize
	}
	if s.maxPageSize < s.defaultPageSize {
		s.maxPageSize = max(maxPageSize, s.defaultPageSize)
	}
	return s
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// RegisterNew creates a device and its seed audit entry.
//
// Returns *device.ConflictError when the serial or an IMEI is taken,
// device.ErrInvalidSerial or device.ErrInvalidIMEI for bad input, and
// device.ErrPersistence when the registry is unavailable.
func (s *Service) RegisterNew(ctx context.Context, in CreateInput) (*WriteResult, error) {
	d := &device.Device{
		Serial:        in.Serial,
		IMEI1:         in.IMEI1,
		IMEI2:         in.IMEI2,
		CurrentStatus: orDefault(in.Status, DefaultStatus),
	}
	if err := s.devices.Create(ctx, d); err != nil {
		return nil, err
	}

	note := orDefault(in.Note, DefaultSeedNote)
	result := s.appendEntry(ctx, d, note)
	s.notifyDevice(events.DeviceCreated, d, note)
	return result, nil
}

// RecordUpdate applies a status change and optional identifier edits,
// then appends an audit entry carrying note. An empty note is recorded
// as empty.
//
// Returns device.ErrDeviceNotFound, *device.ConflictError for an edit
// onto a taken serial or IMEI, or a validation error.
func (s *Service) RecordUpdate(ctx context.Context, id string, in UpdateInput) (*WriteResult, error) {
	updated, err := s.devices.Modify(ctx, id, func(d *device.Device) {
		if in.Serial != nil {
			d.Serial = *in.Serial
		}
		if in.IMEI1 != nil {
			d.IMEI1 = *in.IMEI1
		}
		if in.IMEI2 != nil {
			d.IMEI2 = *in.IMEI2
		}
		if status := strings.TrimSpace(in.Status); status != "" {
			d.CurrentStatus = status
		}
	})
	if err != nil {
		return nil, err
	}

	note := strings.TrimSpace(in.Note)
	result := s.appendEntry(ctx, updated, note)
	s.notifyDevice(events.DeviceUpdated, updated, note)
	return result, nil
}

// Delete removes a device and then its audit entries. When the cascade
// fails the device stays deleted and the result carries a warning;
// Reconcile removes the orphaned entries later.
func (s *Service) Delete(ctx context.Context, id string) (*WriteResult, error) {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.devices.Delete(ctx, id); err != nil {
		return nil, err
	}

	result := &WriteResult{Device: d, Outcome: Committed}
	if removed, err := s.history.CascadeDelete(ctx, id); err != nil {
		s.logger.Warn("device deleted but history not removed",
			"device_id", d.ID,
			"serial", d.Serial,
			"error", err,
		)
		result.Outcome = CommittedWithAuditGap
		result.Warning = fmt.Sprintf("device deleted but its history was not removed: %v", err)
	} else {
		s.logger.Debug("device history removed", "device_id", d.ID, "entries", removed)
	}

	s.notifyDevice(events.DeviceDeleted, d, "")
	return result, nil
}

// Get returns a device by ID.
func (s *Service) Get(ctx context.Context, id string) (*device.Device, error) {
	return s.devices.GetByID(ctx, id)
}

// GetBySerial returns a device by serial, ignoring case.
func (s *Service) GetBySerial(ctx context.Context, serial string) (*device.Device, error) {
	return s.devices.GetBySerial(ctx, serial)
}

// ListPage returns one page of devices, newest first.
//
// page is 1-indexed and values below 1 select the first page. A
// non-positive pageSize selects the default and larger values than the
// maximum are capped. Pages past the end are empty with correct totals.
func (s *Service) ListPage(ctx context.Context, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	total, err := s.devices.Count(ctx)
	if err != nil {
		return nil, err
	}

	result := &Page{
		Items:      []device.Device{},
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
		TotalCount: total,
	}
	if page > result.TotalPages {
		return result, nil
	}

	offset := (page - 1) * pageSize
	items, err := s.devices.ListPage(ctx, pageSize, offset)
	if err != nil {
		return nil, err
	}
	result.Items = items
	return result, nil
}

// GetHistory returns the audit entries recorded under serial, newest
// first. The serial is trimmed and matched ignoring case. An unknown
// serial yields an empty slice.
func (s *Service) GetHistory(ctx context.Context, serial string) ([]audit.Entry, error) {
	return s.history.HistoryFor(ctx, strings.TrimSpace(serial))
}

// Activity returns a filtered page of audit entries across all devices.
func (s *Service) Activity(ctx context.Context, filter audit.Filter) (*audit.ListResult, error) {
	return s.history.List(ctx, filter)
}

// appendEntry records d's current status. A failed append is reported in
// the result, never as an error.
func (s *Service) appendEntry(ctx context.Context, d *device.Device, note string) *WriteResult {
	entry := &audit.Entry{
		DeviceID:       d.ID,
		SerialSnapshot: d.Serial,
		Status:         d.CurrentStatus,
		Note:           note,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("device written without audit entry",
			"device_id", d.ID,
			"serial", d.Serial,
			"status", d.CurrentStatus,
			"error", err,
		)
		return &WriteResult{
			Device:  d,
			Outcome: CommittedWithAuditGap,
			Warning: fmt.Sprintf("status saved but audit entry was not recorded: %v", err),
		}
	}
	return &WriteResult{Device: d, Entry: entry, Outcome: Committed}
}

func (s *Service) notifyDevice(t events.Type, d *device.Device, note string) {
	s.notifier.Notify(events.Event{
		Type:     t,
		DeviceID: d.ID,
		Serial:   d.Serial,
		ModelTag: string(d.ModelTag),
		Status:   d.CurrentStatus,
		Note:     note,
		At:       time.Now().UTC(),
	})
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// isFatal reports whether err should stop a batch rather than fail a row.
func isFatal(err error) bool {
	return errors.Is(err, device.ErrPersistence) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
