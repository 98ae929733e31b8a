package tracker

import (
	"context"
	"errors"

	"github.com/gripid/tracker-core/internal/audit"
	"github.com/gripid/tracker-core/internal/device"
)

// Reconcile brings the audit log back in line with the registry.
//
// Entries owned by a device that no longer exists are deleted. Devices
// whose current status differs from their newest entry, or that have no
// entry at all, are reported; with repair set, an entry noted
// ReconcileNote is appended for each of them.
func (s *Service) Reconcile(ctx context.Context, repair bool) (*ReconcileReport, error) {
	report := &ReconcileReport{
		OrphanDevices: []string{},
		Gaps:          []AuditGap{},
	}

	ids, err := s.history.DeviceIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		_, err := s.devices.GetByID(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, device.ErrDeviceNotFound) {
			return nil, err
		}
		removed, err := s.history.CascadeDelete(ctx, id)
		if err != nil {
			return nil, err
		}
		report.OrphanDevices = append(report.OrphanDevices, id)
		report.OrphansRemoved += removed
	}

	devices, err := s.devices.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		d := &devices[i]
		gap, err := s.checkDevice(ctx, d)
		if err != nil {
			return nil, err
		}
		if gap == nil {
			continue
		}
		if repair {
			entry := &audit.Entry{
				DeviceID:       d.ID,
				SerialSnapshot: d.Serial,
				Status:         d.CurrentStatus,
				Note:           ReconcileNote,
			}
			if err := s.history.Append(ctx, entry); err != nil {
				return nil, err
			}
			gap.Repaired = true
		}
		report.Gaps = append(report.Gaps, *gap)
	}

	s.logger.Info("reconcile completed",
		"orphan_devices", len(report.OrphanDevices),
		"orphan_entries", report.OrphansRemoved,
		"gaps", len(report.Gaps),
		"repair", repair,
	)
	return report, nil
}

// checkDevice returns the gap for d, or nil when its newest entry matches.
func (s *Service) checkDevice(ctx context.Context, d *device.Device) (*AuditGap, error) {
	latest, err := s.history.Latest(ctx, d.ID)
	switch {
	case errors.Is(err, audit.ErrEntryNotFound):
		return &AuditGap{DeviceID: d.ID, Serial: d.Serial, CurrentStatus: d.CurrentStatus}, nil
	case err != nil:
		return nil, err
	case latest.Status != d.CurrentStatus:
		return &AuditGap{
			DeviceID:      d.ID,
			Serial:        d.Serial,
			CurrentStatus: d.CurrentStatus,
			LatestStatus:  latest.Status,
		}, nil
	default:
		return nil, nil
	}
}
