package tracker

import (
	"context"

	"github.com/gripid/tracker-core/internal/sheet"
)

// ExportAll returns every device as an export record, newest first.
func (s *Service) ExportAll(ctx context.Context) ([]sheet.Record, error) {
	devices, err := s.devices.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]sheet.Record, 0, len(devices))
	for _, d := range devices {
		records = append(records, sheet.Record{
			Serial:  d.Serial,
			IMEI1:   d.IMEI1,
			IMEI2:   d.IMEI2,
			Status:  d.CurrentStatus,
			AddedOn: d.CreatedAt,
		})
	}
	return records, nil
}
