package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/gripid/tracker-core/internal/device"
	"github.com/gripid/tracker-core/internal/events"
	"github.com/gripid/tracker-core/internal/sheet"
)

// firstDataRow is the row number assumed for rows[0] when a line carries
// no number of its own; row 1 is the header.
const firstDataRow = 2

// BulkImport registers every row in order. Rows without a serial fail,
// rows colliding with a registered device are skipped, the rest are
// created with a seed entry noted DefaultImportNote unless the row has a
// note of its own.
//
// Each outcome is numbered with its line's source row number.
// Row failures are recorded in the report. A storage failure or context
// cancellation stops the batch; the report then covers the rows processed
// so far and rows already added stay added.
func (s *Service) BulkImport(ctx context.Context, source string, rows []sheet.Line) (*ImportReport, error) {
	report := &ImportReport{Logs: make([]RowOutcome, 0, len(rows))}

	for i, line := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rowNum := line.Number
		if rowNum <= 0 {
			rowNum = i + firstDataRow
		}
		outcome, err := s.importRow(ctx, rowNum, sheet.Extract(line.Raw))
		var rowErr *RowError
		switch {
		case errors.As(err, &rowErr):
			if rowErr.Status == RowSkipped {
				report.Skipped++
			} else {
				report.Failed++
			}
			report.Logs = append(report.Logs, rowErr.outcome())
		case err != nil:
			s.logger.Error("import aborted",
				"source", source,
				"row", rowNum,
				"error", err,
			)
			return report, err
		default:
			report.Added++
			if outcome.Warning != "" {
				report.AuditGaps++
			}
			report.Logs = append(report.Logs, outcome)
		}
	}

	s.logger.Info("import completed",
		"source", source,
		"added", report.Added,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	s.notifier.Notify(events.Event{
		Type: events.ImportCompleted,
		Import: &events.ImportSummary{
			Source:  source,
			Added:   report.Added,
			Skipped: report.Skipped,
			Failed:  report.Failed,
		},
		At: time.Now().UTC(),
	})
	return report, nil
}

// importRow registers one row. Non-fatal problems are returned as
// *RowError.
func (s *Service) importRow(ctx context.Context, rowNum int, row sheet.Row) (RowOutcome, error) {
	if row.Serial == "" {
		return RowOutcome{}, &RowError{Row: rowNum, Status: RowFailed, Reason: ReasonMissingSerial, Err: device.ErrInvalidSerial}
	}

	candidate := device.Identity{Serial: row.Serial, IMEI1: row.IMEI1, IMEI2: row.IMEI2}
	conflict, err := s.resolver.FindConflict(ctx, candidate)
	if err != nil {
		return RowOutcome{}, err
	}
	if conflict != nil {
		return RowOutcome{}, skipped(rowNum, row.Serial, &device.ConflictError{Conflict: *conflict})
	}

	d := &device.Device{
		Serial:        row.Serial,
		IMEI1:         row.IMEI1,
		IMEI2:         row.IMEI2,
		CurrentStatus: orDefault(row.Status, DefaultStatus),
	}
	if err := s.devices.Create(ctx, d); err != nil {
		var conflictErr *device.ConflictError
		switch {
		case errors.As(err, &conflictErr):
			return RowOutcome{}, skipped(rowNum, row.Serial, conflictErr)
		case isFatal(err):
			return RowOutcome{}, err
		default:
			return RowOutcome{}, &RowError{Row: rowNum, Serial: row.Serial, Status: RowFailed, Reason: rowReason(err), Err: err}
		}
	}

	note := orDefault(row.Note, DefaultImportNote)
	result := s.appendEntry(ctx, d, note)
	s.notifyDevice(events.DeviceCreated, d, note)

	return RowOutcome{
		Row:     rowNum,
		Serial:  d.Serial,
		Status:  RowSuccess,
		Reason:  ReasonAdded,
		Warning: result.Warning,
	}, nil
}

func skipped(rowNum int, serial string, conflict *device.ConflictError) *RowError {
	reason := ReasonIMEIExists
	if conflict.Reason == device.ReasonSerial {
		reason = ReasonSerialExists
	}
	return &RowError{Row: rowNum, Serial: serial, Status: RowSkipped, Reason: reason, Err: conflict}
}

func rowReason(err error) string {
	switch {
	case errors.Is(err, device.ErrInvalidSerial):
		return ReasonMissingSerial
	case errors.Is(err, device.ErrInvalidIMEI):
		return "IMEI 1 and IMEI 2 are identical"
	default:
		return err.Error()
	}
}
