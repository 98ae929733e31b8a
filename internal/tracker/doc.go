// Package tracker coordinates the device registry and the audit log.
//
// Every write is a two-step operation: the device record is written
// through device.Repository, then an audit entry is appended through
// audit.Repository. The two stores do not share a transaction. When the
// append fails after the device write committed, the write is still
// reported as successful with Outcome CommittedWithAuditGap and a
// Warning, and the gap is logged at WARN. Reconcile finds and repairs
// such gaps later.
//
// Bulk imports run the same sequence row by row, in input order, so a
// later row's duplicate check sees devices created by earlier rows. A
// row that fails or is skipped never aborts the batch.
//
// After a write commits, an event is handed to the configured Notifier.
// Notification never affects the write result.
package tracker
