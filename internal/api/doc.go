// Package api implements the HTTP REST API and WebSocket server of the
// GripID tracker.
//
// This package provides:
//   - REST endpoints for device registration, status updates, history,
//     spreadsheet import/export, and scanner token classification
//   - WebSocket hub that relays device events to connected browsers
//   - JWT bearer authentication with role permissions and ticket-based
//     WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//
// # Error Mapping
//
// Tracker errors map onto HTTP statuses: a duplicate serial or IMEI is
// 409, an unknown device is 404, invalid input is 400, and an unavailable
// store is 503. A write that committed without its audit entry answers
// normally but carries an X-Audit-Warning header and a "warning" field.
//
// # Security
//
// Authentication is enabled when security.jwt.secret is set. Without a
// secret every request is served as an anonymous admin, which is meant
// for a single trusted workstation only.
package api
