package influxdb

import "errors"

var (
	// ErrNotConnected is returned by HealthCheck once the client is closed
	// or was never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed is returned by Connect when the server cannot be
	// reached or reports itself unhealthy.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps every batch write failure passed to the
	// SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
