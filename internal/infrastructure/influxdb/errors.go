package influxdb

import "errors"

// Sentinel errors for archive operations, checked with errors.Is.
var (
	// ErrNotConnected indicates the client is not connected to InfluxDB.
	// Archive writes are silently skipped in this state; only explicit
	// operations surface it.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a write failed. Batched writes report
	// failures asynchronously through the error callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates the archive is disabled in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
