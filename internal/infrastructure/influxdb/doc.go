// Package influxdb provides the long-term state-event archive.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched event writing, and health monitoring.
//
// # Purpose
//
// The in-memory event log is bounded; this package gives state transitions
// a durable time-series home:
//   - Entity state transitions (for mining windows beyond the log horizon)
//   - Deployment outcomes (pass/fail/rollback rates over time)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "homesynth",
//	    Bucket: "events",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Archive every recorded state change
//	store.SetArchiver(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This keeps network overhead low even for chatty sensor entities.
package influxdb
