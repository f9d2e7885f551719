// Package api implements the HTTP REST API for the synthesis pipeline.
//
// This package provides:
//   - Synthesis endpoints (dashboards, automations, scripts, scenes)
//   - Validation and deployment endpoints driving the test/promote cycle
//   - Document and entity read endpoints
//   - Suggestion lifecycle endpoints (refresh, accept, dismiss)
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Architecture
//
// The API server is the only write path into the pipeline. Requests flow
// synthesize → validate → deploy; each stage is an explicit endpoint so
// callers always see intermediate results (issues, test outcomes) before
// committing further.
//
// # Graceful Degradation
//
// The server operates without MQTT — pipeline event notifications are
// skipped, everything else works. This enables testing and partial operation.
package api
