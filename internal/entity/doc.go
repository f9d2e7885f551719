// Package entity provides the Entity State Store: a read-mostly view over
// current entity snapshots and their historical state-change events, backed
// by the external Home Assistant runtime.
//
// The package has three layers:
//
//   - Client: the HTTP boundary to Home Assistant (states, service calls,
//     config check). All live reads and writes go through it.
//   - HistoryRepository: an append-only SQLite log of state-change events
//     with per-entity monotonic ordering.
//   - Store: a cached snapshot of all entity records plus the retained
//     history, refreshed on staleness.
//
// Thread Safety: Store and Client are safe for concurrent use. The event
// log is append-only; events are never reordered or mutated in place.
package entity
