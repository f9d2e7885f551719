package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/dwrignell/homesynth/internal/entity"
)

// WriteStateEvent archives a single entity state transition.
//
// This is the primary write path: the entity store forwards every recorded
// state change here for long-term retention, so the mining window can extend
// beyond what the in-memory log holds.
//
// The write is non-blocking; points are batched and sent asynchronously.
// The point carries the event's own timestamp, not the write time, so
// replayed or delayed events land at the correct position in the series.
//
// Parameters:
//   - event: The state transition to archive
//
// Example:
//
//	client.WriteStateEvent(entity.StateEvent{
//	    EntityID:  "binary_sensor.hallway_motion",
//	    OldState:  "off",
//	    NewState:  "on",
//	    Timestamp: time.Now(),
//	})
func (c *Client) WriteStateEvent(event entity.StateEvent) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"state_events",
		map[string]string{
			"entity_id": event.EntityID,
			"domain":    entity.DomainOf(event.EntityID),
		},
		map[string]interface{}{
			"old_state": event.OldState,
			"new_state": event.NewState,
		},
		event.Timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeploymentOutcome records the result of a deployment test cycle.
//
// One point per attempt, tagged by document kind so pass rates can be
// graphed per document type.
//
// Parameters:
//   - kind: Document kind ("automation", "script", "scene", "dashboard")
//   - logicalID: The document's stable logical identifier
//   - passed: Whether the config check succeeded and the document was promoted
//   - rolledBack: Whether a previous revision was restored
func (c *Client) WriteDeploymentOutcome(kind string, logicalID string, passed bool, rolledBack bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"deployments",
		map[string]string{
			"kind": kind,
		},
		map[string]interface{}{
			"logical_id":  logicalID,
			"passed":      passed,
			"rolled_back": rolledBack,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("mining_runs",
//	    map[string]string{"trigger": "scheduled"},
//	    map[string]interface{}{"patterns": 12, "duration_ms": 840})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
