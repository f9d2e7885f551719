package entity

import (
	"strings"
	"time"
)

// Record is an immutable snapshot of a single entity's state.
// A newer snapshot supersedes it atomically on change; a Record is never
// mutated in place.
type Record struct {
	// EntityID is the full identifier in domain.object_id form
	// (e.g., "light.kitchen").
	EntityID string `json:"entity_id"`

	// State is the current state value (e.g., "on", "22.5", "home").
	State string `json:"state"`

	// Attributes holds the open-ended dynamic attributes reported by the
	// runtime. Use the typed accessors rather than reaching in directly.
	Attributes map[string]any `json:"attributes,omitempty"`

	// Timestamps reported by the runtime.
	LastChanged time.Time `json:"last_changed"`
	LastUpdated time.Time `json:"last_updated"`
}

// StateEvent is a single state transition in the append-only event log.
// Per-entity ordering is strictly monotonic by timestamp.
type StateEvent struct {
	EntityID  string    `json:"entity_id"`
	OldState  string    `json:"old_state"`
	NewState  string    `json:"new_state"`
	Timestamp time.Time `json:"timestamp"`
}

// Domain returns the entity's domain prefix ("light" for "light.kitchen").
// Returns an empty string if the id has no domain separator.
func (r *Record) Domain() string {
	return DomainOf(r.EntityID)
}

// FriendlyName returns the friendly_name attribute, falling back to a
// title-cased object id ("light.ceiling_lamp" → "Ceiling Lamp").
func (r *Record) FriendlyName() string {
	if name, ok := r.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	_, object, found := strings.Cut(r.EntityID, ".")
	if !found {
		object = r.EntityID
	}
	words := strings.Split(strings.ReplaceAll(object, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// DeviceClass returns the device_class attribute, or "" if absent.
func (r *Record) DeviceClass() string {
	if dc, ok := r.Attributes["device_class"].(string); ok {
		return dc
	}
	return ""
}

// UnitOfMeasurement returns the unit_of_measurement attribute, or "" if absent.
func (r *Record) UnitOfMeasurement() string {
	if u, ok := r.Attributes["unit_of_measurement"].(string); ok {
		return u
	}
	return ""
}

// SupportedFeatures returns the supported_features bitmask attribute, or 0.
// The runtime serialises it as a JSON number, so float64 is the wire type.
func (r *Record) SupportedFeatures() int {
	switch v := r.Attributes["supported_features"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// DeepCopy creates a complete independent copy of the Record.
// The attributes map is cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	cpy := *r
	cpy.Attributes = deepCopyMap(r.Attributes)
	return &cpy
}

// DomainOf extracts the domain prefix from an entity id.
// Returns "" if the id contains no "." separator.
func DomainOf(entityID string) string {
	domain, _, found := strings.Cut(entityID, ".")
	if !found {
		return ""
	}
	return domain
}

// ValidID reports whether an entity id has the domain.object_id form.
func ValidID(entityID string) bool {
	domain, object, found := strings.Cut(entityID, ".")
	return found && domain != "" && object != ""
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}
