package entity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Ingestor converts Home Assistant MQTT Statestream messages into
// StateEvents and records them in the Store.
//
// Statestream publishes one topic per entity attribute; only the state
// topics matter here:
//
//	<prefix>/<domain>/<object_id>/state  →  payload is the new state value
//
// The ingestor tracks the previously observed state per entity to populate
// StateEvent.OldState, seeding from the store's cached snapshot on first
// observation.
//
// Thread Safety: HandleMessage is safe for concurrent use; the paho library
// invokes handlers from separate goroutines.
type Ingestor struct {
	store  *Store
	prefix string
	logger Logger

	lastState map[string]string
	mu        sync.Mutex
}

// NewIngestor creates a statestream ingestor for the given topic prefix
// (e.g., "homeassistant/statestream").
func NewIngestor(store *Store, prefix string) *Ingestor {
	return &Ingestor{
		store:     store,
		prefix:    strings.TrimRight(prefix, "/"),
		logger:    noopLogger{},
		lastState: make(map[string]string),
	}
}

// SetLogger sets the logger for the ingestor.
func (in *Ingestor) SetLogger(logger Logger) {
	in.logger = logger
}

// Topic returns the wildcard subscription topic covering all state updates.
func (in *Ingestor) Topic() string {
	return in.prefix + "/+/+/state"
}

// HandleMessage processes one statestream message. Non-state topics and
// unchanged states are ignored. The signature matches the MQTT client's
// MessageHandler.
func (in *Ingestor) HandleMessage(topic string, payload []byte) error {
	entityID, ok := in.parseTopic(topic)
	if !ok {
		return nil // attribute topic or foreign prefix
	}

	newState := strings.Trim(strings.TrimSpace(string(payload)), `"`)
	if newState == "" {
		return nil
	}

	oldState, changed := in.observe(entityID, newState)
	if !changed {
		return nil
	}

	event := StateEvent{
		EntityID:  entityID,
		OldState:  oldState,
		NewState:  newState,
		Timestamp: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := in.store.RecordEvent(ctx, event); err != nil {
		return fmt.Errorf("recording statestream event for %s: %w", entityID, err)
	}

	in.logger.Debug("state event recorded",
		"entity_id", entityID,
		"old_state", oldState,
		"new_state", newState,
	)
	return nil
}

// parseTopic extracts the entity id from a statestream state topic.
func (in *Ingestor) parseTopic(topic string) (string, bool) {
	rest, found := strings.CutPrefix(topic, in.prefix+"/")
	if !found {
		return "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "state" {
		return "", false
	}
	domain, object := parts[0], parts[1]
	if domain == "" || object == "" {
		return "", false
	}
	return domain + "." + object, true
}

// observe updates the last-seen state and returns the previous one.
// The boolean is false when the state did not change (retained republish).
func (in *Ingestor) observe(entityID, newState string) (string, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	old, seen := in.lastState[entityID]
	if !seen {
		// Seed from the cached snapshot so the first transition carries a
		// meaningful old state.
		in.store.cacheMu.RLock()
		if cached, ok := in.store.cache[entityID]; ok {
			old = cached.State
		}
		in.store.cacheMu.RUnlock()
	}
	if seen && old == newState {
		return old, false
	}

	in.lastState[entityID] = newState
	return old, true
}
