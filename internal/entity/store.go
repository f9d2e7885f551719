package entity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatesAPI is the slice of the runtime client the Store depends on.
type StatesAPI interface {
	States(ctx context.Context) ([]Record, error)
}

// Archiver receives every recorded state event for long-term retention.
// Implementations must be non-blocking; the InfluxDB writer batches
// asynchronously.
type Archiver interface {
	WriteStateEvent(event StateEvent)
}

// Store is the Entity State Store: a cached snapshot of all entity records
// plus the retained state-change history.
//
// The snapshot refreshes from the runtime when it goes stale. Reads are safe
// under unlimited concurrency; recording events serialises through the
// append-only history repository.
type Store struct {
	api     StatesAPI
	history HistoryRepository
	archive Archiver // optional

	staleness time.Duration

	cache       map[string]*Record
	refreshedAt time.Time
	cacheMu     sync.RWMutex

	logger Logger
}

// NewStore creates an entity store.
//
// Parameters:
//   - api: runtime client used for snapshot refreshes
//   - history: append-only event log
//   - staleness: how long a snapshot stays fresh before Get/List trigger a refresh
func NewStore(api StatesAPI, history HistoryRepository, staleness time.Duration) *Store {
	return &Store{
		api:       api,
		history:   history,
		staleness: staleness,
		cache:     make(map[string]*Record),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetArchiver sets the optional long-term event archiver.
func (s *Store) SetArchiver(a Archiver) {
	s.archive = a
}

// Refresh replaces the cached snapshot with the runtime's current states.
func (s *Store) Refresh(ctx context.Context) error {
	records, err := s.api.States(ctx)
	if err != nil {
		return fmt.Errorf("refreshing entity snapshot: %w", err)
	}

	cache := make(map[string]*Record, len(records))
	for i := range records {
		r := records[i]
		cache[r.EntityID] = r.DeepCopy()
	}

	s.cacheMu.Lock()
	s.cache = cache
	s.refreshedAt = time.Now()
	s.cacheMu.Unlock()

	s.logger.Debug("entity snapshot refreshed", "entities", len(records))
	return nil
}

// Get retrieves one entity's current record.
// The returned record is a deep copy; callers can safely modify it.
func (s *Store) Get(ctx context.Context, entityID string) (*Record, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}

	s.cacheMu.RLock()
	record, ok := s.cache[entityID]
	s.cacheMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entityID)
	}
	return record.DeepCopy(), nil
}

// Has reports whether an entity id resolves in the current snapshot.
func (s *Store) Has(ctx context.Context, entityID string) bool {
	if err := s.ensureFresh(ctx); err != nil {
		return false
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	_, ok := s.cache[entityID]
	return ok
}

// List retrieves deep copies of all records, sorted by entity id.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}

	s.cacheMu.RLock()
	records := make([]Record, 0, len(s.cache))
	for _, r := range s.cache {
		records = append(records, *r.DeepCopy())
	}
	s.cacheMu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].EntityID < records[j].EntityID })
	return records, nil
}

// ListDomain retrieves all records in one domain, sorted by entity id.
func (s *Store) ListDomain(ctx context.Context, domain string) ([]Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := records[:0]
	for _, r := range records {
		if r.Domain() == domain {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Count returns the number of entities in the current snapshot.
func (s *Store) Count() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return len(s.cache)
}

// RecordEvent appends a state transition to the history log and applies it
// to the cached snapshot. A superseding Record replaces the old snapshot
// atomically under the cache lock.
func (s *Store) RecordEvent(ctx context.Context, event StateEvent) error {
	if err := s.history.Append(ctx, event); err != nil {
		return err
	}

	s.cacheMu.Lock()
	if cached, ok := s.cache[event.EntityID]; ok {
		next := cached.DeepCopy()
		next.State = event.NewState
		next.LastChanged = event.Timestamp
		next.LastUpdated = event.Timestamp
		s.cache[event.EntityID] = next
	}
	s.cacheMu.Unlock()

	if s.archive != nil {
		s.archive.WriteStateEvent(event)
	}
	return nil
}

// History returns all retained events in [from, to).
func (s *Store) History(ctx context.Context, from, to time.Time) ([]StateEvent, error) {
	return s.history.Window(ctx, from, to)
}

// Snapshot returns an immutable point-in-time copy of the event log for the
// given window. Mining runs over the returned slice without coordination
// with concurrent writers.
func (s *Store) Snapshot(ctx context.Context, window time.Duration) ([]StateEvent, error) {
	now := time.Now()
	return s.history.Window(ctx, now.Add(-window), now)
}

// ensureFresh refreshes the snapshot if it has gone stale.
// A failed refresh with a previously-populated cache degrades to serving
// stale data with a warning; an empty cache surfaces the error.
func (s *Store) ensureFresh(ctx context.Context) error {
	s.cacheMu.RLock()
	fresh := !s.refreshedAt.IsZero() && time.Since(s.refreshedAt) < s.staleness
	populated := len(s.cache) > 0
	s.cacheMu.RUnlock()

	if fresh {
		return nil
	}

	if err := s.Refresh(ctx); err != nil {
		if populated {
			s.logger.Warn("serving stale entity snapshot", "error", err)
			return nil
		}
		return err
	}
	return nil
}
