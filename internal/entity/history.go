package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// HistoryRepository defines the interface for the append-only state-event log.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type HistoryRepository interface {
	// Append adds an event to the log. Events for the same entity must be
	// appended in non-decreasing timestamp order; a violation surfaces
	// ErrHistoryCorrupt and must not be retried.
	Append(ctx context.Context, event StateEvent) error

	// Window returns all events with from <= Timestamp < to, ordered by
	// timestamp then entity id.
	Window(ctx context.Context, from, to time.Time) ([]StateEvent, error)

	// EntityWindow returns one entity's events in the window, in timestamp order.
	EntityWindow(ctx context.Context, entityID string, from, to time.Time) ([]StateEvent, error)

	// Prune removes events older than the cutoff. Pruning from the head of
	// an append-only log preserves per-entity ordering.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SQLiteHistory implements HistoryRepository using SQLite.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory creates a new SQLite-backed history repository.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

// Append adds a state event to the log after checking the per-entity
// monotonic ordering invariant.
func (h *SQLiteHistory) Append(ctx context.Context, event StateEvent) error {
	if !ValidID(event.EntityID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, event.EntityID)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var last time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT occurred_at FROM state_events WHERE entity_id = ? ORDER BY occurred_at DESC, id DESC LIMIT 1`,
		event.EntityID,
	).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First event for this entity
	case err != nil:
		return fmt.Errorf("reading last event: %w", err)
	case event.Timestamp.Before(last):
		return fmt.Errorf("%w: %s event at %s precedes last at %s",
			ErrHistoryCorrupt, event.EntityID, event.Timestamp.UTC().Format(time.RFC3339Nano), last.UTC().Format(time.RFC3339Nano))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO state_events (entity_id, old_state, new_state, occurred_at) VALUES (?, ?, ?, ?)`,
		event.EntityID, event.OldState, event.NewState, event.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}
	return nil
}

// Window returns all events in [from, to), ordered by timestamp then entity id.
func (h *SQLiteHistory) Window(ctx context.Context, from, to time.Time) ([]StateEvent, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT entity_id, old_state, new_state, occurred_at
		 FROM state_events
		 WHERE occurred_at >= ? AND occurred_at < ?
		 ORDER BY occurred_at, entity_id, id`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying event window: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only iteration

	return scanEvents(rows)
}

// EntityWindow returns one entity's events in [from, to) in timestamp order.
func (h *SQLiteHistory) EntityWindow(ctx context.Context, entityID string, from, to time.Time) ([]StateEvent, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT entity_id, old_state, new_state, occurred_at
		 FROM state_events
		 WHERE entity_id = ? AND occurred_at >= ? AND occurred_at < ?
		 ORDER BY occurred_at, id`,
		entityID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying entity window: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only iteration

	return scanEvents(rows)
}

// Prune removes events older than the cutoff.
func (h *SQLiteHistory) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := h.db.ExecContext(ctx,
		`DELETE FROM state_events WHERE occurred_at < ?`, olderThan.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned events: %w", err)
	}
	return n, nil
}

// scanEvents reads StateEvents from a result set.
func scanEvents(rows *sql.Rows) ([]StateEvent, error) {
	var events []StateEvent
	for rows.Next() {
		var e StateEvent
		if err := rows.Scan(&e.EntityID, &e.OldState, &e.NewState, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}
