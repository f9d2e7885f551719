package entity

import "errors"

// Domain errors for the entity package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, entity.ErrNotFound) {
//	    // handle unknown entity
//	}
var (
	// ErrNotFound is returned when an entity id does not resolve in the store.
	ErrNotFound = errors.New("entity: not found")

	// ErrInvalidID is returned when an entity id is not in domain.object_id form.
	ErrInvalidID = errors.New("entity: invalid id")

	// ErrTimeout is returned when a call to the external runtime exhausts
	// its retry budget without a successful response.
	ErrTimeout = errors.New("entity: external call timed out")

	// ErrAPIStatus is returned when the external runtime answers with a
	// non-success HTTP status.
	ErrAPIStatus = errors.New("entity: unexpected API status")

	// ErrHistoryCorrupt is returned when the append-only event log's
	// per-entity monotonic ordering invariant is broken. This is fatal:
	// callers must not retry.
	ErrHistoryCorrupt = errors.New("entity: history log corrupt")
)
