package document

import "errors"

// Domain errors for the document package.
var (
	// ErrNotFound is returned when a (kind, logical_id) pair does not exist.
	ErrNotFound = errors.New("document: not found")

	// ErrInvalidKind is returned for an unrecognised document kind.
	ErrInvalidKind = errors.New("document: invalid kind")

	// ErrNotStaged is returned when promoting or discarding a staging entry
	// that does not exist.
	ErrNotStaged = errors.New("document: not staged")
)
