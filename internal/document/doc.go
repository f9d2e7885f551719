// Package document defines the configuration document model: typed node
// trees, the central YAML serializer, stable content-hash logical ids, and
// the SQLite-backed document store keyed by (kind, logical_id).
//
// Documents are assembled by composing typed nodes and serialized in one
// place. Nothing in the codebase concatenates YAML strings by hand; that
// entire bug class is structurally impossible here.
package document
