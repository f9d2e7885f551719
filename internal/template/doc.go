// Package template provides the Template Library: a registry of pure,
// parameterized document-fragment builders for dashboard cards and
// automation trigger/condition/action blocks.
//
// The library is explicitly constructed and dependency-injected, built once
// at startup and frozen immutable afterwards. Rendering is deterministic:
// identical parameters always produce an identical node tree, enabling
// idempotent regeneration and exact-match testing.
package template
