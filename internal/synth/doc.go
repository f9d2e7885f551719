// Package synth provides the Document Synthesizer: it composes complete
// configuration documents (dashboards, automations, scripts, scenes) from
// structured requests, using the template library for fragments and the
// entity store for metadata.
//
// Synthesis is purely a transformation: it only reads the store and never
// touches live configuration. Unresolvable entities do not abort a build;
// they fall back to generic rendering and are surfaced later by the
// validator, so a caller always receives a complete draft to inspect.
package synth
