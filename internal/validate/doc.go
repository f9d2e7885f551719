// Package validate checks configuration documents against the current
// entity population and service registry before they are allowed near a
// deployment.
//
// Validation runs three passes over a document body and collects every
// finding into one ordered issue list:
//
//  1. Structural — required keys per document kind (an automation needs at
//     least one trigger and one action, a dashboard at least one view, and
//     so on).
//  2. Semantic — every referenced entity id must resolve in the entity
//     store, and every service call must be supported by its target's
//     domain.
//  3. Dependency — every referenced service must be registered with the
//     runtime.
//
// No pass short-circuits: a single Validate call surfaces the complete
// remediation list. Validation is pure and read-only over a point-in-time
// view of the entity store; it mutates nothing except the document's own
// Status and Issues fields.
package validate
