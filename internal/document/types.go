package document

import "time"

// Kind classifies a configuration document.
type Kind string

const (
	KindDashboard  Kind = "dashboard"
	KindAutomation Kind = "automation"
	KindScript     Kind = "script"
	KindScene      Kind = "scene"
)

// AllKinds returns all valid document kinds.
func AllKinds() []Kind {
	return []Kind{KindDashboard, KindAutomation, KindScript, KindScene}
}

// ValidKind reports whether k is a known document kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindDashboard, KindAutomation, KindScript, KindScene:
		return true
	default:
		return false
	}
}

// Status is a document's position in the validation lifecycle.
type Status string

const (
	StatusUnvalidated Status = "unvalidated"
	StatusValid       Status = "valid"
	StatusInvalid     Status = "invalid"
)

// IssueKind classifies a validation issue.
type IssueKind string

const (
	IssueSchema            IssueKind = "schema_error"
	IssueUnknownEntity     IssueKind = "unknown_entity"
	IssueUnsupportedAction IssueKind = "unsupported_action"
	IssueMissingDependency IssueKind = "missing_dependency"
)

// Issue is a single validation finding, located by a dotted path into the
// document body (e.g., "views[0].cards[2].entity").
type Issue struct {
	Path    string    `json:"path"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// Document is a structured configuration artifact.
//
// Lifecycle: created by the Synthesizer (StatusUnvalidated) → validated →
// tested and deployed, or rejected. Drafts and deployed revisions live in
// separate stores; a document never reaches the deployed configuration
// tree without passing both validation and a deployment test.
type Document struct {
	// Identity. LogicalID is a stable content hash for automations and
	// scripts (see LogicalID), or a slug for dashboards.
	Kind      Kind   `json:"kind"`
	LogicalID string `json:"logical_id"`
	Title     string `json:"title"`

	// Body is the typed node tree. Raw is its serialized form, produced
	// by Encode; it is never assembled by hand.
	Body *Map   `json:"-"`
	Raw  []byte `json:"raw,omitempty"`

	// Validation outcome
	Status Status  `json:"status"`
	Issues []Issue `json:"issues,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates an independent copy of the document.
// The body tree and issue slice are cloned.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.Body = d.Body.DeepCopy()
	if d.Raw != nil {
		cpy.Raw = make([]byte, len(d.Raw))
		copy(cpy.Raw, d.Raw)
	}
	if d.Issues != nil {
		cpy.Issues = make([]Issue, len(d.Issues))
		copy(cpy.Issues, d.Issues)
	}
	return &cpy
}
