package synth

import (
	"context"
	"fmt"

	"github.com/dwrignell/homesynth/internal/document"
)

// BlockSpec names a template and its parameters for one automation block.
type BlockSpec struct {
	Template string         `json:"template"`
	Params   map[string]any `json:"params"`
}

// AutomationRequest is a structured request for an automation document.
type AutomationRequest struct {
	Alias     string     `json:"alias"`
	Trigger   BlockSpec  `json:"trigger"`
	Condition *BlockSpec `json:"condition,omitempty"`
	Action    BlockSpec  `json:"action"`
}

// BuildAutomation assembles an automation document and computes its stable
// logical id as a content hash of the semantic trigger/condition/action
// structure. Re-synthesizing the same logical automation always yields the
// same id, so deployment updates in place instead of duplicating.
//
// The alias and other cosmetic fields are excluded from the hash.
func (s *Synthesizer) BuildAutomation(_ context.Context, req AutomationRequest) (*document.Document, error) {
	if req.Alias == "" {
		return nil, fmt.Errorf("synth: automation alias is required")
	}

	trigger, err := s.lib.Render(req.Trigger.Template, req.Trigger.Params)
	if err != nil {
		return nil, fmt.Errorf("building trigger: %w", err)
	}
	action, err := s.lib.Render(req.Action.Template, req.Action.Params)
	if err != nil {
		return nil, fmt.Errorf("building action: %w", err)
	}

	var condition *document.Map
	if req.Condition != nil {
		condition, err = s.lib.Render(req.Condition.Template, req.Condition.Params)
		if err != nil {
			return nil, fmt.Errorf("building condition: %w", err)
		}
	}

	// The semantic structure is hashed before cosmetic fields are attached.
	semantic := document.NewMap().
		Set("trigger", []any{trigger}).
		Set("action", []any{action})
	conditions := []any{}
	if condition != nil {
		conditions = []any{condition}
	}
	semantic.Set("condition", conditions)

	logicalID, err := document.LogicalID(document.KindAutomation, semantic)
	if err != nil {
		return nil, err
	}

	body := document.NewMap().
		Set("id", logicalID).
		Set("alias", req.Alias).
		// The external runtime defaults re-entry behaviour; pinning single
		// keeps repeated triggers from overlapping regardless of runtime.
		Set("mode", "single").
		Set("trigger", []any{trigger}).
		Set("condition", conditions).
		Set("action", []any{action})

	doc := &document.Document{
		Kind:      document.KindAutomation,
		LogicalID: logicalID,
		Title:     req.Alias,
		Body:      body,
		Status:    document.StatusUnvalidated,
	}
	if err := doc.Finalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

// BuildScript assembles a script document from an ordered action sequence.
// The logical id is a content hash of the sequence.
func (s *Synthesizer) BuildScript(_ context.Context, title string, actions []BlockSpec) (*document.Document, error) {
	if title == "" {
		return nil, fmt.Errorf("synth: script title is required")
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("synth: script needs at least one action")
	}

	sequence := make([]any, 0, len(actions))
	for i, spec := range actions {
		node, err := s.lib.Render(spec.Template, spec.Params)
		if err != nil {
			return nil, fmt.Errorf("building action %d: %w", i, err)
		}
		sequence = append(sequence, node)
	}

	semantic := document.NewMap().Set("sequence", sequence)
	logicalID, err := document.LogicalID(document.KindScript, semantic)
	if err != nil {
		return nil, err
	}

	body := document.NewMap().
		Set("alias", title).
		Set("sequence", sequence)

	doc := &document.Document{
		Kind:      document.KindScript,
		LogicalID: logicalID,
		Title:     title,
		Body:      body,
		Status:    document.StatusUnvalidated,
	}
	if err := doc.Finalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

// BuildScene snapshots the named entities' current states into a scene
// document. Entities that do not resolve are skipped; the validator flags
// them if the caller kept any.
func (s *Synthesizer) BuildScene(ctx context.Context, name string, entityIDs []string) (*document.Document, error) {
	if name == "" {
		return nil, fmt.Errorf("synth: scene name is required")
	}

	entities := document.NewMap()
	for _, id := range entityIDs {
		record, err := s.store.Get(ctx, id)
		if err != nil {
			entities.Set(id, "unknown")
			continue
		}
		entities.Set(id, record.State)
	}

	body := document.NewMap().
		Set("name", name).
		Set("entities", entities)

	doc := &document.Document{
		Kind:      document.KindScene,
		LogicalID: Slugify(name),
		Title:     name,
		Body:      body,
		Status:    document.StatusUnvalidated,
	}
	if err := doc.Finalize(); err != nil {
		return nil, err
	}
	return doc, nil
}
