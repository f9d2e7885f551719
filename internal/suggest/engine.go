package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
	"github.com/dwrignell/homesynth/internal/synth"
)

// ErrNotFound is returned when a suggestion id does not exist.
var ErrNotFound = errors.New("suggest: suggestion not found")

// ErrAlreadyResolved is returned when accepting or dismissing a suggestion
// that is no longer proposed.
var ErrAlreadyResolved = errors.New("suggest: suggestion already resolved")

// Status is a suggestion's lifecycle position.
type Status string

const (
	StatusProposed  Status = "proposed"
	StatusAccepted  Status = "accepted"
	StatusDismissed Status = "dismissed"
)

// Candidate is one ranked suggestion: a mined pattern plus its draft
// automation.
type Candidate struct {
	ID        string              `json:"id"`
	Pattern   Pattern             `json:"pattern"`
	Draft     *document.Document  `json:"draft"`
	Status    Status              `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// EventSource provides the immutable event log snapshot mining runs over.
type EventSource interface {
	Snapshot(ctx context.Context, window time.Duration) ([]entity.StateEvent, error)
}

// Drafter renders draft automations for mined patterns.
type Drafter interface {
	BuildAutomation(ctx context.Context, req synth.AutomationRequest) (*document.Document, error)
}

// Logger is the minimal logging interface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine runs mining passes and manages the suggestion lifecycle.
type Engine struct {
	miner   *Miner
	drafter Drafter
	events  EventSource
	repo    Repository
	window  time.Duration
	logger  Logger
}

// NewEngine creates a suggestion engine.
func NewEngine(miner *Miner, drafter Drafter, events EventSource, repo Repository, window time.Duration) *Engine {
	return &Engine{
		miner:   miner,
		drafter: drafter,
		events:  events,
		repo:    repo,
		window:  window,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Refresh mines the current event window and replaces the proposed
// suggestion set. Accepted and dismissed suggestions are untouched, so a
// dismissal is remembered across mining runs.
func (e *Engine) Refresh(ctx context.Context) ([]Candidate, error) {
	events, err := e.events.Snapshot(ctx, e.window)
	if err != nil {
		return nil, fmt.Errorf("snapshotting event log: %w", err)
	}

	patterns, err := e.miner.Mine(ctx, events)
	if err != nil {
		return nil, err
	}
	daily, err := e.miner.MineDaily(ctx, events)
	if err != nil {
		return nil, err
	}
	patterns = e.miner.Merge(patterns, daily)

	resolved, err := e.resolvedPatterns(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(patterns))
	for _, p := range patterns {
		if resolved[patternFingerprint(p)] {
			continue
		}
		draft, err := e.draftFor(ctx, p)
		if err != nil {
			e.logger.Debug("skipping pattern without draft",
				"trigger", p.TriggerEntity, "target", p.TargetEntity, "error", err)
			continue
		}
		candidates = append(candidates, Candidate{
			ID:      "sug-" + uuid.NewString()[:8],
			Pattern: p,
			Draft:   draft,
			Status:  StatusProposed,
		})
	}

	if err := e.repo.ReplaceProposed(ctx, candidates); err != nil {
		return nil, fmt.Errorf("persisting suggestions: %w", err)
	}

	e.logger.Info("suggestion mining complete",
		"events", len(events), "patterns", len(patterns), "proposed", len(candidates))
	return candidates, nil
}

// List returns all stored suggestions, ranked.
func (e *Engine) List(ctx context.Context) ([]Candidate, error) {
	return e.repo.List(ctx)
}

// Accept marks a proposed suggestion accepted and returns its draft for
// the caller to run through validation and deployment testing. Acceptance
// never deploys anything by itself.
func (e *Engine) Accept(ctx context.Context, id string) (*document.Document, error) {
	candidate, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if candidate.Status != StatusProposed {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, candidate.Status)
	}
	if err := e.repo.SetStatus(ctx, id, StatusAccepted); err != nil {
		return nil, err
	}
	return candidate.Draft, nil
}

// Dismiss marks a proposed suggestion dismissed. The pattern will not be
// re-proposed by later mining runs.
func (e *Engine) Dismiss(ctx context.Context, id string) error {
	candidate, err := e.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if candidate.Status != StatusProposed {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, candidate.Status)
	}
	return e.repo.SetStatus(ctx, id, StatusDismissed)
}

// resolvedPatterns returns the fingerprints of accepted and dismissed
// suggestions so mining does not re-propose them.
func (e *Engine) resolvedPatterns(ctx context.Context) (map[string]bool, error) {
	existing, err := e.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing existing suggestions: %w", err)
	}
	resolved := make(map[string]bool)
	for _, c := range existing {
		if c.Status != StatusProposed {
			resolved[patternFingerprint(c.Pattern)] = true
		}
	}
	return resolved, nil
}

// draftFor renders the draft automation for one pattern: the
// domain-appropriate service call on the target, fired by a state trigger
// on the observed transition, or by a time trigger at the modal hour for
// daily patterns.
func (e *Engine) draftFor(ctx context.Context, p Pattern) (*document.Document, error) {
	targetDomain := entity.DomainOf(p.TargetEntity)
	service, ok := entity.ServiceForAction(targetDomain, p.TargetState)
	if !ok {
		return nil, fmt.Errorf("no service maps %q onto domain %q", p.TargetState, targetDomain)
	}

	action := synth.BlockSpec{
		Template: "service-action",
		Params: map[string]any{
			"service":   targetDomain + "." + service,
			"entity_id": p.TargetEntity,
		},
	}

	if p.Kind == PatternDaily {
		return e.drafter.BuildAutomation(ctx, synth.AutomationRequest{
			Alias: fmt.Sprintf("%s %s daily at %02d:00",
				friendlyName(p.TargetEntity), p.TargetState, p.Hour),
			Trigger: synth.BlockSpec{
				Template: "time-trigger",
				Params: map[string]any{
					"at": fmt.Sprintf("%02d:00:00", p.Hour),
				},
			},
			Action: action,
		})
	}

	return e.drafter.BuildAutomation(ctx, synth.AutomationRequest{
		Alias: fmt.Sprintf("%s %s when %s is %s",
			friendlyName(p.TargetEntity), p.TargetState,
			friendlyName(p.TriggerEntity), p.TriggerState),
		Trigger: synth.BlockSpec{
			Template: "state-trigger",
			Params: map[string]any{
				"entity_id": p.TriggerEntity,
				"to":        p.TriggerState,
			},
		},
		Action: action,
	})
}

// patternFingerprint identifies a pattern independently of its statistics,
// so a dismissed pattern stays dismissed as its support grows or its modal
// hour drifts.
func patternFingerprint(p Pattern) string {
	return strings.Join([]string{
		string(p.Kind), p.TriggerEntity, p.TriggerState, p.TargetEntity, p.TargetState,
	}, "|")
}

// friendlyName turns "light.hallway" into "Hallway".
func friendlyName(entityID string) string {
	name := entityID
	if _, object, found := strings.Cut(entityID, "."); found {
		name = object
	}
	name = strings.ReplaceAll(name, "_", " ")
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
