package synth

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
	"github.com/dwrignell/homesynth/internal/infrastructure/config"
	"github.com/dwrignell/homesynth/internal/template"
)

// EntityReader is the slice of the entity store the synthesizer depends on.
type EntityReader interface {
	Get(ctx context.Context, entityID string) (*entity.Record, error)
	List(ctx context.Context) ([]entity.Record, error)
	ListDomain(ctx context.Context, domain string) ([]entity.Record, error)
}

// domainCards is the fixed domain→card template mapping used when a view
// spec does not override the card type. Unrecognised domains batch into a
// generic entities-card.
var domainCards = map[string]string{
	"light":        "light-card",
	"sensor":       "sensor-card",
	"climate":      "thermostat-card",
	"media_player": "media-control-card",
	"camera":       "picture-entity-card",
	"weather":      "weather-card",
}

// glanceDomains render as compact glance batches in domain views.
var glanceDomains = map[string]bool{
	"light": true, "switch": true, "fan": true, "cover": true,
}

const (
	glanceBatchSize   = 8
	entitiesBatchSize = 10
	quickAccessLimit  = 8

	// minDomainViewEntities is the threshold for a domain earning its own
	// view on the overview dashboard.
	minDomainViewEntities = 2
)

// Synthesizer composes configuration documents.
type Synthesizer struct {
	store EntityReader
	lib   *template.Library
	cfg   config.SynthesisConfig
}

// New creates a synthesizer over the given store and template library.
func New(store EntityReader, lib *template.Library, cfg config.SynthesisConfig) *Synthesizer {
	return &Synthesizer{store: store, lib: lib, cfg: cfg}
}

// ViewSpec names the entities and options for one dashboard view.
type ViewSpec struct {
	Title    string   `json:"title"`
	Entities []string `json:"entities"`

	// CardType overrides the domain→card mapping for every entity in the
	// view (must be a registered card template name).
	CardType string `json:"card_type,omitempty"`

	// Icon overrides the domain-derived view icon.
	Icon string `json:"icon,omitempty"`
}

// BuildDashboard composes a dashboard document from view specs.
//
// Each entity's domain selects its card template via the fixed mapping;
// entities whose domain has no mapping (or which do not resolve in the
// store) are batched into a generic entities-card per view.
func (s *Synthesizer) BuildDashboard(ctx context.Context, title string, views []ViewSpec) (*document.Document, error) {
	if title == "" {
		return nil, fmt.Errorf("synth: dashboard title is required")
	}

	viewNodes := make([]any, 0, len(views))
	for _, spec := range views {
		node, err := s.buildView(ctx, spec)
		if err != nil {
			return nil, err
		}
		viewNodes = append(viewNodes, node)
	}

	body := document.NewMap().
		Set("title", title).
		Set("theme", s.cfg.DefaultTheme).
		Set("views", viewNodes)

	doc := &document.Document{
		Kind:      document.KindDashboard,
		LogicalID: Slugify(title),
		Title:     title,
		Body:      body,
		Status:    document.StatusUnvalidated,
	}
	if err := doc.Finalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

// buildView composes one view node from its spec.
func (s *Synthesizer) buildView(ctx context.Context, spec ViewSpec) (*document.Map, error) {
	var (
		cards     []any
		ungrouped []any // entities destined for a shared entities-card
		viewIcon  = spec.Icon
	)

	for _, entityID := range spec.Entities {
		record, err := s.store.Get(ctx, entityID)
		if err != nil {
			// Unknown entities still appear in the draft; the validator
			// reports them with a precise path.
			ungrouped = append(ungrouped, entityID)
			continue
		}

		domain := record.Domain()
		if viewIcon == "" {
			viewIcon = template.IconForDomain(domain, s.cfg.DefaultIcon)
		}

		cardType := spec.CardType
		if cardType == "" {
			cardType = domainCards[domain]
		}
		if cardType == "" {
			ungrouped = append(ungrouped, entityID)
			continue
		}

		card, err := s.renderCard(cardType, entityID)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	if len(ungrouped) > 0 {
		card, err := s.lib.Render("entities-card", map[string]any{
			"entities": ungrouped,
			"title":    spec.Title,
		})
		if err != nil {
			return nil, fmt.Errorf("rendering entities card: %w", err)
		}
		cards = append(cards, card)
	}

	if viewIcon == "" {
		viewIcon = s.cfg.DefaultIcon
	}

	return document.NewMap().
		Set("title", spec.Title).
		Set("path", Slugify(spec.Title)).
		Set("icon", viewIcon).
		Set("cards", cards), nil
}

// renderCard renders a card template for a single entity. The entities-card
// template takes a list; everything else takes a single entity.
func (s *Synthesizer) renderCard(cardType, entityID string) (*document.Map, error) {
	params := map[string]any{"entity": entityID}
	if cardType == "entities-card" {
		params = map[string]any{"entities": []any{entityID}}
	}
	card, err := s.lib.Render(cardType, params)
	if err != nil {
		return nil, fmt.Errorf("rendering %s for %s: %w", cardType, entityID, err)
	}
	return card, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a title into a stable path segment:
// "Living Room" → "living_room".
func Slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "_")
	return strings.Trim(slug, "_")
}
