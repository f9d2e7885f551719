package synth

import (
	"context"
	"fmt"
	"sort"

	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
	"github.com/dwrignell/homesynth/internal/template"
)

// quickAccessDomains are surfaced on the overview's home view.
var quickAccessDomains = []string{"light", "climate", "cover", "media_player"}

// BuildOverviewDashboard composes a full overview dashboard from the
// current entity population: a home view with a welcome card, weather and
// quick-access glance, plus one view per domain that has more than a couple
// of entities.
func (s *Synthesizer) BuildOverviewDashboard(ctx context.Context) (*document.Document, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entities for overview: %w", err)
	}

	byDomain := make(map[string][]entity.Record)
	for _, r := range records {
		byDomain[r.Domain()] = append(byDomain[r.Domain()], r)
	}

	home, err := s.buildHomeView(byDomain)
	if err != nil {
		return nil, err
	}
	views := []any{home}

	domains := make([]string, 0, len(byDomain))
	for domain := range byDomain {
		if len(byDomain[domain]) > minDomainViewEntities {
			domains = append(domains, domain)
		}
	}
	sort.Strings(domains)

	for _, domain := range domains {
		view, err := s.buildDomainView(domain, byDomain[domain])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	body := document.NewMap().
		Set("title", "Overview").
		Set("theme", s.cfg.DefaultTheme).
		Set("views", views)

	doc := &document.Document{
		Kind:      document.KindDashboard,
		LogicalID: "overview",
		Title:     "Overview",
		Body:      body,
		Status:    document.StatusUnvalidated,
	}
	if err := doc.Finalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

// buildHomeView composes the overview's first view.
func (s *Synthesizer) buildHomeView(byDomain map[string][]entity.Record) (*document.Map, error) {
	welcome, err := s.lib.Render("markdown-card", map[string]any{
		"content": "# Welcome Home\nYour home at a glance.",
	})
	if err != nil {
		return nil, fmt.Errorf("rendering welcome card: %w", err)
	}
	cards := []any{welcome}

	if weather := byDomain["weather"]; len(weather) > 0 {
		card, err := s.lib.Render("weather-card", map[string]any{"entity": weather[0].EntityID})
		if err != nil {
			return nil, fmt.Errorf("rendering weather card: %w", err)
		}
		cards = append(cards, card)
	}

	var quick []any
	for _, domain := range quickAccessDomains {
		for _, r := range byDomain[domain] {
			if len(quick) >= quickAccessLimit {
				break
			}
			quick = append(quick, r.EntityID)
		}
	}
	if len(quick) > 0 {
		card, err := s.lib.Render("glance-card", map[string]any{
			"title":    "Quick Access",
			"entities": quick,
		})
		if err != nil {
			return nil, fmt.Errorf("rendering quick access card: %w", err)
		}
		cards = append(cards, card)
	}

	return document.NewMap().
		Set("title", "Home").
		Set("path", "home").
		Set("icon", "mdi:home").
		Set("cards", cards), nil
}

// buildDomainView composes one per-domain view. Controllable domains use
// glance batches; everything else uses entities batches.
func (s *Synthesizer) buildDomainView(domain string, records []entity.Record) (*document.Map, error) {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.EntityID
	}
	sort.Strings(ids)

	templateName, batchSize := "entities-card", entitiesBatchSize
	if glanceDomains[domain] {
		templateName, batchSize = "glance-card", glanceBatchSize
	}

	var cards []any
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		batch := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, id)
		}

		card, err := s.lib.Render(templateName, map[string]any{"entities": batch})
		if err != nil {
			return nil, fmt.Errorf("rendering %s batch for %s: %w", templateName, domain, err)
		}
		cards = append(cards, card)
	}

	title := titleCase(domain)
	return document.NewMap().
		Set("title", title).
		Set("path", Slugify(domain)).
		Set("icon", template.IconForDomain(domain, s.cfg.DefaultIcon)).
		Set("cards", cards), nil
}

// titleCase converts "media_player" to "Media Player".
func titleCase(domain string) string {
	out := []byte(domain)
	upper := true
	for i, c := range out {
		switch {
		case c == '_':
			out[i] = ' '
			upper = true
		case upper && c >= 'a' && c <= 'z':
			out[i] = c - ('a' - 'A')
			upper = false
		default:
			upper = false
		}
	}
	return string(out)
}
