package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
)

// EntityPresence is the slice of the entity store the validator reads.
type EntityPresence interface {
	Has(ctx context.Context, entityID string) bool
}

// Result is the outcome of validating one document.
type Result struct {
	Valid  bool             `json:"valid"`
	Issues []document.Issue `json:"issues"`
}

// knownTriggerPlatforms are the trigger platforms the runtime accepts.
var knownTriggerPlatforms = map[string]bool{
	"state": true, "numeric_state": true, "template": true, "time": true,
	"time_pattern": true, "webhook": true, "sun": true, "device": true,
	"calendar": true, "event": true, "homeassistant": true, "mqtt": true,
	"tag": true, "zone": true, "geo_location": true, "conversation": true,
}

// triggerRequiredField maps a trigger platform to the field it cannot work
// without. Platforms absent from the map have no mandatory field beyond
// the platform itself.
var triggerRequiredField = map[string]string{
	"state":         "entity_id",
	"numeric_state": "entity_id",
	"time":          "at",
	"event":         "event_type",
	"webhook":       "webhook_id",
	"zone":          "entity_id",
}

// knownActionKeys are the keys that identify an automation action step's
// type. Every action step must carry at least one of them.
var knownActionKeys = map[string]bool{
	"service": true, "device_id": true, "delay": true, "wait_template": true,
	"condition": true, "event": true, "repeat": true, "choose": true,
	"wait_for_trigger": true, "variables": true, "stop": true, "parallel": true,
	"scene": true,
}

// Validator checks documents against a point-in-time view of the entity
// population and the registered service vocabulary.
//
// Thread Safety: Validate is safe for concurrent use once the validator is
// constructed; SetServices must not race with Validate.
type Validator struct {
	store    EntityPresence
	services map[string]map[string]bool
}

// New creates a validator over the given entity store. The service registry
// starts empty; until SetServices provides a snapshot, the dependency pass
// is skipped.
func New(store EntityPresence) *Validator {
	return &Validator{store: store}
}

// SetServices installs a snapshot of the registered service registry, as
// returned by the entity API. Service references in documents are checked
// against it during the dependency pass.
func (v *Validator) SetServices(domains []entity.ServiceDomain) {
	registry := make(map[string]map[string]bool, len(domains))
	for _, d := range domains {
		services := make(map[string]bool, len(d.Services))
		for name := range d.Services {
			services[name] = true
		}
		registry[d.Domain] = services
	}
	v.services = registry
}

// Validate runs all passes over the document and returns the collected
// issues. The document's Status and Issues fields are updated in place;
// nothing else is mutated.
func (v *Validator) Validate(ctx context.Context, doc *document.Document) Result {
	c := &collector{}

	v.structural(doc, c)
	if doc.Body != nil {
		v.semantic(ctx, doc, c)
		v.dependency(doc, c)
	}

	result := Result{Valid: len(c.issues) == 0, Issues: c.issues}
	if result.Valid {
		doc.Status = document.StatusValid
		doc.Issues = nil
	} else {
		doc.Status = document.StatusInvalid
		doc.Issues = c.issues
	}
	return result
}

// collector accumulates issues across passes.
type collector struct {
	issues []document.Issue
}

func (c *collector) add(path string, kind document.IssueKind, format string, args ...any) {
	c.issues = append(c.issues, document.Issue{
		Path:    path,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// structural checks the per-kind required shape of the document body.
func (v *Validator) structural(doc *document.Document, c *collector) {
	if !document.ValidKind(doc.Kind) {
		c.add("kind", document.IssueSchema, "unknown document kind %q", doc.Kind)
		return
	}
	if doc.Body == nil {
		c.add("", document.IssueSchema, "document has no body")
		return
	}

	switch doc.Kind {
	case document.KindDashboard:
		views := doc.Body.GetList("views")
		if len(views) == 0 {
			c.add("views", document.IssueSchema, "dashboard requires at least one view")
			return
		}
		for i, view := range views {
			path := fmt.Sprintf("views[%d]", i)
			node, ok := view.(*document.Map)
			if !ok {
				c.add(path, document.IssueSchema, "view must be a mapping")
				continue
			}
			if node.GetString("path") == "" && node.GetString("title") == "" {
				c.add(path, document.IssueSchema, "view requires a path or a title")
			}
			if _, ok := node.Get("cards"); ok && node.GetList("cards") == nil {
				c.add(path+".cards", document.IssueSchema, "cards must be a list")
			}
		}

	case document.KindAutomation:
		if len(doc.Body.GetList("trigger")) == 0 {
			c.add("trigger", document.IssueSchema, "automation requires at least one trigger")
		}
		if len(doc.Body.GetList("action")) == 0 {
			c.add("action", document.IssueSchema, "automation requires at least one action")
		}

	case document.KindScript:
		if len(doc.Body.GetList("sequence")) == 0 {
			c.add("sequence", document.IssueSchema, "script requires a non-empty sequence")
		}

	case document.KindScene:
		entities := doc.Body.GetMap("entities")
		if entities == nil || entities.Len() == 0 {
			c.add("entities", document.IssueSchema, "scene requires at least one entity")
		}
	}
}

// semantic walks the body checking entity references and, for automations,
// trigger platforms and action steps.
func (v *Validator) semantic(ctx context.Context, doc *document.Document, c *collector) {
	v.walkEntityRefs(ctx, doc.Kind, "", doc.Body, c)

	if doc.Kind == document.KindAutomation {
		for i, raw := range doc.Body.GetList("trigger") {
			v.checkTrigger(fmt.Sprintf("trigger[%d]", i), raw, c)
		}
		for i, raw := range doc.Body.GetList("action") {
			v.checkAction(ctx, fmt.Sprintf("action[%d]", i), raw, c)
		}
	}
	if doc.Kind == document.KindScript {
		for i, raw := range doc.Body.GetList("sequence") {
			v.checkAction(ctx, fmt.Sprintf("sequence[%d]", i), raw, c)
		}
	}
}

// entityRefKeys are the body keys whose values name entities.
var entityRefKeys = map[string]bool{
	"entity": true, "entity_id": true, "entities": true, "camera_image": true,
}

// walkEntityRefs recursively harvests entity references and checks each
// against the store.
func (v *Validator) walkEntityRefs(ctx context.Context, kind document.Kind, path string, node *document.Map, c *collector) {
	for _, key := range node.Keys() {
		value, _ := node.Get(key)
		childPath := joinPath(path, key)

		if entityRefKeys[key] {
			// A scene's entities node maps entity id to target state.
			if key == "entities" && kind == document.KindScene {
				if m, ok := value.(*document.Map); ok {
					for _, id := range m.Keys() {
						v.checkEntityRef(ctx, joinPath(childPath, id), id, c)
					}
					continue
				}
			}
			v.checkEntityValue(ctx, childPath, value, c)
			continue
		}

		switch typed := value.(type) {
		case *document.Map:
			v.walkEntityRefs(ctx, kind, childPath, typed, c)
		case []any:
			for i, item := range typed {
				if m, ok := item.(*document.Map); ok {
					v.walkEntityRefs(ctx, kind, fmt.Sprintf("%s[%d]", childPath, i), m, c)
				}
			}
		}
	}
}

// checkEntityValue handles the value shapes an entity reference key can
// carry: a single id or a list of ids.
func (v *Validator) checkEntityValue(ctx context.Context, path string, value any, c *collector) {
	switch typed := value.(type) {
	case string:
		v.checkEntityRef(ctx, path, typed, c)
	case []any:
		for i, item := range typed {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			switch e := item.(type) {
			case string:
				v.checkEntityRef(ctx, itemPath, e, c)
			case *document.Map:
				if id := e.GetString("entity"); id != "" {
					v.checkEntityRef(ctx, itemPath+".entity", id, c)
				}
			}
		}
	}
}

func (v *Validator) checkEntityRef(ctx context.Context, path, entityID string, c *collector) {
	if !entity.ValidID(entityID) {
		c.add(path, document.IssueSchema, "malformed entity id %q", entityID)
		return
	}
	if !v.store.Has(ctx, entityID) {
		c.add(path, document.IssueUnknownEntity, "entity %q not found", entityID)
	}
}

// checkTrigger verifies one automation trigger node.
func (v *Validator) checkTrigger(path string, raw any, c *collector) {
	node, ok := raw.(*document.Map)
	if !ok {
		c.add(path, document.IssueSchema, "trigger must be a mapping")
		return
	}
	platform := node.GetString("platform")
	if platform == "" {
		c.add(path, document.IssueSchema, "trigger requires a platform")
		return
	}
	if !knownTriggerPlatforms[platform] {
		c.add(path+".platform", document.IssueUnsupportedAction, "unknown trigger platform %q", platform)
		return
	}
	if field, ok := triggerRequiredField[platform]; ok {
		if _, present := node.Get(field); !present {
			c.add(path, document.IssueSchema, "%s trigger requires %s", platform, field)
		}
	}
}

// checkAction verifies one automation action or script sequence step.
func (v *Validator) checkAction(ctx context.Context, path string, raw any, c *collector) {
	node, ok := raw.(*document.Map)
	if !ok {
		c.add(path, document.IssueSchema, "action must be a mapping")
		return
	}

	typed := false
	for _, key := range node.Keys() {
		if knownActionKeys[key] {
			typed = true
			break
		}
	}
	if !typed {
		c.add(path, document.IssueUnsupportedAction, "action step has no recognised action type")
		return
	}

	service := node.GetString("service")
	if service == "" {
		return
	}
	serviceDomain, serviceName, ok := splitService(service)
	if !ok {
		c.add(path+".service", document.IssueSchema, "malformed service reference %q", service)
		return
	}

	// A service call within the target entity's own domain must use a
	// service that domain actually supports.
	for _, id := range targetEntityIDs(node) {
		if entity.DomainOf(id) != serviceDomain {
			continue
		}
		if !entity.SupportsService(serviceDomain, serviceName) {
			c.add(path+".service", document.IssueUnsupportedAction,
				"service %q not supported for %q", service, id)
		}
	}
}

// dependency checks every service reference against the registered service
// registry snapshot. Skipped when no snapshot has been installed.
func (v *Validator) dependency(doc *document.Document, c *collector) {
	if v.services == nil {
		return
	}
	v.walkServiceRefs("", doc.Body, c)
}

func (v *Validator) walkServiceRefs(path string, node *document.Map, c *collector) {
	for _, key := range node.Keys() {
		value, _ := node.Get(key)
		childPath := joinPath(path, key)

		if key == "service" {
			ref, ok := value.(string)
			if !ok {
				continue
			}
			domain, name, ok := splitService(ref)
			if !ok {
				continue // already reported by the semantic pass
			}
			if !v.services[domain][name] {
				c.add(childPath, document.IssueMissingDependency, "service %q is not registered", ref)
			}
			continue
		}

		switch typed := value.(type) {
		case *document.Map:
			v.walkServiceRefs(childPath, typed, c)
		case []any:
			for i, item := range typed {
				if m, ok := item.(*document.Map); ok {
					v.walkServiceRefs(fmt.Sprintf("%s[%d]", childPath, i), m, c)
				}
			}
		}
	}
}

// targetEntityIDs collects the entity ids a service call targets, whether
// inline or nested under target.
func targetEntityIDs(node *document.Map) []string {
	var ids []string
	collect := func(value any) {
		switch typed := value.(type) {
		case string:
			ids = append(ids, typed)
		case []any:
			for _, item := range typed {
				if s, ok := item.(string); ok {
					ids = append(ids, s)
				}
			}
		}
	}
	if value, ok := node.Get("entity_id"); ok {
		collect(value)
	}
	if target := node.GetMap("target"); target != nil {
		if value, ok := target.Get("entity_id"); ok {
			collect(value)
		}
	}
	return ids
}

// splitService splits "domain.service" into its parts.
func splitService(ref string) (domain, service string, ok bool) {
	domain, service, found := strings.Cut(ref, ".")
	if !found || domain == "" || service == "" {
		return "", "", false
	}
	return domain, service, true
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
