package validate

import (
	"context"
	"testing"

	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
)

// mockStore answers Has from a fixed entity set.
type mockStore struct {
	entities map[string]bool
}

func newMockStore(ids ...string) *mockStore {
	m := &mockStore{entities: make(map[string]bool)}
	for _, id := range ids {
		m.entities[id] = true
	}
	return m
}

func (m *mockStore) Has(_ context.Context, entityID string) bool {
	return m.entities[entityID]
}

func motionAutomation(target string) *document.Document {
	body := document.NewMap().
		Set("id", "abc123").
		Set("alias", "Motion light").
		Set("mode", "single").
		Set("trigger", []any{
			document.NewMap().
				Set("platform", "state").
				Set("entity_id", "binary_sensor.motion").
				Set("to", "on"),
		}).
		Set("condition", []any{}).
		Set("action", []any{
			document.NewMap().
				Set("service", "light.turn_on").
				Set("target", document.NewMap().Set("entity_id", target)),
		})
	return &document.Document{
		Kind:      document.KindAutomation,
		LogicalID: "abc123",
		Title:     "Motion light",
		Body:      body,
		Status:    document.StatusUnvalidated,
	}
}

func TestValidate_KnownEntities(t *testing.T) {
	v := New(newMockStore("binary_sensor.motion", "light.kitchen"))

	doc := motionAutomation("light.kitchen")
	result := v.Validate(context.Background(), doc)

	if !result.Valid {
		t.Fatalf("Validate() issues = %v, want valid", result.Issues)
	}
	if doc.Status != document.StatusValid {
		t.Errorf("Status = %q, want valid", doc.Status)
	}
	if doc.Issues != nil {
		t.Errorf("Issues = %v, want nil", doc.Issues)
	}
}

func TestValidate_UnknownEntity(t *testing.T) {
	v := New(newMockStore("binary_sensor.motion"))

	doc := motionAutomation("light.nonexistent")
	result := v.Validate(context.Background(), doc)

	if result.Valid {
		t.Fatal("Validate() = valid, want invalid")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %v, want exactly one", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Kind != document.IssueUnknownEntity {
		t.Errorf("Kind = %q, want unknown_entity", issue.Kind)
	}
	if issue.Path != "action[0].target.entity_id" {
		t.Errorf("Path = %q", issue.Path)
	}
	if doc.Status != document.StatusInvalid {
		t.Errorf("Status = %q, want invalid", doc.Status)
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	// Two independent defects: an unknown trigger entity and an unsupported
	// service for the target's domain. Both must be reported.
	v := New(newMockStore("sensor.outdoor_temp"))

	body := document.NewMap().
		Set("alias", "Broken").
		Set("trigger", []any{
			document.NewMap().
				Set("platform", "state").
				Set("entity_id", "binary_sensor.gone"),
		}).
		Set("action", []any{
			document.NewMap().
				Set("service", "sensor.turn_on").
				Set("target", document.NewMap().Set("entity_id", "sensor.outdoor_temp")),
		})
	doc := &document.Document{Kind: document.KindAutomation, Body: body}

	result := v.Validate(context.Background(), doc)
	if result.Valid {
		t.Fatal("Validate() = valid, want invalid")
	}
	if len(result.Issues) != 2 {
		t.Fatalf("issues = %v, want 2", result.Issues)
	}

	kinds := map[document.IssueKind]bool{}
	for _, issue := range result.Issues {
		kinds[issue.Kind] = true
	}
	if !kinds[document.IssueUnknownEntity] || !kinds[document.IssueUnsupportedAction] {
		t.Errorf("issue kinds = %v, want unknown_entity and unsupported_action", result.Issues)
	}
}

func TestValidate_Structural(t *testing.T) {
	v := New(newMockStore())
	ctx := context.Background()

	tests := []struct {
		name string
		doc  *document.Document
		path string
	}{
		{
			name: "automation without trigger",
			doc: &document.Document{
				Kind: document.KindAutomation,
				Body: document.NewMap().Set("action", []any{
					document.NewMap().Set("service", "homeassistant.restart"),
				}),
			},
			path: "trigger",
		},
		{
			name: "automation without action",
			doc: &document.Document{
				Kind: document.KindAutomation,
				Body: document.NewMap().Set("trigger", []any{
					document.NewMap().Set("platform", "time").Set("at", "07:00:00"),
				}),
			},
			path: "action",
		},
		{
			name: "dashboard without views",
			doc: &document.Document{
				Kind: document.KindDashboard,
				Body: document.NewMap().Set("title", "Empty"),
			},
			path: "views",
		},
		{
			name: "view without path or title",
			doc: &document.Document{
				Kind: document.KindDashboard,
				Body: document.NewMap().Set("views", []any{
					document.NewMap().Set("cards", []any{}),
				}),
			},
			path: "views[0]",
		},
		{
			name: "script without sequence",
			doc: &document.Document{
				Kind: document.KindScript,
				Body: document.NewMap().Set("alias", "Empty"),
			},
			path: "sequence",
		},
		{
			name: "scene without entities",
			doc: &document.Document{
				Kind: document.KindScene,
				Body: document.NewMap().Set("name", "Empty"),
			},
			path: "entities",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(ctx, tt.doc)
			if result.Valid {
				t.Fatal("Validate() = valid, want invalid")
			}
			found := false
			for _, issue := range result.Issues {
				if issue.Path == tt.path && issue.Kind == document.IssueSchema {
					found = true
				}
			}
			if !found {
				t.Errorf("no schema issue at %q; got %v", tt.path, result.Issues)
			}
		})
	}
}

func TestValidate_UnknownTriggerPlatform(t *testing.T) {
	v := New(newMockStore("light.kitchen"))

	body := document.NewMap().
		Set("trigger", []any{
			document.NewMap().Set("platform", "telepathy").Set("entity_id", "light.kitchen"),
		}).
		Set("action", []any{
			document.NewMap().Set("service", "light.turn_on").
				Set("target", document.NewMap().Set("entity_id", "light.kitchen")),
		})
	doc := &document.Document{Kind: document.KindAutomation, Body: body}

	result := v.Validate(context.Background(), doc)
	if result.Valid {
		t.Fatal("Validate() = valid, want invalid")
	}
	issue := result.Issues[0]
	if issue.Kind != document.IssueUnsupportedAction || issue.Path != "trigger[0].platform" {
		t.Errorf("issue = %+v", issue)
	}
}

func TestValidate_TriggerRequiredField(t *testing.T) {
	v := New(newMockStore("light.kitchen"))

	body := document.NewMap().
		Set("trigger", []any{
			document.NewMap().Set("platform", "state"), // entity_id missing
		}).
		Set("action", []any{
			document.NewMap().Set("service", "light.turn_on").
				Set("target", document.NewMap().Set("entity_id", "light.kitchen")),
		})
	doc := &document.Document{Kind: document.KindAutomation, Body: body}

	result := v.Validate(context.Background(), doc)
	if result.Valid {
		t.Fatal("Validate() = valid, want invalid")
	}
	if result.Issues[0].Kind != document.IssueSchema {
		t.Errorf("issue = %+v, want schema_error", result.Issues[0])
	}
}

func TestValidate_MissingDependency(t *testing.T) {
	v := New(newMockStore("light.kitchen", "binary_sensor.motion"))
	v.SetServices([]entity.ServiceDomain{
		{Domain: "homeassistant", Services: map[string]map[string]any{"restart": {}}},
	})

	doc := motionAutomation("light.kitchen")
	result := v.Validate(context.Background(), doc)

	if result.Valid {
		t.Fatal("Validate() = valid, want invalid")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %v, want one", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Kind != document.IssueMissingDependency {
		t.Errorf("Kind = %q, want missing_dependency", issue.Kind)
	}
	if issue.Path != "action[0].service" {
		t.Errorf("Path = %q", issue.Path)
	}
}

func TestValidate_RegisteredService(t *testing.T) {
	v := New(newMockStore("light.kitchen", "binary_sensor.motion"))
	v.SetServices([]entity.ServiceDomain{
		{Domain: "light", Services: map[string]map[string]any{"turn_on": {}, "turn_off": {}}},
	})

	result := v.Validate(context.Background(), motionAutomation("light.kitchen"))
	if !result.Valid {
		t.Fatalf("Validate() issues = %v, want valid", result.Issues)
	}
}

func TestValidate_SceneEntities(t *testing.T) {
	v := New(newMockStore("light.kitchen"))

	body := document.NewMap().
		Set("name", "Movie Night").
		Set("entities", document.NewMap().
			Set("light.kitchen", "off").
			Set("light.gone", "on"))
	doc := &document.Document{Kind: document.KindScene, Body: body}

	result := v.Validate(context.Background(), doc)
	if result.Valid {
		t.Fatal("Validate() = valid, want invalid")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %v, want one", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Kind != document.IssueUnknownEntity || issue.Path != "entities.light.gone" {
		t.Errorf("issue = %+v", issue)
	}
}

func TestValidate_DashboardEntityRefs(t *testing.T) {
	v := New(newMockStore("light.kitchen"))

	body := document.NewMap().
		Set("title", "Board").
		Set("views", []any{
			document.NewMap().
				Set("title", "Main").
				Set("path", "main").
				Set("cards", []any{
					document.NewMap().Set("type", "light").Set("entity", "light.kitchen"),
					document.NewMap().Set("type", "entities").
						Set("entities", []any{"light.kitchen", "switch.phantom"}),
				}),
		})
	doc := &document.Document{Kind: document.KindDashboard, Body: body}

	result := v.Validate(context.Background(), doc)
	if result.Valid {
		t.Fatal("Validate() = valid, want invalid")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %v, want one", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Path != "views[0].cards[1].entities[1]" {
		t.Errorf("Path = %q", issue.Path)
	}
}

func TestValidate_MalformedEntityID(t *testing.T) {
	v := New(newMockStore())

	body := document.NewMap().
		Set("title", "Board").
		Set("views", []any{
			document.NewMap().Set("title", "Main").Set("cards", []any{
				document.NewMap().Set("type", "light").Set("entity", "not-an-entity"),
			}),
		})
	doc := &document.Document{Kind: document.KindDashboard, Body: body}

	result := v.Validate(context.Background(), doc)
	if result.Valid {
		t.Fatal("Validate() = valid, want invalid")
	}
	if result.Issues[0].Kind != document.IssueSchema {
		t.Errorf("Kind = %q, want schema_error for malformed id", result.Issues[0].Kind)
	}
}
