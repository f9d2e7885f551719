package synth

import (
	"context"
	"testing"

	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/entity"
)

func motionLightRequest(alias string) AutomationRequest {
	return AutomationRequest{
		Alias: alias,
		Trigger: BlockSpec{
			Template: "state-trigger",
			Params:   map[string]any{"entity_id": "binary_sensor.motion", "to": "on"},
		},
		Action: BlockSpec{
			Template: "service-action",
			Params:   map[string]any{"service": "light.turn_on", "entity_id": "light.hallway"},
		},
	}
}

func TestBuildAutomation(t *testing.T) {
	s := testSynthesizer()

	doc, err := s.BuildAutomation(context.Background(), motionLightRequest("Motion light"))
	if err != nil {
		t.Fatalf("BuildAutomation() error = %v", err)
	}

	if doc.Kind != document.KindAutomation {
		t.Errorf("Kind = %q", doc.Kind)
	}
	if doc.Body.GetString("alias") != "Motion light" {
		t.Errorf("alias = %q", doc.Body.GetString("alias"))
	}
	if doc.Body.GetString("mode") != "single" {
		t.Errorf("mode = %q, want single", doc.Body.GetString("mode"))
	}
	if doc.Body.GetString("id") != doc.LogicalID {
		t.Error("body id differs from document logical id")
	}

	triggers := doc.Body.GetList("trigger")
	if len(triggers) != 1 {
		t.Fatalf("trigger count = %d", len(triggers))
	}
	trigger := triggers[0].(*document.Map)
	if trigger.GetString("platform") != "state" || trigger.GetString("entity_id") != "binary_sensor.motion" {
		t.Errorf("trigger = %v", trigger)
	}

	actions := doc.Body.GetList("action")
	if len(actions) != 1 {
		t.Fatalf("action count = %d", len(actions))
	}
	action := actions[0].(*document.Map)
	if action.GetString("service") != "light.turn_on" {
		t.Errorf("action service = %q", action.GetString("service"))
	}
}

func TestBuildAutomation_StableLogicalID(t *testing.T) {
	s := testSynthesizer()
	ctx := context.Background()

	first, err := s.BuildAutomation(ctx, motionLightRequest("Motion light"))
	if err != nil {
		t.Fatalf("BuildAutomation() error = %v", err)
	}
	// Same semantics under a different alias: same logical id (alias is
	// cosmetic and excluded from the hash).
	second, err := s.BuildAutomation(ctx, motionLightRequest("Renamed automation"))
	if err != nil {
		t.Fatalf("BuildAutomation() error = %v", err)
	}
	if first.LogicalID != second.LogicalID {
		t.Errorf("alias changed the logical id: %s vs %s", first.LogicalID, second.LogicalID)
	}

	// Different action: different id
	req := motionLightRequest("Motion light")
	req.Action.Params["service"] = "light.turn_off"
	third, err := s.BuildAutomation(ctx, req)
	if err != nil {
		t.Fatalf("BuildAutomation() error = %v", err)
	}
	if third.LogicalID == first.LogicalID {
		t.Error("changed action kept the same logical id")
	}
}

func TestBuildAutomation_WithCondition(t *testing.T) {
	s := testSynthesizer()

	req := motionLightRequest("Evening motion light")
	req.Condition = &BlockSpec{
		Template: "time-condition",
		Params:   map[string]any{"after": "18:00:00", "before": "23:00:00"},
	}

	doc, err := s.BuildAutomation(context.Background(), req)
	if err != nil {
		t.Fatalf("BuildAutomation() error = %v", err)
	}

	conditions := doc.Body.GetList("condition")
	if len(conditions) != 1 {
		t.Fatalf("condition count = %d", len(conditions))
	}
	cond := conditions[0].(*document.Map)
	if cond.GetString("after") != "18:00:00" {
		t.Errorf("condition after = %q", cond.GetString("after"))
	}

	// Adding a condition changes the semantics, so the id changes
	plain, err := s.BuildAutomation(context.Background(), motionLightRequest("Motion light"))
	if err != nil {
		t.Fatalf("BuildAutomation() error = %v", err)
	}
	if doc.LogicalID == plain.LogicalID {
		t.Error("condition did not change the logical id")
	}
}

func TestBuildScript(t *testing.T) {
	s := testSynthesizer()

	doc, err := s.BuildScript(context.Background(), "Goodnight", []BlockSpec{
		{Template: "service-action", Params: map[string]any{"service": "light.turn_off", "entity_id": "light.kitchen"}},
		{Template: "service-action", Params: map[string]any{"service": "lock.lock", "entity_id": "lock.front_door"}},
	})
	if err != nil {
		t.Fatalf("BuildScript() error = %v", err)
	}

	if doc.Kind != document.KindScript {
		t.Errorf("Kind = %q", doc.Kind)
	}
	sequence := doc.Body.GetList("sequence")
	if len(sequence) != 2 {
		t.Fatalf("sequence length = %d", len(sequence))
	}
}

func TestBuildScene(t *testing.T) {
	s := testSynthesizer(
		entity.Record{EntityID: "light.kitchen", State: "on"},
		entity.Record{EntityID: "light.hallway", State: "off"},
	)

	doc, err := s.BuildScene(context.Background(), "Movie Night", []string{"light.kitchen", "light.hallway"})
	if err != nil {
		t.Fatalf("BuildScene() error = %v", err)
	}

	if doc.LogicalID != "movie_night" {
		t.Errorf("LogicalID = %q", doc.LogicalID)
	}
	entities := doc.Body.GetMap("entities")
	if entities.GetString("light.kitchen") != "on" {
		t.Errorf("snapshot state = %q", entities.GetString("light.kitchen"))
	}
	if entities.GetString("light.hallway") != "off" {
		t.Errorf("snapshot state = %q", entities.GetString("light.hallway"))
	}
}

func TestBuildOverviewDashboard(t *testing.T) {
	s := testSynthesizer(
		entity.Record{EntityID: "light.kitchen", State: "off"},
		entity.Record{EntityID: "light.hallway", State: "off"},
		entity.Record{EntityID: "light.bedroom", State: "off"},
		entity.Record{EntityID: "sensor.temp_indoor", State: "21"},
		entity.Record{EntityID: "sensor.temp_outdoor", State: "15"},
		entity.Record{EntityID: "sensor.humidity", State: "40"},
		entity.Record{EntityID: "weather.home", State: "cloudy"},
	)

	doc, err := s.BuildOverviewDashboard(context.Background())
	if err != nil {
		t.Fatalf("BuildOverviewDashboard() error = %v", err)
	}

	views := doc.Body.GetList("views")
	// Home view + light view + sensor view (weather has only 1 entity)
	if len(views) != 3 {
		t.Fatalf("views = %d, want 3", len(views))
	}

	home := views[0].(*document.Map)
	if home.GetString("path") != "home" {
		t.Errorf("first view path = %q", home.GetString("path"))
	}
	homeCards := home.GetList("cards")
	// welcome markdown + weather + quick access glance
	if len(homeCards) != 3 {
		t.Fatalf("home cards = %d, want 3", len(homeCards))
	}
	if homeCards[0].(*document.Map).GetString("type") != "markdown" {
		t.Error("first home card is not the welcome markdown")
	}
	if homeCards[1].(*document.Map).GetString("type") != "weather-forecast" {
		t.Error("second home card is not the weather card")
	}

	// Domain views sorted: light before sensor; lights render as glance
	lightView := views[1].(*document.Map)
	if lightView.GetString("title") != "Light" {
		t.Errorf("second view = %q", lightView.GetString("title"))
	}
	lightCard := lightView.GetList("cards")[0].(*document.Map)
	if lightCard.GetString("type") != "glance" {
		t.Errorf("light view card type = %q, want glance", lightCard.GetString("type"))
	}

	sensorView := views[2].(*document.Map)
	sensorCard := sensorView.GetList("cards")[0].(*document.Map)
	if sensorCard.GetString("type") != "entities" {
		t.Errorf("sensor view card type = %q, want entities", sensorCard.GetString("type"))
	}
}
