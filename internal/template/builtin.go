package template

import (
	"fmt"

	"github.com/dwrignell/homesynth/internal/document"
)

// domainIcons maps entity domains to their conventional Material Design icons.
var domainIcons = map[string]string{
	"light":          "mdi:lightbulb",
	"switch":         "mdi:toggle-switch",
	"sensor":         "mdi:eye",
	"binary_sensor":  "mdi:checkbox-marked-circle",
	"climate":        "mdi:thermostat",
	"cover":          "mdi:window-shutter",
	"fan":            "mdi:fan",
	"media_player":   "mdi:speaker",
	"camera":         "mdi:camera",
	"lock":           "mdi:lock",
	"vacuum":         "mdi:robot-vacuum",
	"weather":        "mdi:weather-partly-cloudy",
	"person":         "mdi:account",
	"device_tracker": "mdi:map-marker",
}

// IconForDomain returns the conventional icon for a domain, or the provided
// fallback when the domain has no mapping.
func IconForDomain(domain, fallback string) string {
	if icon, ok := domainIcons[domain]; ok {
		return icon
	}
	return fallback
}

// Builtin returns a frozen library containing the standard card and
// automation-block templates.
func Builtin() *Library {
	lib := NewLibrary()
	MustRegisterBuiltin(lib)
	lib.Freeze()
	return lib
}

// MustRegisterBuiltin registers the standard templates, panicking on
// registration failure. Registration can only fail through a programming
// error (duplicate name), never from input.
func MustRegisterBuiltin(lib *Library) {
	register := func(name string, required []string, defaults map[string]any, render RenderFunc) {
		if err := lib.Register(name, required, defaults, render); err != nil {
			panic(fmt.Sprintf("registering builtin template %s: %v", name, err))
		}
	}

	// --- Dashboard cards ---

	register("light-card", []string{"entity"}, map[string]any{"name": nil}, func(p map[string]any) (*document.Map, error) {
		node := document.NewMap().Set("type", "light").Set("entity", p["entity"])
		if name, ok := p["name"]; ok {
			node.Set("name", name)
		}
		return node, nil
	})

	register("sensor-card", []string{"entity"}, map[string]any{"graph": "line"}, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().
			Set("type", "sensor").
			Set("entity", p["entity"]).
			Set("graph", p["graph"]), nil
	})

	register("thermostat-card", []string{"entity"}, nil, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().Set("type", "thermostat").Set("entity", p["entity"]), nil
	})

	register("entities-card", []string{"entities"}, map[string]any{"title": nil, "show_header_toggle": nil}, func(p map[string]any) (*document.Map, error) {
		node := document.NewMap().Set("type", "entities")
		if title, ok := p["title"]; ok {
			node.Set("title", title)
		}
		node.Set("entities", p["entities"])
		if toggle, ok := p["show_header_toggle"]; ok {
			node.Set("show_header_toggle", toggle)
		}
		return node, nil
	})

	register("glance-card", []string{"entities"}, map[string]any{"title": nil, "columns": nil}, func(p map[string]any) (*document.Map, error) {
		node := document.NewMap().Set("type", "glance")
		if title, ok := p["title"]; ok {
			node.Set("title", title)
		}
		node.Set("entities", p["entities"])
		if columns, ok := p["columns"]; ok {
			node.Set("columns", columns)
		}
		return node, nil
	})

	register("markdown-card", []string{"content"}, nil, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().Set("type", "markdown").Set("content", p["content"]), nil
	})

	register("button-card", []string{"entity"}, map[string]any{"tap_action": "toggle"}, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().
			Set("type", "button").
			Set("entity", p["entity"]).
			Set("tap_action", document.NewMap().Set("action", p["tap_action"])), nil
	})

	register("picture-entity-card", []string{"entity"}, map[string]any{"camera_image": nil}, func(p map[string]any) (*document.Map, error) {
		node := document.NewMap().Set("type", "picture-entity").Set("entity", p["entity"])
		image := p["camera_image"]
		if image == nil {
			image = p["entity"]
		}
		node.Set("camera_image", image)
		return node, nil
	})

	register("grid-card", []string{"cards"}, map[string]any{"columns": 3}, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().
			Set("type", "grid").
			Set("columns", p["columns"]).
			Set("cards", p["cards"]), nil
	})

	register("media-control-card", []string{"entity"}, nil, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().Set("type", "media-control").Set("entity", p["entity"]), nil
	})

	register("weather-card", []string{"entity"}, nil, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().Set("type", "weather-forecast").Set("entity", p["entity"]), nil
	})

	// --- Automation blocks ---

	register("state-trigger", []string{"entity_id"}, map[string]any{"to": nil, "from": nil, "for": nil}, func(p map[string]any) (*document.Map, error) {
		node := document.NewMap().
			Set("platform", "state").
			Set("entity_id", p["entity_id"])
		if to, ok := p["to"]; ok {
			node.Set("to", to)
		}
		if from, ok := p["from"]; ok {
			node.Set("from", from)
		}
		if dur, ok := p["for"]; ok {
			node.Set("for", dur)
		}
		return node, nil
	})

	register("time-trigger", []string{"at"}, nil, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().Set("platform", "time").Set("at", p["at"]), nil
	})

	register("numeric-state-trigger", []string{"entity_id"}, map[string]any{"above": nil, "below": nil}, func(p map[string]any) (*document.Map, error) {
		node := document.NewMap().
			Set("platform", "numeric_state").
			Set("entity_id", p["entity_id"])
		if above, ok := p["above"]; ok {
			node.Set("above", above)
		}
		if below, ok := p["below"]; ok {
			node.Set("below", below)
		}
		return node, nil
	})

	register("state-condition", []string{"entity_id", "state"}, nil, func(p map[string]any) (*document.Map, error) {
		return document.NewMap().
			Set("condition", "state").
			Set("entity_id", p["entity_id"]).
			Set("state", p["state"]), nil
	})

	register("time-condition", nil, map[string]any{"after": nil, "before": nil, "weekday": nil}, func(p map[string]any) (*document.Map, error) {
		node := document.NewMap().Set("condition", "time")
		if after, ok := p["after"]; ok {
			node.Set("after", after)
		}
		if before, ok := p["before"]; ok {
			node.Set("before", before)
		}
		if weekday, ok := p["weekday"]; ok {
			node.Set("weekday", weekday)
		}
		return node, nil
	})

	register("service-action", []string{"service"}, map[string]any{"entity_id": nil, "data": nil}, func(p map[string]any) (*document.Map, error) {
		node := document.NewMap().Set("service", p["service"])
		if entityID, ok := p["entity_id"]; ok {
			node.Set("target", document.NewMap().Set("entity_id", entityID))
		}
		if data, ok := p["data"]; ok {
			node.Set("data", data)
		}
		return node, nil
	})
}
