package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/dwrignell/homesynth/internal/document"
)

func TestLibrary_RegisterDuplicate(t *testing.T) {
	lib := NewLibrary()
	render := func(map[string]any) (*document.Map, error) { return document.NewMap(), nil }

	if err := lib.Register("card", nil, nil, render); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := lib.Register("card", nil, nil, render)
	if !errors.Is(err, ErrDuplicateTemplate) {
		t.Errorf("duplicate Register() error = %v, want ErrDuplicateTemplate", err)
	}
}

func TestLibrary_Freeze(t *testing.T) {
	lib := NewLibrary()
	render := func(map[string]any) (*document.Map, error) { return document.NewMap(), nil }

	if err := lib.Register("before", nil, nil, render); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	lib.Freeze()

	err := lib.Register("after", nil, nil, render)
	if !errors.Is(err, ErrFrozen) {
		t.Errorf("Register() after Freeze error = %v, want ErrFrozen", err)
	}

	// Rendering still works on a frozen library
	if _, err := lib.Render("before", nil); err != nil {
		t.Errorf("Render() on frozen library error = %v", err)
	}
}

func TestLibrary_RenderUnknown(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Render("nope", nil)
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("Render() error = %v, want ErrUnknownTemplate", err)
	}
}

func TestLibrary_MissingParametersAllReported(t *testing.T) {
	lib := NewLibrary()
	err := lib.Register("needs-three", []string{"alpha", "beta", "gamma"}, nil,
		func(map[string]any) (*document.Map, error) { return document.NewMap(), nil })
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err = lib.Render("needs-three", map[string]any{"beta": "present"})
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("Render() error = %v, want ErrMissingParameter", err)
	}
	// Both missing parameters reported in one error
	msg := err.Error()
	if !strings.Contains(msg, "alpha") || !strings.Contains(msg, "gamma") {
		t.Errorf("error %q does not list all missing parameters", msg)
	}
	if strings.Contains(msg, "beta") {
		t.Errorf("error %q mentions a supplied parameter", msg)
	}
}

func TestLibrary_DefaultsApplied(t *testing.T) {
	lib := NewLibrary()
	err := lib.Register("with-default", []string{"entity"}, map[string]any{"graph": "line"},
		func(p map[string]any) (*document.Map, error) {
			return document.NewMap().Set("entity", p["entity"]).Set("graph", p["graph"]), nil
		})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	node, err := lib.Render("with-default", map[string]any{"entity": "sensor.temp"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if node.GetString("graph") != "line" {
		t.Errorf("default not applied: graph = %q", node.GetString("graph"))
	}

	// Explicit parameter overrides the default
	node, err = lib.Render("with-default", map[string]any{"entity": "sensor.temp", "graph": "none"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if node.GetString("graph") != "none" {
		t.Errorf("override not applied: graph = %q", node.GetString("graph"))
	}
}

func TestLibrary_RenderIdempotent(t *testing.T) {
	lib := Builtin()
	params := map[string]any{"entity": "light.kitchen", "name": "Kitchen"}

	first, err := lib.Render("light-card", params)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	second, err := lib.Render("light-card", params)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	firstRaw, err := document.Encode(first)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	secondRaw, err := document.Encode(second)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(firstRaw) != string(secondRaw) {
		t.Error("identical parameters produced different output")
	}
}
