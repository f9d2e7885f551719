package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dwrignell/homesynth/internal/document"
)

// Domain errors for the template package.
var (
	// ErrDuplicateTemplate is returned when registering a name that exists.
	ErrDuplicateTemplate = errors.New("template: duplicate name")

	// ErrUnknownTemplate is returned when rendering an unregistered name.
	ErrUnknownTemplate = errors.New("template: unknown name")

	// ErrMissingParameter is returned when a required parameter is absent.
	// The message lists every missing parameter, not just the first.
	ErrMissingParameter = errors.New("template: missing parameter")

	// ErrFrozen is returned when registering on a frozen library.
	ErrFrozen = errors.New("template: library is frozen")
)

// RenderFunc builds a document node from parameters. Implementations must
// be pure: no I/O, no clock, no randomness. The params map passed in
// already has defaults applied and may be read freely but not retained.
type RenderFunc func(params map[string]any) (*document.Map, error)

// Template describes one registered fragment builder.
type Template struct {
	Name     string
	Required []string
	Defaults map[string]any
	render   RenderFunc
}

// Library is the template registry. Register during startup, call Freeze,
// then share freely: a frozen library is immutable and safe for unlimited
// concurrent rendering.
type Library struct {
	templates map[string]Template
	frozen    bool
	mu        sync.RWMutex
}

// NewLibrary creates an empty template library.
func NewLibrary() *Library {
	return &Library{templates: make(map[string]Template)}
}

// Register adds a template. Fails with ErrDuplicateTemplate if the name is
// taken and ErrFrozen after Freeze.
func (l *Library) Register(name string, required []string, defaults map[string]any, render RenderFunc) error {
	if name == "" {
		return fmt.Errorf("template: name is required")
	}
	if render == nil {
		return fmt.Errorf("template: render function is required for %q", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return fmt.Errorf("%w: cannot register %q", ErrFrozen, name)
	}
	if _, exists := l.templates[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTemplate, name)
	}

	req := make([]string, len(required))
	copy(req, required)
	def := make(map[string]any, len(defaults))
	for k, v := range defaults {
		def[k] = v
	}

	l.templates[name] = Template{
		Name:     name,
		Required: req,
		Defaults: def,
		render:   render,
	}
	return nil
}

// Freeze makes the library immutable. Registration after Freeze fails.
func (l *Library) Freeze() {
	l.mu.Lock()
	l.frozen = true
	l.mu.Unlock()
}

// Render builds a node from a registered template.
//
// Required parameters must all be present; every missing one is reported in
// a single ErrMissingParameter. Missing optional parameters receive their
// registered defaults; a nil default means the parameter is simply omitted.
func (l *Library) Render(name string, params map[string]any) (*document.Map, error) {
	l.mu.RLock()
	tmpl, exists := l.templates[name]
	l.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	var missing []string
	for _, p := range tmpl.Required {
		if v, ok := params[p]; !ok || v == nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s requires %s", ErrMissingParameter, name, strings.Join(missing, ", "))
	}

	merged := make(map[string]any, len(params)+len(tmpl.Defaults))
	for k, v := range tmpl.Defaults {
		if v != nil {
			merged[k] = v
		}
	}
	for k, v := range params {
		if v != nil {
			merged[k] = v
		}
	}

	node, err := tmpl.render(merged)
	if err != nil {
		return nil, fmt.Errorf("rendering %q: %w", name, err)
	}
	return node, nil
}

// Names returns all registered template names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a template name is registered.
func (l *Library) Has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, exists := l.templates[name]
	return exists
}
