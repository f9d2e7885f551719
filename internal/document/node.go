package document

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Map is an insertion-ordered string-keyed document node.
//
// Serialization preserves insertion order, so identical construction
// sequences always produce identical output. Values may be scalars,
// []any lists, or nested *Map nodes.
type Map struct {
	keys []string
	vals map[string]any
}

// NewMap creates an empty ordered map node.
func NewMap() *Map {
	return &Map{vals: make(map[string]any)}
}

// Set stores a key, appending it to the order on first insertion.
// Returns the map for chaining during document assembly.
func (m *Map) Set(key string, value any) *Map {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
	return m
}

// Get returns the value for a key and whether it was present.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// GetMap returns a nested *Map value, or nil if absent or of another type.
func (m *Map) GetMap(key string) *Map {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	nested, _ := v.(*Map)
	return nested
}

// GetList returns a []any value, or nil if absent or of another type.
func (m *Map) GetList(key string) []any {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	list, _ := v.([]any)
	return list
}

// GetString returns a string value, or "" if absent or of another type.
func (m *Map) GetString(key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// DeepCopy creates an independent copy of the node tree.
func (m *Map) DeepCopy() *Map {
	if m == nil {
		return nil
	}
	cpy := NewMap()
	for _, k := range m.keys {
		cpy.Set(k, copyNodeValue(m.vals[k]))
	}
	return cpy
}

// copyNodeValue recursively copies a node value.
func copyNodeValue(v any) any {
	switch val := v.(type) {
	case *Map:
		return val.DeepCopy()
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = copyNodeValue(elem)
		}
		return cpy
	default:
		return v // Scalars are immutable
	}
}

// MarshalYAML implements yaml.Marshaler, emitting keys in insertion order.
func (m *Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valNode := &yaml.Node{}
		if err := valNode.Encode(m.vals[k]); err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", k, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, preserving document key order.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping node, got %v", node.Kind)
	}
	m.keys = nil
	m.vals = make(map[string]any, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value, err := decodeNode(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("decoding key %q: %w", key, err)
		}
		m.Set(key, value)
	}
	return nil
}

// decodeNode converts a yaml.Node into node-tree values (*Map for mappings,
// []any for sequences, scalars otherwise).
func decodeNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		nested := NewMap()
		if err := nested.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return nested, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.AliasNode:
		return decodeNode(node.Alias)
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
