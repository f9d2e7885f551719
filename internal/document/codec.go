package document

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlIndent matches Home Assistant's conventional two-space indentation.
const yamlIndent = 2

// Encode serializes a node tree to YAML. This is the single serialization
// point for every document the system produces.
func Encode(body *Map) ([]byte, error) {
	if body == nil {
		return nil, fmt.Errorf("encoding document: nil body")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses serialized YAML back into a node tree.
func Decode(raw []byte) (*Map, error) {
	body := NewMap()
	if err := yaml.Unmarshal(raw, body); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return body, nil
}

// Finalize fills in a document's Raw form from its body. Call after any
// body mutation and before persisting.
func (d *Document) Finalize() error {
	raw, err := Encode(d.Body)
	if err != nil {
		return err
	}
	d.Raw = raw
	return nil
}
