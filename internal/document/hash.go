package document

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// logicalIDLength truncates the hex digest to a manageable id length while
// keeping collisions negligible for a single installation.
const logicalIDLength = 16

// hashDomain builds the domain-separation prefix for a document kind.
// The version suffix enables future algorithm migration.
func hashDomain(kind Kind) string {
	return "homesynth/" + string(kind) + "/v1"
}

// LogicalID computes the stable content-addressed id for a document from
// its semantic node tree. Identical semantics always produce an identical
// id, so re-synthesizing the same logical document updates in place rather
// than creating a duplicate.
//
// Map keys are hashed in sorted order, making the id independent of
// assembly order. Cosmetic fields must be excluded by the caller before
// hashing (the Synthesizer hashes only trigger/condition/action structure).
func LogicalID(kind Kind, semantic *Map) (string, error) {
	canonical, err := marshalCanonical(semantic)
	if err != nil {
		return "", fmt.Errorf("canonical marshal for %s id: %w", kind, err)
	}

	h := sha256.New()
	h.Write([]byte(hashDomain(kind)))
	h.Write([]byte{0x00}) // separator prevents domain/data boundary ambiguity
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))[:logicalIDLength], nil
}

// marshalCanonical produces a deterministic byte representation of a node
// value: sorted map keys, JSON scalar encoding, no insignificant whitespace.
func marshalCanonical(v any) ([]byte, error) {
	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch val := v.(type) {
	case *Map:
		keys := val.Keys()
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(keyJSON)
			b.WriteByte(':')
			value, _ := val.Get(k)
			if err := writeCanonical(b, value); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(keyJSON)
			b.WriteByte(':')
			if err := writeCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	case []any:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, elem); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	default:
		scalar, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("marshalling scalar %v: %w", val, err)
		}
		b.Write(scalar)
		return nil
	}
}
