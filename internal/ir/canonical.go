package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON form of a comprehension,
// the only serialization used for content-addressed identity.
//
// Differences from the standard encoding:
//  1. Object keys are emitted in sorted order.
//  2. No HTML escaping (< > & are written as-is).
//  3. Strings are NFC normalized at the serialization boundary.
//  4. Optional fields are omitted entirely rather than emitted empty,
//     so semantically identical nodes hash identically.
//
// Origin is deliberately excluded: it records where the node came from,
// not what it means, and two comprehensions with identical semantics
// must share a hash regardless of authoring form.
func MarshalCanonical(c *Comprehension) ([]byte, error) {
	return marshalCanonical(canonicalValue(c))
}

// canonicalValue lowers a Comprehension to the generic value tree the
// canonical marshaler understands.
func canonicalValue(c *Comprehension) map[string]any {
	gens := make([]any, len(c.Generators))
	for i, gen := range c.Generators {
		g := map[string]any{
			"var": gen.Var,
		}
		switch src := gen.Source.(type) {
		case RangeSource:
			g["source"] = map[string]any{
				"type":  "range",
				"start": src.Start,
				"stop":  src.Stop,
				"step":  src.Step,
			}
		case OpaqueSource:
			g["source"] = map[string]any{
				"type": "opaque",
				"name": src.Name,
			}
		}
		if len(gen.Filters) > 0 {
			filters := make([]any, len(gen.Filters))
			for j, p := range gen.Filters {
				filters[j] = string(p)
			}
			g["filters"] = filters
		}
		gens[i] = g
	}

	obj := map[string]any{
		"kind":       string(c.Kind),
		"element":    c.Element,
		"generators": gens,
	}
	if c.KeyExpr != "" {
		obj["key_expr"] = c.KeyExpr
	}
	if c.Reduce != "" {
		obj["reduce"] = string(c.Reduce)
	}
	return obj
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString writes a JSON string with NFC normalization
// and HTML escaping disabled.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
