package ir

import (
	"encoding/json"
	"fmt"
)

// Source union encoding uses an explicit "type" discriminator:
//
//	{"type": "range", "start": 0, "stop": 10, "step": 1}
//	{"type": "opaque", "name": "items"}
//
// Generator owns the custom (un)marshaling because Go cannot attach
// methods to the Source interface itself.

type sourceJSON struct {
	Type  string `json:"type"`
	Start int64  `json:"start,omitempty"`
	Stop  int64  `json:"stop,omitempty"`
	Step  int64  `json:"step,omitempty"`
	Name  string `json:"name,omitempty"`
}

type generatorJSON struct {
	Var     string          `json:"var"`
	Source  json.RawMessage `json:"source"`
	Filters []Predicate     `json:"filters,omitempty"`
}

// MarshalJSON implements json.Marshaler for Generator.
func (g Generator) MarshalJSON() ([]byte, error) {
	src, err := marshalSource(g.Source)
	if err != nil {
		return nil, err
	}
	return json.Marshal(generatorJSON{
		Var:     g.Var,
		Source:  src,
		Filters: g.Filters,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Generator.
func (g *Generator) UnmarshalJSON(data []byte) error {
	var raw generatorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	src, err := unmarshalSource(raw.Source)
	if err != nil {
		return fmt.Errorf("generator %q: %w", raw.Var, err)
	}
	g.Var = raw.Var
	g.Source = src
	g.Filters = raw.Filters
	return nil
}

func marshalSource(s Source) ([]byte, error) {
	switch src := s.(type) {
	case RangeSource:
		// step is always serialized so a step-1 range round-trips
		// without a defaulting pass on the way back in
		return json.Marshal(struct {
			Type  string `json:"type"`
			Start int64  `json:"start"`
			Stop  int64  `json:"stop"`
			Step  int64  `json:"step"`
		}{Type: "range", Start: src.Start, Stop: src.Stop, Step: src.Step})
	case OpaqueSource:
		return json.Marshal(sourceJSON{Type: "opaque", Name: src.Name})
	default:
		return nil, fmt.Errorf("unknown source type %T", s)
	}
}

func unmarshalSource(data []byte) (Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing source")
	}
	var raw sourceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch raw.Type {
	case "range":
		step := raw.Step
		if step == 0 {
			step = 1
		}
		return RangeSource{Start: raw.Start, Stop: raw.Stop, Step: step}, nil
	case "opaque":
		if raw.Name == "" {
			return nil, fmt.Errorf("opaque source requires a name")
		}
		return OpaqueSource{Name: raw.Name}, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", raw.Type)
	}
}

type comprehensionJSON struct {
	Kind       Kind        `json:"kind"`
	Element    string      `json:"element"`
	KeyExpr    string      `json:"key_expr,omitempty"`
	Reduce     ReduceOp    `json:"reduce,omitempty"`
	Generators []Generator `json:"generators"`
	Origin     string      `json:"origin,omitempty"`
}

// MarshalJSON implements json.Marshaler for Comprehension.
func (c Comprehension) MarshalJSON() ([]byte, error) {
	return json.Marshal(comprehensionJSON(c))
}

// UnmarshalJSON implements json.Unmarshaler for Comprehension.
// The decoded node is validated; a document that violates the
// structural invariants is rejected at this boundary.
func (c *Comprehension) UnmarshalJSON(data []byte) error {
	var raw comprehensionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := Comprehension(raw)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*c = decoded
	return nil
}
