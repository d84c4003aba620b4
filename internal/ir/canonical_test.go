package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Deterministic(t *testing.T) {
	c := validComp()

	first, err := MarshalCanonical(c)
	require.NoError(t, err)
	second, err := MarshalCanonical(c)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMarshalCanonical_SortedKeysNoHTMLEscape(t *testing.T) {
	c := validComp()
	c.Element = "x < 10"

	data, err := MarshalCanonical(c)
	require.NoError(t, err)

	// < must not be escaped to <
	assert.Contains(t, string(data), `"x < 10"`)
	// top-level keys appear in sorted order
	elem := `"element"`
	gens := `"generators"`
	kind := `"kind"`
	s := string(data)
	assert.Less(t, indexOf(s, elem), indexOf(s, gens))
	assert.Less(t, indexOf(s, gens), indexOf(s, kind))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestHash_ExcludesOrigin(t *testing.T) {
	a := validComp()
	a.Origin = "list_comp"
	b := validComp()
	b.Origin = "document_entry"

	assert.Equal(t, MustHash(a), MustHash(b))
}

func TestHash_SensitiveToSemantics(t *testing.T) {
	a := validComp()
	b := validComp()
	b.Generators[0].Filters = []Predicate{"x % 3 == 0"}

	assert.NotEqual(t, MustHash(a), MustHash(b))
}

func TestJSON_RoundTrip(t *testing.T) {
	c := &Comprehension{
		Kind:    KindDict,
		Element: "x * x",
		KeyExpr: "x",
		Generators: []Generator{
			{Var: "x", Source: RangeSource{Start: 1, Stop: 100, Step: 3}, Filters: []Predicate{"x > 2"}},
		},
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Comprehension
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *c, decoded)
}

func TestJSON_OpaqueSourceTag(t *testing.T) {
	c := &Comprehension{
		Kind:       KindList,
		Element:    "x",
		Generators: []Generator{{Var: "x", Source: OpaqueSource{Name: "items"}}},
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"opaque"`)

	var decoded Comprehension
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, OpaqueSource{Name: "items"}, decoded.Generators[0].Source)
}

func TestJSON_RejectsInvalidDocument(t *testing.T) {
	var c Comprehension
	err := json.Unmarshal([]byte(`{"kind":"list","element":"x","generators":[]}`), &c)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one generator")
}

func TestJSON_UnknownSourceType(t *testing.T) {
	var c Comprehension
	err := json.Unmarshal([]byte(`{"kind":"list","element":"x","generators":[{"var":"x","source":{"type":"stream"}}]}`), &c)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source type "stream"`)
}
