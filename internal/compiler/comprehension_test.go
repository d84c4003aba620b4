package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

func compileEntry(t *testing.T, doc, name string) (*ir.Comprehension, error) {
	t.Helper()
	v := cuecontext.New().CompileString(doc)
	require.NoError(t, v.Err())
	entry := v.LookupPath(cue.ParsePath("comprehension." + name))
	require.True(t, entry.Exists(), "entry %s missing", name)
	return CompileComprehension(entry)
}

func TestCompile_CodeForm(t *testing.T) {
	doc := `
comprehension: squares: {
	code: "[x * x for x in range(10) if x % 2 == 0]"
}
`
	c, err := compileEntry(t, doc, "squares")
	require.NoError(t, err)

	assert.Equal(t, ir.KindList, c.Kind)
	assert.Equal(t, "x * x", c.Element)
	assert.Equal(t, ir.RangeSource{Start: 0, Stop: 10, Step: 1}, c.Generators[0].Source)
	// origin follows the document label, not the surface syntax
	assert.Equal(t, "squares", c.Origin)
}

func TestCompile_StructuredLiteral(t *testing.T) {
	doc := `
comprehension: pairs: {
	kind:    "list"
	element: "(i, j)"
	generators: [
		{"var": "i", range: {stop: 1000}},
		{"var": "j", range: {start: 0, stop: 1000}, filters: ["i * j > 500"]},
	]
}
`
	c, err := compileEntry(t, doc, "pairs")
	require.NoError(t, err)

	assert.Equal(t, ir.KindList, c.Kind)
	require.Len(t, c.Generators, 2)
	assert.Equal(t, ir.RangeSource{Start: 0, Stop: 1000, Step: 1}, c.Generators[0].Source)
	assert.Equal(t, []ir.Predicate{"i * j > 500"}, c.Generators[1].Filters)
	assert.Equal(t, "pairs", c.Origin)
}

func TestCompile_ReductionLiteral(t *testing.T) {
	doc := `
comprehension: total: {
	kind:    "reduce"
	element: "i * i"
	reduce:  "sum"
	generators: [
		{"var": "i", range: {start: 1, stop: 1000000}, filters: ["i % 2 == 0"]},
	]
}
`
	c, err := compileEntry(t, doc, "total")
	require.NoError(t, err)

	assert.Equal(t, ir.KindReduce, c.Kind)
	assert.Equal(t, ir.ReduceSum, c.Reduce)
}

func TestCompile_OpaqueSourceLiteral(t *testing.T) {
	doc := `
comprehension: filtered: {
	kind:    "list"
	element: "x"
	generators: [
		{"var": "x", source: "items", filters: ["x > 0"]},
	]
}
`
	c, err := compileEntry(t, doc, "filtered")
	require.NoError(t, err)

	assert.Equal(t, ir.OpaqueSource{Name: "items"}, c.Generators[0].Source)
}

// Literal filters pass through the same normalization as parsed code,
// so chained comparisons and conjunctions arrive as flat conjuncts.
func TestCompile_LiteralFiltersAreNormalized(t *testing.T) {
	doc := `
comprehension: banded: {
	kind:    "list"
	element: "x"
	generators: [
		{"var": "x", range: {stop: 100}, filters: ["1 <= x <= 5", "x % 2 == 0 and x != 4"]},
	]
}
`
	c, err := compileEntry(t, doc, "banded")
	require.NoError(t, err)

	assert.Equal(t, []ir.Predicate{"1 <= x", "x <= 5", "x % 2 == 0", "x != 4"}, c.Generators[0].Filters)
}

func TestCompile_RejectsMixedForms(t *testing.T) {
	doc := `
comprehension: confused: {
	code: "[x for x in range(10)]"
	kind: "list"
}
`
	_, err := compileEntry(t, doc, "confused")

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Contains(t, compileErr.Message, "not both")
}

func TestCompile_CodeParseErrorCarriesField(t *testing.T) {
	doc := `
comprehension: broken: {
	code: "[x for x in range(0, 10, 0)]"
}
`
	_, err := compileEntry(t, doc, "broken")

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "code", compileErr.Field)
	assert.Contains(t, compileErr.Message, "step must be non-zero")
}

func TestCompile_LiteralErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"missing kind",
			`comprehension: e: {element: "x", generators: [{"var": "x", range: {stop: 10}}]}`,
			"kind is required",
		},
		{
			"missing element",
			`comprehension: e: {kind: "list", generators: [{"var": "x", range: {stop: 10}}]}`,
			"element is required",
		},
		{
			"missing generators",
			`comprehension: e: {kind: "list", element: "x"}`,
			"generators are required",
		},
		{
			"missing stop",
			`comprehension: e: {kind: "list", element: "x", generators: [{"var": "x", range: {start: 0}}]}`,
			"stop is required",
		},
		{
			"range and source together",
			`comprehension: e: {kind: "list", element: "x", generators: [{"var": "x", range: {stop: 10}, source: "items"}]}`,
			"not both",
		},
		{
			"neither range nor source",
			`comprehension: e: {kind: "list", element: "x", generators: [{"var": "x"}]}`,
			"requires a range or a source",
		},
		{
			"invalid kind",
			`comprehension: e: {kind: "tuple", element: "x", generators: [{"var": "x", range: {stop: 10}}]}`,
			"invalid result kind",
		},
		{
			"reduce without operator",
			`comprehension: e: {kind: "reduce", element: "x", generators: [{"var": "x", range: {stop: 10}}]}`,
			"invalid reduction operator",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileEntry(t, tt.doc, "e")

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Contains(t, compileErr.Message, tt.want)
		})
	}
}

func TestCompile_DefaultStepIsOne(t *testing.T) {
	doc := `comprehension: e: {kind: "list", element: "x", generators: [{"var": "x", range: {stop: 5}}]}`

	c, err := compileEntry(t, doc, "e")
	require.NoError(t, err)

	assert.Equal(t, ir.RangeSource{Start: 0, Stop: 5, Step: 1}, c.Generators[0].Source)
}
