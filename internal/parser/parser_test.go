package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

func TestParse_ListComprehension(t *testing.T) {
	c, err := Parse("[x*x for x in range(10) if x%2==0]")
	require.NoError(t, err)

	assert.Equal(t, ir.KindList, c.Kind)
	assert.Equal(t, "x*x", c.Element)
	require.Len(t, c.Generators, 1)
	gen := c.Generators[0]
	assert.Equal(t, "x", gen.Var)
	assert.Equal(t, ir.RangeSource{Start: 0, Stop: 10, Step: 1}, gen.Source)
	assert.Equal(t, []ir.Predicate{"x%2==0"}, gen.Filters)
	assert.Equal(t, "list_comp", c.Origin)
}

func TestParse_SetComprehension(t *testing.T) {
	c, err := Parse("{x % 5 for x in range(100)}")
	require.NoError(t, err)

	assert.Equal(t, ir.KindSet, c.Kind)
	assert.Equal(t, "x % 5", c.Element)
	assert.Empty(t, c.KeyExpr)
}

func TestParse_DictComprehension(t *testing.T) {
	c, err := Parse("{x: x*x for x in range(10)}")
	require.NoError(t, err)

	assert.Equal(t, ir.KindDict, c.Kind)
	assert.Equal(t, "x", c.KeyExpr)
	assert.Equal(t, "x*x", c.Element)
}

func TestParse_Reductions(t *testing.T) {
	tests := []struct {
		code string
		op   ir.ReduceOp
	}{
		{"sum(i*i for i in range(1,1000000) if i%2==0)", ir.ReduceSum},
		{"count(x for x in range(10))", ir.ReduceCount},
		{"max(x for x in range(10))", ir.ReduceMax},
		{"min(x for x in range(10))", ir.ReduceMin},
		{"any(x > 5 for x in range(10))", ir.ReduceAny},
		{"all(x >= 0 for x in range(10))", ir.ReduceAll},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			c, err := Parse(tt.code)
			require.NoError(t, err)
			assert.Equal(t, ir.KindReduce, c.Kind)
			assert.Equal(t, tt.op, c.Reduce)
		})
	}
}

func TestParse_RangeForms(t *testing.T) {
	tests := []struct {
		code string
		want ir.RangeSource
	}{
		{"[x for x in range(10)]", ir.RangeSource{Start: 0, Stop: 10, Step: 1}},
		{"[x for x in range(1, 10)]", ir.RangeSource{Start: 1, Stop: 10, Step: 1}},
		{"[x for x in range(0, 100, 3)]", ir.RangeSource{Start: 0, Stop: 100, Step: 3}},
		{"[x for x in range(10, 0, -2)]", ir.RangeSource{Start: 10, Stop: 0, Step: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, err := Parse(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Generators[0].Source)
		})
	}
}

func TestParse_OpaqueSource(t *testing.T) {
	c, err := Parse("[x for x in items if x > 0]")
	require.NoError(t, err)

	assert.Equal(t, ir.OpaqueSource{Name: "items"}, c.Generators[0].Source)
}

func TestParse_NestedGenerators(t *testing.T) {
	c, err := Parse("[(i,j) for i in range(1000) for j in range(1000) if i*j>500]")
	require.NoError(t, err)

	require.Len(t, c.Generators, 2)
	assert.Equal(t, "(i,j)", c.Element)
	assert.Equal(t, "i", c.Generators[0].Var)
	assert.Equal(t, "j", c.Generators[1].Var)
	assert.Empty(t, c.Generators[0].Filters)
	assert.Equal(t, []ir.Predicate{"i*j>500"}, c.Generators[1].Filters)
}

func TestParse_MultipleIfClauses(t *testing.T) {
	c, err := Parse("[x for x in range(10) if x%2==0 if x>2]")
	require.NoError(t, err)

	assert.Equal(t, []ir.Predicate{"x%2==0", "x>2"}, c.Generators[0].Filters)
}

func TestParse_ChainedComparisonNormalized(t *testing.T) {
	c, err := Parse("[x for x in range(100) if 10 <= x <= 20]")
	require.NoError(t, err)

	assert.Equal(t, []ir.Predicate{"10 <= x", "x <= 20"}, c.Generators[0].Filters)
}

func TestParse_AndConjunctionSplit(t *testing.T) {
	c, err := Parse("[x for x in range(100) if x%2==0 and x>4]")
	require.NoError(t, err)

	assert.Equal(t, []ir.Predicate{"x%2==0", "x>4"}, c.Generators[0].Filters)
}

func TestParse_OrConjunctKeptWhole(t *testing.T) {
	c, err := Parse("[x for x in range(100) if x<3 or x>90]")
	require.NoError(t, err)

	assert.Equal(t, []ir.Predicate{"x<3 or x>90"}, c.Generators[0].Filters)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"empty input", "", "expected a comprehension"},
		{"unknown call", "prod(x for x in range(10))", "expected a comprehension"},
		{"missing for", "[x in range(10)]", "expected 'for'"},
		{"missing in", "[x for x range(10)]", "expected 'in'"},
		{"missing close", "[x for x in range(10)", `expected "]"`},
		{"zero step", "[x for x in range(0, 10, 0)]", "step must be non-zero"},
		{"too many args", "[x for x in range(1, 2, 3, 4)]", "range expects 1-3 arguments"},
		{"non-constant range", "[x for x in range(n)]", "expected integer literal"},
		{"trailing garbage", "[x for x in range(10)] tail", "unexpected trailing input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.code)
			require.Error(t, err)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Contains(t, parseErr.Error(), tt.want)
		})
	}
}

func TestParse_ErrorCarriesOffset(t *testing.T) {
	_, err := Parse("[x for x in range(10)")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, len("[x for x in range(10)"), parseErr.Offset)
}
