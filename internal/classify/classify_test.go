package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

func singleRangeComp(kind ir.Kind) *ir.Comprehension {
	c := &ir.Comprehension{
		Kind:    kind,
		Element: "x * x",
		Generators: []ir.Generator{{
			Var:    "x",
			Source: ir.RangeSource{Start: 0, Stop: 10, Step: 1},
		}},
	}
	if kind == ir.KindDict {
		c.KeyExpr = "x"
	}
	if kind == ir.KindReduce {
		c.Reduce = ir.ReduceSum
	}
	return c
}

func TestClassify_SingleRangeIsSafe(t *testing.T) {
	plan := Classify(singleRangeComp(ir.KindList), true)

	assert.True(t, plan.Safe)
	assert.Equal(t, ReasonSingleRangeGenerator, plan.Reason)
	assert.Equal(t, MergeIndexPreserving, plan.Merge)
	assert.Empty(t, plan.Combine)
}

func TestClassify_ParallelNotRequested(t *testing.T) {
	plan := Classify(singleRangeComp(ir.KindList), false)

	assert.False(t, plan.Safe)
	// shape classification still reported so the downgrade is observable
	assert.Equal(t, ReasonSingleRangeGenerator, plan.Reason)
	assert.Empty(t, plan.Merge)
}

func TestClassify_NestedGenerators(t *testing.T) {
	c := &ir.Comprehension{
		Kind:    ir.KindList,
		Element: "(i, j)",
		Generators: []ir.Generator{
			{Var: "i", Source: ir.RangeSource{Start: 0, Stop: 1000, Step: 1}},
			{Var: "j", Source: ir.RangeSource{Start: 0, Stop: 1000, Step: 1}},
		},
	}

	plan := Classify(c, true)

	assert.False(t, plan.Safe)
	assert.Equal(t, ReasonNestedGenerators, plan.Reason)
}

func TestClassify_OpaqueSource(t *testing.T) {
	c := &ir.Comprehension{
		Kind:    ir.KindList,
		Element: "x",
		Generators: []ir.Generator{{
			Var:    "x",
			Source: ir.OpaqueSource{Name: "items"},
		}},
	}

	plan := Classify(c, true)

	assert.False(t, plan.Safe)
	assert.Equal(t, ReasonOpaqueSource, plan.Reason)
}

func TestClassify_NestedBeatsOpaque(t *testing.T) {
	// priority order: nested generators are checked before opaque
	c := &ir.Comprehension{
		Kind:    ir.KindList,
		Element: "(i, x)",
		Generators: []ir.Generator{
			{Var: "i", Source: ir.RangeSource{Start: 0, Stop: 10, Step: 1}},
			{Var: "x", Source: ir.OpaqueSource{Name: "items"}},
		},
	}

	plan := Classify(c, true)

	assert.Equal(t, ReasonNestedGenerators, plan.Reason)
}

func TestClassify_MergeStrategyPerKind(t *testing.T) {
	tests := []struct {
		name    string
		kind    ir.Kind
		merge   MergeStrategy
		combine CombineRule
	}{
		{"list preserves order", ir.KindList, MergeIndexPreserving, ""},
		{"set shards", ir.KindSet, MergeUnorderedShard, CombineLastWriteWins},
		{"dict shards", ir.KindDict, MergeUnorderedShard, CombineLastWriteWins},
		{"reduce shards", ir.KindReduce, MergeUnorderedShard, CombineLastWriteWins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Classify(singleRangeComp(tt.kind), true)

			assert.True(t, plan.Safe)
			assert.Equal(t, tt.merge, plan.Merge)
			assert.Equal(t, tt.combine, plan.Combine)
		})
	}
}

func TestClassify_AllDeclaredReductionsAreSafe(t *testing.T) {
	for _, op := range []ir.ReduceOp{ir.ReduceSum, ir.ReduceCount, ir.ReduceMax, ir.ReduceMin, ir.ReduceAny, ir.ReduceAll} {
		c := singleRangeComp(ir.KindReduce)
		c.Reduce = op

		plan := Classify(c, true)

		assert.True(t, plan.Safe, "operator %s", op)
	}
}

func TestClassify_UnknownReductionFailsSafe(t *testing.T) {
	c := singleRangeComp(ir.KindReduce)
	c.Reduce = ir.ReduceOp("prod")

	plan := Classify(c, true)

	assert.False(t, plan.Safe)
	assert.Equal(t, ReasonUnsupportedReduction, plan.Reason)
}

func TestClassify_IsPure(t *testing.T) {
	c := singleRangeComp(ir.KindList)

	first := Classify(c, true)
	second := Classify(c, true)

	assert.Equal(t, first, second)
}
