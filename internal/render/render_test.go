package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/emit"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/testutil"
)

func TestRender_UnknownBackend(t *testing.T) {
	_, err := Render("cobol", testutil.EvenSquares(), nil)

	var unknown *UnknownBackendError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "cobol", unknown.Target)
	assert.Equal(t, Backends(), unknown.Known)
	assert.Contains(t, err.Error(), `unknown backend "cobol"`)
}

// Unknown or irrelevant option keys are dropped by the capability
// filter, never errored on.
func TestRender_JunkOptionsNeverError(t *testing.T) {
	junk := emit.Options{
		"frobnicate": true,
		"parallel":   true,
		"dialect":    "postgres",
		"int_type":   "i64",
		"threads":    4,
		"watermelon": "ripe",
		"mode":       "broadcast",
	}
	for _, target := range Backends() {
		t.Run(target, func(t *testing.T) {
			_, err := Render(target, testutil.EvenSquares(), junk)
			assert.NoError(t, err)
		})
	}
}

func TestRenderPlan_ExposesClassification(t *testing.T) {
	_, plan, err := RenderPlan(BackendRust, testutil.EvenSquares(), emit.Options{emit.OptParallel: true})
	require.NoError(t, err)

	assert.True(t, plan.Safe)
	assert.Equal(t, classify.ReasonSingleRangeGenerator, plan.Reason)
}

func TestRenderPlan_NestedDowngrades(t *testing.T) {
	text, plan, err := RenderPlan(BackendGo, testutil.PairProducts(), emit.Options{emit.OptParallel: true})
	require.NoError(t, err)

	assert.False(t, plan.Safe)
	assert.Equal(t, classify.ReasonNestedGenerators, plan.Reason)
	assert.NotContains(t, text, "go func")
}

// SQL never accepts parallel: the request is filtered out before
// classification, so the plan itself reports Safe false and the text
// is identical with and without the flag.
func TestRender_SQLParallelIsUniformNoOp(t *testing.T) {
	c := testutil.EvenSquares()

	withFlag, plan, err := RenderPlan(BackendSQL, c, emit.Options{emit.OptParallel: true})
	require.NoError(t, err)
	without, _, err := RenderPlan(BackendSQL, c, nil)
	require.NoError(t, err)

	assert.False(t, plan.Safe)
	assert.Equal(t, without, withFlag)
}

func TestRender_FallbackIdentityAcrossBackends(t *testing.T) {
	for _, target := range Backends() {
		t.Run(target, func(t *testing.T) {
			c := testutil.PairProducts()

			requested, err := Render(target, c, emit.Options{emit.OptParallel: true})
			require.NoError(t, err)
			absent, err := Render(target, c, nil)
			require.NoError(t, err)

			assert.Equal(t, absent, requested)
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	opts := emit.Options{emit.OptParallel: true, emit.OptDialect: "postgres"}
	for _, target := range Backends() {
		t.Run(target, func(t *testing.T) {
			c := testutil.SumEvenSquares()

			first, err := Render(target, c, opts)
			require.NoError(t, err)
			second, err := Render(target, c, opts)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestAcceptedOptions(t *testing.T) {
	tests := []struct {
		target string
		want   []string
	}{
		{BackendRust, []string{emit.OptParallel, emit.OptIntType}},
		{BackendGo, []string{emit.OptParallel}},
		{BackendTS, []string{emit.OptParallel}},
		{BackendCSharp, []string{emit.OptParallel}},
		{BackendJulia, []string{emit.OptParallel, emit.OptMode, emit.OptUnsafe, emit.OptExplain, emit.OptThreads}},
		{BackendSQL, []string{emit.OptDialect, emit.OptExplain}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, ok := AcceptedOptions(tt.target)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := AcceptedOptions("cobol")
	assert.False(t, ok)
}

// Every id from Backends renders every fixture without error.
func TestRender_AllBackendsAllShapes(t *testing.T) {
	shapes := map[string]func() *ir.Comprehension{
		"even squares": testutil.EvenSquares,
		"pair products": testutil.PairProducts,
		"sum":           testutil.SumEvenSquares,
		"opaque":        testutil.OpaqueFilter,
	}
	for _, target := range Backends() {
		for name, comp := range shapes {
			t.Run(target+"/"+name, func(t *testing.T) {
				text, err := Render(target, comp(), emit.Options{emit.OptParallel: true})
				require.NoError(t, err)
				assert.NotEmpty(t, text)
			})
		}
	}
}
