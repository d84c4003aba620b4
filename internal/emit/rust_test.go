package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/testutil"
)

func TestRust_ParallelChain(t *testing.T) {
	c := testutil.EvenSquares()

	got, err := Rust(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	want := `use rayon::prelude::*;

fn program() -> Vec<i32> {
    (0..10).into_par_iter().filter(|&x| x % 2 == 0).map(|x| x * x).collect()
}
`
	assert.Equal(t, want, got)
}

func TestRust_SequentialChain(t *testing.T) {
	c := testutil.EvenSquares()

	got, err := Rust(c, classify.Classify(c, false), nil)
	require.NoError(t, err)

	want := `fn program() -> Vec<i32> {
    (0..10).filter(|&x| x % 2 == 0).map(|x| x * x).collect()
}
`
	assert.Equal(t, want, got)
}

func TestRust_IntTypeOption(t *testing.T) {
	c := testutil.EvenSquares()

	got, err := Rust(c, classify.Classify(c, true), Options{OptIntType: "i64"})
	require.NoError(t, err)

	assert.Contains(t, got, "-> Vec<i64>")
}

func TestRust_SumReduction(t *testing.T) {
	c := testutil.SumEvenSquares()

	got, err := Rust(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	assert.Contains(t, got, "use rayon::prelude::*;")
	assert.Contains(t, got, "(1..1000000).into_par_iter().filter(|&i| i % 2 == 0).map(|i| i * i).sum()")
}

func TestRust_OpaqueSource(t *testing.T) {
	c := testutil.OpaqueFilter()

	got, err := Rust(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	want := `fn program(items: &[i32]) -> Vec<i32> {
    items.iter().copied().filter(|&x| x > 0).collect()
}
`
	assert.Equal(t, want, got)
}

func TestRust_NestedLoops(t *testing.T) {
	c := testutil.PairProducts()

	got, err := Rust(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	want := `fn program() -> Vec<(i32, i32)> {
    let mut result = Vec::new();
    for i in 0..1000 {
        for j in 0..1000 {
            if !(i * j > 500) {
                continue;
            }
            result.push((i, j));
        }
    }
    result
}
`
	assert.Equal(t, want, got)
}

// step_by and rev are Iterator adaptors without rayon counterparts on
// the chain head; a strided range must parallelize over its index
// space instead.
func TestRust_ParallelSteppedRange(t *testing.T) {
	c := testutil.MustParse(t, "[x for x in range(0, 10, 2)]")

	got, err := Rust(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	assert.Contains(t, got, "(0..5).into_par_iter().map(|k| k * 2).collect()")
	assert.NotContains(t, got, ".step_by(2).into_par_iter()")
}

func TestRust_ParallelNegativeStepRange(t *testing.T) {
	c := testutil.MustParse(t, "[x*x for x in range(10, 0, -2)]")

	got, err := Rust(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	assert.Contains(t, got, "(0..5).into_par_iter().map(|k| 10 - k * 2).map(|x| x * x).collect()")
	assert.NotContains(t, got, ".rev()")
}

func TestRust_SequentialSteppedRange(t *testing.T) {
	c := testutil.MustParse(t, "[x for x in range(0, 10, 2)]")

	got, err := Rust(c, classify.Classify(c, false), nil)
	require.NoError(t, err)

	assert.Contains(t, got, "(0..10).step_by(2).collect()")
}

func TestRust_UnknownKindIsInternalError(t *testing.T) {
	c := testutil.EvenSquares()
	c.Kind = "tuple"

	_, err := Rust(c, classify.Plan{}, nil)

	var internal *CodegenInternalError
	require.ErrorAs(t, err, &internal)
	assert.Equal(t, "rust", internal.Backend)
}
