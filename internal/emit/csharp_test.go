package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/testutil"
)

func TestCSharp_ParallelListIsOrdered(t *testing.T) {
	c := testutil.EvenSquares()

	got, err := CSharp(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	want := `using System;
using System.Collections.Generic;
using System.Linq;
using System.Threading.Tasks;

public static class Program
{
    public static List<int> Execute()
    {
        return Enumerable.Range(0, 10).AsParallel().AsOrdered().Where(x => x % 2 == 0).Select(x => x * x).ToList();
    }
}
`
	assert.Equal(t, want, got)
}

func TestCSharp_Sequential(t *testing.T) {
	c := testutil.EvenSquares()

	got, err := CSharp(c, classify.Classify(c, false), nil)
	require.NoError(t, err)

	assert.NotContains(t, got, "AsParallel")
	assert.NotContains(t, got, "using System.Threading.Tasks;")
	assert.Contains(t, got, "return Enumerable.Range(0, 10).Where(x => x % 2 == 0).Select(x => x * x).ToList();")
}

func TestCSharp_ParallelReductionUnordered(t *testing.T) {
	c := testutil.SumEvenSquares()

	got, err := CSharp(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	// reductions fold associatively, no ordering adaptor
	assert.Contains(t, got, "Enumerable.Range(1, 999999).AsParallel().Where(i => i % 2 == 0).Sum(i => i * i)")
	assert.NotContains(t, got, "AsOrdered")
}

func TestCSharp_StridedRange(t *testing.T) {
	c := testutil.MustParse(t, "[x for x in range(0, 100, 3)]")

	got, err := CSharp(c, classify.Classify(c, false), nil)
	require.NoError(t, err)

	assert.Contains(t, got, "Enumerable.Range(0, 34).Select(i => 0 + i * 3)")
}

func TestCSharp_DictAndSet(t *testing.T) {
	dict := testutil.MustParse(t, "{x: x*x for x in range(5)}")
	got, err := CSharp(dict, classify.Classify(dict, false), nil)
	require.NoError(t, err)
	assert.Contains(t, got, ".ToDictionary(x => x, x => x * x)")

	set := testutil.MustParse(t, "{x % 5 for x in range(100)}")
	got, err = CSharp(set, classify.Classify(set, false), nil)
	require.NoError(t, err)
	assert.Contains(t, got, ".Select(x => x % 5).ToHashSet()")
}

func TestCSharp_NestedLoops(t *testing.T) {
	c := testutil.PairProducts()

	got, err := CSharp(c, classify.Classify(c, true), nil)
	require.NoError(t, err)

	assert.Contains(t, got, "var result = new List<(int, int)>();")
	assert.Contains(t, got, "for (var i = 0; i < 1000; i++)")
	assert.Contains(t, got, "result.Add((i, j));")
	assert.NotContains(t, got, "AsParallel")
}

func TestCSharp_Pow(t *testing.T) {
	c := testutil.MustParse(t, "[x ** 2 for x in range(10)]")

	got, err := CSharp(c, classify.Classify(c, false), nil)
	require.NoError(t, err)

	assert.Contains(t, got, "(int)Math.Pow(x, 2)")
}
