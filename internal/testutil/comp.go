// Package testutil provides shared comprehension fixtures for tests.
package testutil

import (
	"testing"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/parser"
)

// MustParse parses comprehension source and fails the test on error.
func MustParse(t *testing.T, code string) *ir.Comprehension {
	t.Helper()
	c, err := parser.Parse(code)
	if err != nil {
		t.Fatalf("parse %q: %v", code, err)
	}
	return c
}

// EvenSquares is the canonical single-range shape:
// [x*x for x in range(10) if x%2==0].
func EvenSquares() *ir.Comprehension {
	return &ir.Comprehension{
		Kind:    ir.KindList,
		Element: "x * x",
		Generators: []ir.Generator{{
			Var:     "x",
			Source:  ir.RangeSource{Start: 0, Stop: 10, Step: 1},
			Filters: []ir.Predicate{"x % 2 == 0"},
		}},
	}
}

// PairProducts is the canonical nested shape:
// [(i,j) for i in range(1000) for j in range(1000) if i*j>500].
func PairProducts() *ir.Comprehension {
	return &ir.Comprehension{
		Kind:    ir.KindList,
		Element: "(i, j)",
		Generators: []ir.Generator{
			{Var: "i", Source: ir.RangeSource{Start: 0, Stop: 1000, Step: 1}},
			{Var: "j", Source: ir.RangeSource{Start: 0, Stop: 1000, Step: 1}, Filters: []ir.Predicate{"i * j > 500"}},
		},
	}
}

// SumEvenSquares is the canonical reduction shape:
// sum(i*i for i in range(1, 1000000) if i%2==0).
func SumEvenSquares() *ir.Comprehension {
	return &ir.Comprehension{
		Kind:    ir.KindReduce,
		Element: "i * i",
		Reduce:  ir.ReduceSum,
		Generators: []ir.Generator{{
			Var:     "i",
			Source:  ir.RangeSource{Start: 1, Stop: 1000000, Step: 1},
			Filters: []ir.Predicate{"i % 2 == 0"},
		}},
	}
}

// OpaqueFilter ranges over a named external collection:
// [x for x in items if x > 0].
func OpaqueFilter() *ir.Comprehension {
	return &ir.Comprehension{
		Kind:    ir.KindList,
		Element: "x",
		Generators: []ir.Generator{{
			Var:     "x",
			Source:  ir.OpaqueSource{Name: "items"},
			Filters: []ir.Predicate{"x > 0"},
		}},
	}
}
