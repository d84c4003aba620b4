package emit

import "github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"

// The shard-then-merge discipline is the one concurrency idiom every
// multi-worker backend shares: allocate one private accumulator per
// worker at region entry, let each worker write only its own slot, and
// fold the slots serially at region exit. The algebra below captures
// the target-independent part - the fold identity and the combine
// shape per reduction operator - so each emitter only supplies target
// literals and syntax.

// foldIdentity names the neutral element a reduction starts from.
type foldIdentity int

const (
	identZero   foldIdentity = iota // sum, count
	identMinInt                     // max
	identMaxInt                     // min
	identFalse                      // any
	identTrue                       // all
)

// foldCombine names how two partial results merge.
type foldCombine int

const (
	combineAdd foldCombine = iota // sum, count
	combineMax
	combineMin
	combineOr
	combineAnd
)

type reduceAlgebra struct {
	identity foldIdentity
	combine  foldCombine
	// boolean reductions fold the predicate value, not the element
	boolean bool
	// count folds the constant 1 per surviving element
	counts bool
}

// algebraFor returns the shard algebra for a reduction operator.
// The bool result is false for operators this table does not know,
// which emitters must surface as a CodegenInternalError.
func algebraFor(op ir.ReduceOp) (reduceAlgebra, bool) {
	switch op {
	case ir.ReduceSum:
		return reduceAlgebra{identity: identZero, combine: combineAdd}, true
	case ir.ReduceCount:
		return reduceAlgebra{identity: identZero, combine: combineAdd, counts: true}, true
	case ir.ReduceMax:
		return reduceAlgebra{identity: identMinInt, combine: combineMax}, true
	case ir.ReduceMin:
		return reduceAlgebra{identity: identMaxInt, combine: combineMin}, true
	case ir.ReduceAny:
		return reduceAlgebra{identity: identFalse, combine: combineOr, boolean: true}, true
	case ir.ReduceAll:
		return reduceAlgebra{identity: identTrue, combine: combineAnd, boolean: true}, true
	default:
		return reduceAlgebra{}, false
	}
}

// singleRange returns the sole generator's range when the comprehension
// has exactly one range-sourced generator - the only shape a parallel
// region is ever emitted for.
func singleRange(c *ir.Comprehension) (ir.Generator, ir.RangeSource, bool) {
	if len(c.Generators) != 1 {
		return ir.Generator{}, ir.RangeSource{}, false
	}
	gen := c.Generators[0]
	rng, ok := gen.Source.(ir.RangeSource)
	return gen, rng, ok
}
