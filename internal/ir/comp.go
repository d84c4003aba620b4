package ir

import "fmt"

// Kind identifies the result shape of a comprehension.
type Kind string

const (
	// KindList produces an ordered sequence.
	KindList Kind = "list"

	// KindSet produces an unordered collection of distinct elements.
	KindSet Kind = "set"

	// KindDict produces a key/value mapping. KeyExpr is required.
	KindDict Kind = "dict"

	// KindReduce folds elements into a scalar. Reduce is required.
	KindReduce Kind = "reduce"
)

// Valid reports whether k is a known result kind.
func (k Kind) Valid() bool {
	switch k {
	case KindList, KindSet, KindDict, KindReduce:
		return true
	}
	return false
}

// ReduceOp identifies a reduction operator.
//
// Every declared operator is associative and commutative, which is the
// precondition for folding shards independently and merging the partial
// results in any order.
type ReduceOp string

const (
	ReduceSum   ReduceOp = "sum"
	ReduceCount ReduceOp = "count"
	ReduceMax   ReduceOp = "max"
	ReduceMin   ReduceOp = "min"
	ReduceAny   ReduceOp = "any"
	ReduceAll   ReduceOp = "all"
)

// Valid reports whether op is a declared reduction operator.
func (op ReduceOp) Valid() bool {
	switch op {
	case ReduceSum, ReduceCount, ReduceMax, ReduceMin, ReduceAny, ReduceAll:
		return true
	}
	return false
}

// Associative reports whether op may be folded per-shard and merged.
// Unknown operators report false so that future additions fail safe
// (sequential) rather than fail silently incorrect.
func (op ReduceOp) Associative() bool {
	return op.Valid()
}

// Predicate is one boolean conjunct over in-scope bound variables.
// A generator's filters are always a flat conjunction of Predicates;
// chained comparisons are split into pairwise conjuncts before the IR
// is constructed.
type Predicate string

// Source is the sealed union of generator sources.
// Only RangeSource and OpaqueSource implement it.
type Source interface {
	sourceNode() // marker - seals the interface to this package
}

// RangeSource is a source with statically known start/stop/step.
// Cardinality and random access are known at generation time, which is
// what makes static chunking safe.
//
// The range is half-open: it yields start, start+step, ... while the
// value is below stop (above stop for negative steps), matching the
// semantics of a Python range.
type RangeSource struct {
	Start int64
	Stop  int64
	Step  int64
}

func (RangeSource) sourceNode() {}

// Count returns the number of elements the range yields.
func (r RangeSource) Count() int64 {
	if r.Step == 0 {
		return 0
	}
	if r.Step > 0 {
		if r.Stop <= r.Start {
			return 0
		}
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	}
	if r.Stop >= r.Start {
		return 0
	}
	return (r.Start - r.Stop + (-r.Step) - 1) / (-r.Step)
}

// OpaqueSource names an externally supplied collection whose
// cardinality and access pattern are unknown at generation time.
type OpaqueSource struct {
	Name string
}

func (OpaqueSource) sourceNode() {}

// Generator is one for-clause: a bound variable ranging over a source,
// filtered by a flat conjunction of predicates.
type Generator struct {
	Var     string
	Source  Source
	Filters []Predicate
}

// Comprehension is the root IR node.
//
// Element is the element expression; for dict comprehensions it is the
// value side and KeyExpr is the key side. Reduce is set only when Kind
// is KindReduce. Origin records where the node came from (parser form
// or document label) and does not affect emission.
type Comprehension struct {
	Kind       Kind
	Element    string
	KeyExpr    string
	Reduce     ReduceOp
	Generators []Generator
	Origin     string
}

// Validate checks the structural invariants a well-formed IR document
// must satisfy. It is called at document-load boundaries (parser,
// compiler); the render path assumes an already-valid node and never
// re-validates scoping.
func (c *Comprehension) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("invalid result kind %q", c.Kind)
	}
	if len(c.Generators) == 0 {
		return fmt.Errorf("comprehension requires at least one generator")
	}
	if c.Element == "" {
		return fmt.Errorf("comprehension requires an element expression")
	}
	if c.Kind == KindDict && c.KeyExpr == "" {
		return fmt.Errorf("dict comprehension requires a key expression")
	}
	if c.Kind != KindDict && c.KeyExpr != "" {
		return fmt.Errorf("key expression is only valid for dict comprehensions")
	}
	if c.Kind == KindReduce && !c.Reduce.Valid() {
		return fmt.Errorf("invalid reduction operator %q", c.Reduce)
	}
	if c.Kind != KindReduce && c.Reduce != "" {
		return fmt.Errorf("reduction operator is only valid for reduce comprehensions")
	}
	for i, gen := range c.Generators {
		if gen.Var == "" {
			return fmt.Errorf("generator %d: missing bound variable", i)
		}
		switch src := gen.Source.(type) {
		case RangeSource:
			if src.Step == 0 {
				return fmt.Errorf("generator %d: range step must be non-zero", i)
			}
		case OpaqueSource:
			if src.Name == "" {
				return fmt.Errorf("generator %d: opaque source requires a name", i)
			}
		default:
			return fmt.Errorf("generator %d: unknown source type %T", i, gen.Source)
		}
		for j, p := range gen.Filters {
			if p == "" {
				return fmt.Errorf("generator %d: predicate %d is empty", i, j)
			}
		}
	}
	return nil
}
