// Package classify decides whether a comprehension may be executed
// concurrently without changing its observable result.
//
// The decision is a property of the IR shape alone: it is identical for
// every backend, and a backend may ignore a safe plan (SQL has no
// user-visible concurrency) but must never contradict an unsafe one.
package classify

import (
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// Reason records the shape classification behind a plan.
//
// The reason always describes the shape, independent of the requested
// flag: a plan for a safe shape with parallel not requested reports
// ReasonSingleRangeGenerator with Safe=false, which keeps the downgrade
// observable for callers and tests.
type Reason string

const (
	// ReasonSingleRangeGenerator: one generator over a statically
	// known range. The only shape eligible for parallel execution.
	ReasonSingleRangeGenerator Reason = "single_range_generator"

	// ReasonNestedGenerators: more than one generator. Chunking an
	// outer generator independently either breaks the closure-capture
	// dependency between clauses or requires a cross-product chunking
	// scheme with unbounded memory cost; neither is ever attempted.
	ReasonNestedGenerators Reason = "nested_generators"

	// ReasonOpaqueSource: the generator ranges over a named external
	// collection. Static chunking needs known cardinality and random
	// access, neither of which an opaque source guarantees.
	ReasonOpaqueSource Reason = "opaque_source"

	// ReasonUnsupportedReduction: the reduction operator is not known
	// to be associative/commutative. Currently vacuous, since every
	// declared operator qualifies; the check exists so future operator
	// additions fail safe rather than fail silently incorrect.
	ReasonUnsupportedReduction Reason = "unsupported_reduction"
)

// MergeStrategy names how per-worker partial results are combined.
type MergeStrategy string

const (
	// MergeIndexPreserving reassembles contiguous worker chunks in
	// index order, reproducing the exact sequential element order.
	// Required for list results.
	MergeIndexPreserving MergeStrategy = "index_preserving_collect"

	// MergeUnorderedShard combines per-worker shards in a single
	// serial pass applying the combine rule. Order across shards is
	// not significant for set, dict, and reduction results.
	MergeUnorderedShard MergeStrategy = "unordered_shard_merge"
)

// CombineRule names how duplicate keys across shards are resolved
// during an unordered merge.
type CombineRule string

// CombineLastWriteWins keeps the value from the latest-merged shard.
// Which write is "last" across concurrently scheduled shards depends on
// shard order, so for duplicate keys produced by different shards the
// winning value matches the sequential result only per merge pass, not
// across thread schedules. This is the documented default.
const CombineLastWriteWins CombineRule = "last_write_wins"

// Plan is the classifier's verdict, constructed fresh per render call,
// consumed once by the chosen emitter, and never cached.
type Plan struct {
	// Safe reports that concurrent execution preserves the sequential
	// result AND that the caller requested parallel execution.
	Safe bool

	// Reason is the shape classification (see Reason docs).
	Reason Reason

	// Merge is set only when Safe.
	Merge MergeStrategy

	// Combine is set only when Merge is MergeUnorderedShard.
	Combine CombineRule
}

// Classify inspects a comprehension and the requested-parallel flag and
// returns the execution plan. Pure function: no I/O, no allocation
// beyond the returned Plan.
//
// Shape classification is always computed, but a non-parallel request
// always yields the sequential path regardless of shape: the rule is
// user intent AND shape, kept fully explicit rather than shape-only.
func Classify(c *ir.Comprehension, requestedParallel bool) Plan {
	reason, shapeSafe := classifyShape(c)
	if !shapeSafe || !requestedParallel {
		return Plan{Safe: false, Reason: reason}
	}

	plan := Plan{Safe: true, Reason: reason}
	if c.Kind == ir.KindList {
		plan.Merge = MergeIndexPreserving
	} else {
		plan.Merge = MergeUnorderedShard
		plan.Combine = CombineLastWriteWins
	}
	return plan
}

// classifyShape applies the shape rules in priority order.
func classifyShape(c *ir.Comprehension) (Reason, bool) {
	if len(c.Generators) > 1 {
		return ReasonNestedGenerators, false
	}
	if len(c.Generators) == 1 {
		if _, opaque := c.Generators[0].Source.(ir.OpaqueSource); opaque {
			return ReasonOpaqueSource, false
		}
	}
	if c.Kind == ir.KindReduce && !c.Reduce.Associative() {
		return ReasonUnsupportedReduction, false
	}
	return ReasonSingleRangeGenerator, true
}
