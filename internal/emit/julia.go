package emit

import (
	"fmt"
	"strings"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// Julia emits Julia source for a comprehension.
//
// Safe-parallel idiom: Threads.@threads over chunk ids into a
// chunk-indexed shard array - shards[c] is written by exactly one
// thread - followed by a serial fold (reduce(vcat, ...), union!,
// merge!, or a partials fold). Fallback: a single-threaded loop.
//
// Accepted options:
//
//	parallel
//	mode     "loops" (default) or "broadcast"; broadcast lowers a
//	         simple single-range shape to mask indexing and applies
//	         only sequentially
//	unsafe   prefixes the hot loop with @inbounds; caller-explicit
//	         bounds-check trade-off, never default
//	explain  emits the launch hint comment above a threaded region
//	         (default true)
//	threads  fixes the chunk count instead of nthreads()
func Julia(c *ir.Comprehension, plan classify.Plan, opts Options) (string, error) {
	rules := exprRules{
		and: "&&", or: "||", not: "!",
		trueLit: "true", falseLit: "false",
		pow:      func(l, r string) string { return l + " ^ " + r },
		floorDiv: func(l, r string) string { return "div(" + l + ", " + r + ")" },
	}

	retType, err := jlReturnType(c)
	if err != nil {
		return "", err
	}

	w := newWriter("    ")
	if plan.Safe {
		w.line("using Base.Threads")
		w.blank()
	}
	w.line("function program(%s)::%s", jlParams(c), retType)
	w.in()

	gen, rng, isRange := singleRange(c)
	mode := opts.String(OptMode, "loops")
	switch {
	case isRange && plan.Safe:
		err = jlThreaded(w, c, gen, rng, opts)
	case isRange && mode == "broadcast" && jlBroadcastable(c):
		jlBroadcast(w, c, gen, rng, rules)
	case isRange:
		err = jlSequential(w, c, []ir.Generator{gen}, rules)
	default:
		err = jlSequential(w, c, c.Generators, rules)
	}
	if err != nil {
		return "", err
	}

	w.out()
	w.line("end")
	return w.String(), nil
}

func jlElemType(expr string) string {
	if parts := tupleParts(expr); parts != nil {
		types := make([]string, len(parts))
		for i := range parts {
			types[i] = "Int"
		}
		return "Tuple{" + strings.Join(types, ", ") + "}"
	}
	return "Int"
}

func jlReturnType(c *ir.Comprehension) (string, error) {
	switch c.Kind {
	case ir.KindList:
		return "Vector{" + jlElemType(c.Element) + "}", nil
	case ir.KindSet:
		return "Set{" + jlElemType(c.Element) + "}", nil
	case ir.KindDict:
		return "Dict{Int, Int}", nil
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount, ir.ReduceMax, ir.ReduceMin:
			return "Int", nil
		case ir.ReduceAny, ir.ReduceAll:
			return "Bool", nil
		default:
			return "", internalErr("julia", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return "", internalErr("julia", "unknown result kind %q", c.Kind)
	}
}

func jlParams(c *ir.Comprehension) string {
	var params []string
	for _, gen := range c.Generators {
		if src, ok := gen.Source.(ir.OpaqueSource); ok {
			params = append(params, src.Name+"::Vector{Int}")
		}
	}
	return strings.Join(params, ", ")
}

func jlRangeExpr(rng ir.RangeSource) string {
	last := rng.Stop - 1
	if rng.Step != 1 {
		// a:s:b includes b when it lands on the stride
		n := rng.Count()
		last = rng.Start + (n-1)*rng.Step
		return fmt.Sprintf("%d:%d:%d", rng.Start, rng.Step, last)
	}
	return fmt.Sprintf("%d:%d", rng.Start, last)
}

// jlSequential emits the single-threaded loop form for any generator
// shape.
func jlSequential(w *writer, c *ir.Comprehension, gens []ir.Generator, rules exprRules) error {
	elem := jlElem(c.Element, rules)
	switch c.Kind {
	case ir.KindList:
		w.line("result = %s[]", jlElemType(c.Element))
	case ir.KindSet:
		w.line("result = Set{%s}()", jlElemType(c.Element))
	case ir.KindDict:
		w.line("result = Dict{Int, Int}()")
	case ir.KindReduce:
		alg, ok := algebraFor(c.Reduce)
		if !ok {
			return internalErr("julia", "unknown reduction operator %q", c.Reduce)
		}
		w.line("result = %s", jlFoldIdentity(alg.identity))
	default:
		return internalErr("julia", "unknown result kind %q", c.Kind)
	}

	depth := 0
	for _, gen := range gens {
		switch src := gen.Source.(type) {
		case ir.RangeSource:
			w.line("for %s in %s", gen.Var, jlRangeExpr(src))
		case ir.OpaqueSource:
			w.line("for %s in %s", gen.Var, src.Name)
		}
		w.in()
		depth++
		for _, pred := range gen.Filters {
			w.line("if %s", negate(rules.translate(string(pred))))
			w.in()
			w.line("continue")
			w.out()
			w.line("end")
		}
	}

	jlUpdate(w, c, "result", elem, rules)

	for ; depth > 0; depth-- {
		w.out()
		w.line("end")
	}
	w.line("return result")
	return nil
}

// jlUpdate writes the per-element statement against the named
// accumulator. Reductions follow the shard algebra's combine rule, so
// the sequential loop and the threaded chunk body stay in step.
func jlUpdate(w *writer, c *ir.Comprehension, acc, elem string, rules exprRules) {
	switch c.Kind {
	case ir.KindList, ir.KindSet:
		w.line("push!(%s, %s)", acc, elem)
	case ir.KindDict:
		w.line("%s[%s] = %s", acc, rules.translate(c.KeyExpr), elem)
	case ir.KindReduce:
		alg, _ := algebraFor(c.Reduce)
		switch {
		case alg.counts:
			w.line("%s += 1", acc)
		case alg.combine == combineAdd:
			w.line("%s += %s", acc, elem)
		case alg.combine == combineMax:
			w.line("%s = max(%s, %s)", acc, acc, elem)
		case alg.combine == combineMin:
			w.line("%s = min(%s, %s)", acc, acc, elem)
		case alg.combine == combineOr:
			w.line("if %s", elem)
			w.in()
			w.line("%s = true", acc)
			w.out()
			w.line("end")
		case alg.combine == combineAnd:
			w.line("if %s", negate(elem))
			w.in()
			w.line("%s = false", acc)
			w.out()
			w.line("end")
		}
	}
}

func jlElem(expr string, rules exprRules) string {
	if parts := tupleParts(expr); parts != nil {
		translated := make([]string, len(parts))
		for i, p := range parts {
			translated[i] = rules.translate(p)
		}
		return "(" + strings.Join(translated, ", ") + ")"
	}
	return rules.translate(expr)
}

// jlThreaded emits the chunk-indexed shard region. Each thread owns
// shards[c] exclusively; no shared cell is written by two threads.
func jlThreaded(w *writer, c *ir.Comprehension, gen ir.Generator, rng ir.RangeSource, opts Options) error {
	rules := exprRules{
		and: "&&", or: "||", not: "!",
		trueLit: "true", falseLit: "false",
		pow:      func(l, r string) string { return l + " ^ " + r },
		floorDiv: func(l, r string) string { return "div(" + l + ", " + r + ")" },
	}
	elem := jlElem(c.Element, rules)

	var alg reduceAlgebra
	if c.Kind == ir.KindReduce {
		var ok bool
		if alg, ok = algebraFor(c.Reduce); !ok {
			return internalErr("julia", "unknown reduction operator %q", c.Reduce)
		}
	}

	if opts.BoolOr(OptExplain, true) {
		w.line("# launch with: julia --threads=N")
	}
	if threads := opts.Int(OptThreads, 0); threads > 0 {
		w.line("nchunks = %d", threads)
	} else {
		w.line("nchunks = nthreads()")
	}
	w.line("n = %d", rng.Count())

	switch c.Kind {
	case ir.KindList:
		w.line("shards = [%s[] for _ in 1:nchunks]", jlElemType(c.Element))
	case ir.KindSet:
		w.line("shards = [Set{%s}() for _ in 1:nchunks]", jlElemType(c.Element))
	case ir.KindDict:
		w.line("shards = [Dict{Int, Int}() for _ in 1:nchunks]")
	case ir.KindReduce:
		w.line("partials = fill(%s, nchunks)", jlFoldIdentity(alg.identity))
	default:
		return internalErr("julia", "unknown result kind %q", c.Kind)
	}

	chunkVar := avoid("c", gen.Var)
	idxVar := avoid("k", gen.Var)
	w.line("@threads for %s in 1:nchunks", chunkVar)
	w.in()
	w.line("lo = div((%s - 1) * n, nchunks) + 1", chunkVar)
	w.line("hi = div(%s * n, nchunks)", chunkVar)

	acc := "acc"
	switch c.Kind {
	case ir.KindList, ir.KindSet, ir.KindDict:
		w.line("acc = shards[%s]", chunkVar)
	case ir.KindReduce:
		w.line("acc = partials[%s]", chunkVar)
	}

	inbounds := ""
	if opts.Bool(OptUnsafe) {
		inbounds = "@inbounds "
	}
	w.line("%sfor %s in lo:hi", inbounds, idxVar)
	w.in()
	w.line("%s = %s", gen.Var, jlIndexToValue(rng, idxVar))
	for _, pred := range gen.Filters {
		w.line("if %s", negate(rules.translate(string(pred))))
		w.in()
		w.line("continue")
		w.out()
		w.line("end")
	}
	jlUpdate(w, c, acc, elem, rules)
	w.out()
	w.line("end")
	if c.Kind == ir.KindReduce {
		w.line("partials[%s] = acc", chunkVar)
	}
	w.out()
	w.line("end")

	switch c.Kind {
	case ir.KindList:
		// contiguous ascending chunks, so vcat preserves source order
		w.line("return reduce(vcat, shards)")
	case ir.KindSet:
		w.line("result = Set{%s}()", jlElemType(c.Element))
		w.line("for shard in shards")
		w.in()
		w.line("union!(result, shard)")
		w.out()
		w.line("end")
		w.line("return result")
	case ir.KindDict:
		// later shard wins on duplicate keys
		w.line("result = Dict{Int, Int}()")
		w.line("for shard in shards")
		w.in()
		w.line("merge!(result, shard)")
		w.out()
		w.line("end")
		w.line("return result")
	case ir.KindReduce:
		w.line("return %s(partials)", jlFoldMerge(alg.combine))
	}
	return nil
}

// jlFoldIdentity renders a fold identity literal.
func jlFoldIdentity(id foldIdentity) string {
	switch id {
	case identMinInt:
		return "typemin(Int)"
	case identMaxInt:
		return "typemax(Int)"
	case identFalse:
		return "false"
	case identTrue:
		return "true"
	default:
		return "0"
	}
}

// jlFoldMerge names the builtin that folds partials under a combine
// rule.
func jlFoldMerge(cb foldCombine) string {
	switch cb {
	case combineMax:
		return "maximum"
	case combineMin:
		return "minimum"
	case combineOr:
		return "any"
	case combineAnd:
		return "all"
	default:
		return "sum"
	}
}

// jlIndexToValue maps a 1-based chunk index to the range value.
func jlIndexToValue(rng ir.RangeSource, idxVar string) string {
	switch {
	case rng.Start == 0 && rng.Step == 1:
		return idxVar + " - 1"
	case rng.Step == 1:
		return fmt.Sprintf("%d + %s - 1", rng.Start, idxVar)
	default:
		return fmt.Sprintf("%d + (%s - 1) * %d", rng.Start, idxVar, rng.Step)
	}
}

// jlBroadcastable limits broadcast lowering to the shapes mask
// indexing can express: one range generator, scalar element, and a
// result kind with a vectorized form.
func jlBroadcastable(c *ir.Comprehension) bool {
	if len(c.Generators) != 1 || tupleParts(c.Element) != nil {
		return false
	}
	if c.Kind == ir.KindDict {
		return false
	}
	if c.Kind == ir.KindReduce {
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceMax, ir.ReduceMin, ir.ReduceAny, ir.ReduceAll, ir.ReduceCount:
		default:
			return false
		}
	}
	return true
}

// jlBroadcast emits the vectorized lowering: materialize the range,
// narrow it by a dotted mask per predicate, then map or fold in one
// expression.
func jlBroadcast(w *writer, c *ir.Comprehension, gen ir.Generator, rng ir.RangeSource, rules exprRules) {
	w.line("%s = %s", gen.Var, jlRangeExpr(rng))
	for _, pred := range gen.Filters {
		w.line("%s = %s[%s]", gen.Var, gen.Var, jlDotted(string(pred), rules))
	}

	elem := jlDotted(c.Element, rules)
	switch c.Kind {
	case ir.KindList:
		if elem == gen.Var {
			w.line("return collect(%s)", gen.Var)
		} else {
			w.line("return collect(%s)", elem)
		}
	case ir.KindSet:
		w.line("return Set(%s)", elem)
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			w.line("return sum(%s)", elem)
		case ir.ReduceCount:
			w.line("return length(%s)", gen.Var)
		case ir.ReduceMax:
			w.line("return maximum(%s)", elem)
		case ir.ReduceMin:
			w.line("return minimum(%s)", elem)
		case ir.ReduceAny:
			w.line("return any(%s)", elem)
		case ir.ReduceAll:
			w.line("return all(%s)", elem)
		}
	}
}

// jlDotted translates an expression and dots its binary operators so
// it broadcasts element-wise over the bound vector.
func jlDotted(expr string, rules exprRules) string {
	toks := tokenize(rules.translate(expr))
	for i, t := range toks {
		if t.kind != tokOp {
			continue
		}
		switch t.text {
		case "+", "-", "*", "/", "%", "^", "==", "!=", "<", "<=", ">", ">=":
			if t.text == "-" && isUnary(toks, i) {
				continue
			}
			toks[i] = token{tokOp, "." + t.text}
		}
	}
	return renderTokens(toks)
}
