package emit

import (
	"fmt"
	"strings"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// Rust emits Rust source for a comprehension.
//
// Safe-parallel idiom: a rayon parallel-iterator chain
// (into_par_iter -> filter -> map -> collect). Rayon's collect on an
// indexed parallel iterator preserves element order, which is what the
// index-preserving merge strategy requires for lists; reductions fold
// associatively. Fallback: the same chain without the rayon adaptor.
//
// Accepted options: parallel, int_type (element type, default i32).
func Rust(c *ir.Comprehension, plan classify.Plan, opts Options) (string, error) {
	intType := opts.String(OptIntType, "i32")
	rules := exprRules{
		and: "&&", or: "||", not: "!",
		trueLit: "true", falseLit: "false",
		pow:      func(l, r string) string { return l + ".pow(" + r + ")" },
		floorDiv: func(l, r string) string { return l + " / " + r },
	}

	retType, err := rustReturnType(c, intType)
	if err != nil {
		return "", err
	}

	w := newWriter("    ")
	rustImports(w, c, plan)

	params := rustParams(c, intType)
	w.line("fn program(%s) -> %s {", params, retType)
	w.in()

	gen, rng, isRange := singleRange(c)
	switch {
	case isRange:
		chain, err := rustChain(c, gen, rng, plan, rules, intType)
		if err != nil {
			return "", err
		}
		w.line("%s", chain)
	case len(c.Generators) == 1:
		// opaque source: sequential chain over the borrowed slice
		opaque := c.Generators[0].Source.(ir.OpaqueSource)
		chain, err := rustOpaqueChain(c, c.Generators[0], opaque, rules, intType)
		if err != nil {
			return "", err
		}
		w.line("%s", chain)
	default:
		if err := rustNestedLoops(w, c, rules, intType); err != nil {
			return "", err
		}
	}

	w.out()
	w.line("}")
	return w.String(), nil
}

func rustReturnType(c *ir.Comprehension, intType string) (string, error) {
	elemType := intType
	if parts := tupleParts(c.Element); parts != nil {
		types := make([]string, len(parts))
		for i := range parts {
			types[i] = intType
		}
		elemType = "(" + strings.Join(types, ", ") + ")"
	}

	switch c.Kind {
	case ir.KindList:
		return "Vec<" + elemType + ">", nil
	case ir.KindSet:
		return "HashSet<" + elemType + ">", nil
	case ir.KindDict:
		return fmt.Sprintf("HashMap<%s, %s>", intType, intType), nil
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount, ir.ReduceMax, ir.ReduceMin:
			return intType, nil
		case ir.ReduceAny, ir.ReduceAll:
			return "bool", nil
		default:
			return "", internalErr("rust", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return "", internalErr("rust", "unknown result kind %q", c.Kind)
	}
}

func rustImports(w *writer, c *ir.Comprehension, plan classify.Plan) {
	var imports []string
	switch c.Kind {
	case ir.KindSet:
		imports = append(imports, "use std::collections::HashSet;")
	case ir.KindDict:
		imports = append(imports, "use std::collections::HashMap;")
	}
	if plan.Safe {
		imports = append(imports, "use rayon::prelude::*;")
	}
	if len(imports) > 0 {
		for _, imp := range imports {
			w.line("%s", imp)
		}
		w.blank()
	}
}

// rustParams renders function parameters: one borrowed slice per
// opaque source, in generator order.
func rustParams(c *ir.Comprehension, intType string) string {
	var params []string
	for _, gen := range c.Generators {
		if src, ok := gen.Source.(ir.OpaqueSource); ok {
			params = append(params, fmt.Sprintf("%s: &[%s]", src.Name, intType))
		}
	}
	return strings.Join(params, ", ")
}

func rustRangeExpr(rng ir.RangeSource) string {
	if rng.Step == 1 {
		return fmt.Sprintf("(%d..%d)", rng.Start, rng.Stop)
	}
	if rng.Step > 1 {
		return fmt.Sprintf("(%d..%d).step_by(%d)", rng.Start, rng.Stop, rng.Step)
	}
	// negative step: iterate the mirrored inclusive range in reverse
	return fmt.Sprintf("(%d..=%d).rev().step_by(%d)", rng.Stop+1, rng.Start, -rng.Step)
}

func rustChain(c *ir.Comprehension, gen ir.Generator, rng ir.RangeSource, plan classify.Plan, rules exprRules, intType string) (string, error) {
	var chain string
	switch {
	case !plan.Safe:
		chain = rustRangeExpr(rng)
	case rng.Step == 1:
		chain = rustRangeExpr(rng) + ".into_par_iter()"
	default:
		// rayon implements IntoParallelIterator for bare ranges only,
		// not for step_by/rev adaptor chains, so a strided range
		// parallelizes over its index space
		idx := avoid("k", gen.Var)
		chain = fmt.Sprintf("(0..%d).into_par_iter().map(|%s| %s)", rng.Count(), idx, rustIndexToValue(rng, idx))
	}
	return rustFinishChain(c, gen, chain, rules, intType)
}

// rustIndexToValue maps a chunk index to the strided range value.
func rustIndexToValue(rng ir.RangeSource, idxVar string) string {
	switch {
	case rng.Step > 0 && rng.Start == 0:
		return fmt.Sprintf("%s * %d", idxVar, rng.Step)
	case rng.Step > 0:
		return fmt.Sprintf("%d + %s * %d", rng.Start, idxVar, rng.Step)
	default:
		return fmt.Sprintf("%d - %s * %d", rng.Start, idxVar, -rng.Step)
	}
}

func rustOpaqueChain(c *ir.Comprehension, gen ir.Generator, src ir.OpaqueSource, rules exprRules, intType string) (string, error) {
	return rustFinishChain(c, gen, src.Name+".iter().copied()", rules, intType)
}

func rustFinishChain(c *ir.Comprehension, gen ir.Generator, chain string, rules exprRules, intType string) (string, error) {
	for _, pred := range gen.Filters {
		chain += fmt.Sprintf(".filter(|&%s| %s)", gen.Var, rules.translate(string(pred)))
	}

	elem := rules.translate(c.Element)
	switch c.Kind {
	case ir.KindList, ir.KindSet:
		if elem != gen.Var {
			chain += fmt.Sprintf(".map(|%s| %s)", gen.Var, elem)
		}
		chain += ".collect()"
	case ir.KindDict:
		chain += fmt.Sprintf(".map(|%s| (%s, %s)).collect()", gen.Var, rules.translate(c.KeyExpr), elem)
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			chain += fmt.Sprintf(".map(|%s| %s).sum()", gen.Var, elem)
		case ir.ReduceCount:
			chain += fmt.Sprintf(".count() as %s", intType)
		case ir.ReduceMax:
			chain += fmt.Sprintf(".map(|%s| %s).max().unwrap_or(0)", gen.Var, elem)
		case ir.ReduceMin:
			chain += fmt.Sprintf(".map(|%s| %s).min().unwrap_or(0)", gen.Var, elem)
		case ir.ReduceAny:
			chain += fmt.Sprintf(".any(|%s| %s)", gen.Var, elem)
		case ir.ReduceAll:
			chain += fmt.Sprintf(".all(|%s| %s)", gen.Var, elem)
		default:
			return "", internalErr("rust", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return "", internalErr("rust", "unknown result kind %q", c.Kind)
	}
	return chain, nil
}

// rustNestedLoops emits explicit nested loops for multi-generator
// comprehensions. Nested shapes are never parallel (the classifier
// rejects them), so this path is always sequential.
func rustNestedLoops(w *writer, c *ir.Comprehension, rules exprRules, intType string) error {
	elem := rules.translate(c.Element)

	switch c.Kind {
	case ir.KindList:
		w.line("let mut result = Vec::new();")
	case ir.KindSet:
		w.line("let mut result = HashSet::new();")
	case ir.KindDict:
		w.line("let mut result = HashMap::new();")
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount:
			w.line("let mut acc = 0;")
		case ir.ReduceMax:
			w.line("let mut acc = %s::MIN;", intType)
		case ir.ReduceMin:
			w.line("let mut acc = %s::MAX;", intType)
		case ir.ReduceAny:
			w.line("let mut acc = false;")
		case ir.ReduceAll:
			w.line("let mut acc = true;")
		default:
			return internalErr("rust", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return internalErr("rust", "unknown result kind %q", c.Kind)
	}

	depth := 0
	for _, gen := range c.Generators {
		switch src := gen.Source.(type) {
		case ir.RangeSource:
			loopRange := rustRangeExpr(src)
			if src.Step == 1 {
				loopRange = fmt.Sprintf("%d..%d", src.Start, src.Stop)
			}
			w.line("for %s in %s {", gen.Var, loopRange)
		case ir.OpaqueSource:
			w.line("for %s in %s.iter().copied() {", gen.Var, src.Name)
		}
		w.in()
		depth++
		for _, pred := range gen.Filters {
			w.line("if %s {", negate(rules.translate(string(pred))))
			w.in()
			w.line("continue;")
			w.out()
			w.line("}")
		}
	}

	switch c.Kind {
	case ir.KindList:
		w.line("result.push(%s);", elem)
	case ir.KindSet:
		w.line("result.insert(%s);", elem)
	case ir.KindDict:
		w.line("result.insert(%s, %s);", rules.translate(c.KeyExpr), elem)
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			w.line("acc += %s;", elem)
		case ir.ReduceCount:
			w.line("acc += 1;")
		case ir.ReduceMax:
			w.line("acc = acc.max(%s);", elem)
		case ir.ReduceMin:
			w.line("acc = acc.min(%s);", elem)
		case ir.ReduceAny:
			w.line("acc = acc || %s;", elem)
		case ir.ReduceAll:
			w.line("acc = acc && %s;", elem)
		}
	}

	for ; depth > 0; depth-- {
		w.out()
		w.line("}")
	}

	if c.Kind == ir.KindReduce {
		w.line("acc")
	} else {
		w.line("result")
	}
	return nil
}
