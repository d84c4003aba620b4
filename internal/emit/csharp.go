package emit

import (
	"fmt"
	"strings"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// CSharp emits C# source for a comprehension.
//
// Safe-parallel idiom: PLINQ. The query turns parallel with one
// .AsParallel() adaptor and the runtime owns work distribution and
// result merging; lists additionally take .AsOrdered() so the merge
// preserves source order. Fallback: the same LINQ chain without the
// adaptor.
//
// Accepted options: parallel.
func CSharp(c *ir.Comprehension, plan classify.Plan, opts Options) (string, error) {
	rules := exprRules{
		and: "&&", or: "||", not: "!",
		trueLit: "true", falseLit: "false",
		pow: func(l, r string) string {
			return "(int)Math.Pow(" + l + ", " + r + ")"
		},
		floorDiv: func(l, r string) string { return l + " / " + r },
	}

	retType, err := csReturnType(c)
	if err != nil {
		return "", err
	}

	w := newWriter("    ")
	w.line("using System;")
	w.line("using System.Collections.Generic;")
	w.line("using System.Linq;")
	if plan.Safe {
		w.line("using System.Threading.Tasks;")
	}
	w.blank()
	w.line("public static class Program")
	w.line("{")
	w.in()
	w.line("public static %s Execute(%s)", retType, csParams(c))
	w.line("{")
	w.in()

	if len(c.Generators) == 1 {
		chain, err := csChain(c, c.Generators[0], plan, rules)
		if err != nil {
			return "", err
		}
		w.line("return %s;", chain)
	} else {
		if err := csNestedLoops(w, c, rules); err != nil {
			return "", err
		}
	}

	w.out()
	w.line("}")
	w.out()
	w.line("}")
	return w.String(), nil
}

func csElemType(expr string) string {
	if parts := tupleParts(expr); parts != nil {
		types := make([]string, len(parts))
		for i := range parts {
			types[i] = "int"
		}
		return "(" + strings.Join(types, ", ") + ")"
	}
	return "int"
}

func csElem(expr string, rules exprRules) string {
	if parts := tupleParts(expr); parts != nil {
		translated := make([]string, len(parts))
		for i, p := range parts {
			translated[i] = rules.translate(p)
		}
		return "(" + strings.Join(translated, ", ") + ")"
	}
	return rules.translate(expr)
}

func csReturnType(c *ir.Comprehension) (string, error) {
	switch c.Kind {
	case ir.KindList:
		return "List<" + csElemType(c.Element) + ">", nil
	case ir.KindSet:
		return "HashSet<" + csElemType(c.Element) + ">", nil
	case ir.KindDict:
		return "Dictionary<int, int>", nil
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount, ir.ReduceMax, ir.ReduceMin:
			return "int", nil
		case ir.ReduceAny, ir.ReduceAll:
			return "bool", nil
		default:
			return "", internalErr("csharp", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return "", internalErr("csharp", "unknown result kind %q", c.Kind)
	}
}

func csParams(c *ir.Comprehension) string {
	var params []string
	for _, gen := range c.Generators {
		if src, ok := gen.Source.(ir.OpaqueSource); ok {
			params = append(params, "int[] "+src.Name)
		}
	}
	return strings.Join(params, ", ")
}

func csRangeExpr(rng ir.RangeSource) string {
	if rng.Step == 1 {
		return fmt.Sprintf("Enumerable.Range(%d, %d)", rng.Start, rng.Count())
	}
	if rng.Step > 0 {
		return fmt.Sprintf("Enumerable.Range(0, %d).Select(i => %d + i * %d)", rng.Count(), rng.Start, rng.Step)
	}
	return fmt.Sprintf("Enumerable.Range(0, %d).Select(i => %d - i * %d)", rng.Count(), rng.Start, -rng.Step)
}

func csChain(c *ir.Comprehension, gen ir.Generator, plan classify.Plan, rules exprRules) (string, error) {
	var chain string
	switch src := gen.Source.(type) {
	case ir.RangeSource:
		chain = csRangeExpr(src)
	case ir.OpaqueSource:
		chain = src.Name
	}
	if plan.Safe {
		chain += ".AsParallel()"
		if c.Kind == ir.KindList {
			chain += ".AsOrdered()"
		}
	}

	for _, pred := range gen.Filters {
		chain += fmt.Sprintf(".Where(%s => %s)", gen.Var, rules.translate(string(pred)))
	}

	elem := csElem(c.Element, rules)
	switch c.Kind {
	case ir.KindList:
		if elem != gen.Var {
			chain += fmt.Sprintf(".Select(%s => %s)", gen.Var, elem)
		}
		chain += ".ToList()"
	case ir.KindSet:
		if elem != gen.Var {
			chain += fmt.Sprintf(".Select(%s => %s)", gen.Var, elem)
		}
		chain += ".ToHashSet()"
	case ir.KindDict:
		chain += fmt.Sprintf(".ToDictionary(%s => %s, %s => %s)", gen.Var, rules.translate(c.KeyExpr), gen.Var, elem)
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			chain += fmt.Sprintf(".Sum(%s => %s)", gen.Var, elem)
		case ir.ReduceCount:
			chain += ".Count()"
		case ir.ReduceMax:
			chain += fmt.Sprintf(".Max(%s => %s)", gen.Var, elem)
		case ir.ReduceMin:
			chain += fmt.Sprintf(".Min(%s => %s)", gen.Var, elem)
		case ir.ReduceAny:
			chain += fmt.Sprintf(".Any(%s => %s)", gen.Var, elem)
		case ir.ReduceAll:
			chain += fmt.Sprintf(".All(%s => %s)", gen.Var, elem)
		default:
			return "", internalErr("csharp", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return "", internalErr("csharp", "unknown result kind %q", c.Kind)
	}
	return chain, nil
}

func csNestedLoops(w *writer, c *ir.Comprehension, rules exprRules) error {
	elem := csElem(c.Element, rules)
	switch c.Kind {
	case ir.KindList:
		w.line("var result = new List<%s>();", csElemType(c.Element))
	case ir.KindSet:
		w.line("var result = new HashSet<%s>();", csElemType(c.Element))
	case ir.KindDict:
		w.line("var result = new Dictionary<int, int>();")
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount:
			w.line("var acc = 0;")
		case ir.ReduceMax:
			w.line("var acc = int.MinValue;")
		case ir.ReduceMin:
			w.line("var acc = int.MaxValue;")
		case ir.ReduceAny:
			w.line("var acc = false;")
		case ir.ReduceAll:
			w.line("var acc = true;")
		default:
			return internalErr("csharp", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return internalErr("csharp", "unknown result kind %q", c.Kind)
	}

	depth := 0
	for _, gen := range c.Generators {
		switch src := gen.Source.(type) {
		case ir.RangeSource:
			cmp, stepStmt := "<", gen.Var+"++"
			if src.Step < 0 {
				cmp = ">"
				stepStmt = fmt.Sprintf("%s -= %d", gen.Var, -src.Step)
			} else if src.Step != 1 {
				stepStmt = fmt.Sprintf("%s += %d", gen.Var, src.Step)
			}
			w.line("for (var %s = %d; %s %s %d; %s)", gen.Var, src.Start, gen.Var, cmp, src.Stop, stepStmt)
		case ir.OpaqueSource:
			w.line("foreach (var %s in %s)", gen.Var, src.Name)
		}
		w.line("{")
		w.in()
		depth++
		for _, pred := range gen.Filters {
			w.line("if (%s)", negate(rules.translate(string(pred))))
			w.line("{")
			w.in()
			w.line("continue;")
			w.out()
			w.line("}")
		}
	}

	switch c.Kind {
	case ir.KindList:
		w.line("result.Add(%s);", elem)
	case ir.KindSet:
		w.line("result.Add(%s);", elem)
	case ir.KindDict:
		w.line("result[%s] = %s;", rules.translate(c.KeyExpr), elem)
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			w.line("acc += %s;", elem)
		case ir.ReduceCount:
			w.line("acc++;")
		case ir.ReduceMax:
			w.line("acc = Math.Max(acc, %s);", elem)
		case ir.ReduceMin:
			w.line("acc = Math.Min(acc, %s);", elem)
		case ir.ReduceAny:
			w.line("acc = acc || (%s);", elem)
		case ir.ReduceAll:
			w.line("acc = acc && (%s);", elem)
		}
	}

	for ; depth > 0; depth-- {
		w.out()
		w.line("}")
	}

	if c.Kind == ir.KindReduce {
		w.line("return acc;")
	} else {
		w.line("return result;")
	}
	return nil
}
