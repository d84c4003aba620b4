package emit

import (
	"fmt"
	"strings"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// TypeScript emits TypeScript source for a comprehension.
//
// The event loop has no in-process multi-core fan-out, so "parallel"
// here means delegating the whole computation to one Web Worker and
// returning a Promise. The worker body is exactly the sequential
// computation; there is no sharding and therefore nothing to merge.
// Fallback: the same computation inline, synchronous return type.
//
// Accepted options: parallel.
func TypeScript(c *ir.Comprehension, plan classify.Plan, opts Options) (string, error) {
	rules := exprRules{
		and: "&&", or: "||", not: "!",
		trueLit: "true", falseLit: "false",
		eq: "===", neq: "!==",
		floorDiv: func(l, r string) string { return "Math.floor(" + l + " / " + r + ")" },
	}

	retType, err := tsReturnType(c)
	if err != nil {
		return "", err
	}

	body := newWriter("    ")
	body.in()
	if err := tsBody(body, c, rules); err != nil {
		return "", err
	}

	w := newWriter("    ")
	if plan.Safe {
		// the worker source is inlined as a template literal and
		// instantiated through a Blob URL, so the emitted file stays
		// self-contained
		w.line("%s", "const workerCode = `")
		w.line("self.onmessage = () => {")
		inner := newWriter("    ")
		inner.in()
		if err := tsBody(inner, c, rules); err != nil {
			return "", err
		}
		w.buf.WriteString(tsReturnToPost(inner.String()))
		w.line("};")
		w.line("%s", "`;")
		w.blank()
		w.line("function program(%s): Promise<%s> {", tsParams(c), retType)
		w.in()
		w.line("return new Promise(resolve => {")
		w.in()
		w.line(`const worker = new Worker(URL.createObjectURL(new Blob([workerCode], { type: "application/javascript" })));`)
		w.line("worker.onmessage = e => {")
		w.in()
		w.line("worker.terminate();")
		w.line("resolve(e.data);")
		w.out()
		w.line("};")
		w.line("worker.postMessage(null);")
		w.out()
		w.line("});")
		w.out()
		w.line("}")
		return w.String(), nil
	}

	w.line("function program(%s): %s {", tsParams(c), retType)
	w.buf.WriteString(body.String())
	w.line("}")
	return w.String(), nil
}

// tsReturnToPost rewrites the body's return statements into
// postMessage calls for the worker variant.
func tsReturnToPost(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if !strings.HasPrefix(trimmed, "return ") {
			continue
		}
		indent := line[:len(line)-len(trimmed)]
		expr := strings.TrimSuffix(strings.TrimPrefix(trimmed, "return "), ";")
		lines[i] = indent + "self.postMessage(" + expr + ");"
	}
	return strings.Join(lines, "\n")
}

func tsElemType(expr string) string {
	if parts := tupleParts(expr); parts != nil {
		types := make([]string, len(parts))
		for i := range parts {
			types[i] = "number"
		}
		return "[" + strings.Join(types, ", ") + "]"
	}
	return "number"
}

func tsElem(expr string, rules exprRules) string {
	if parts := tupleParts(expr); parts != nil {
		translated := make([]string, len(parts))
		for i, p := range parts {
			translated[i] = rules.translate(p)
		}
		return "[" + strings.Join(translated, ", ") + "]"
	}
	return rules.translate(expr)
}

func tsReturnType(c *ir.Comprehension) (string, error) {
	switch c.Kind {
	case ir.KindList:
		return tsElemType(c.Element) + "[]", nil
	case ir.KindSet:
		return "Set<" + tsElemType(c.Element) + ">", nil
	case ir.KindDict:
		return "Map<number, number>", nil
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount, ir.ReduceMax, ir.ReduceMin:
			return "number", nil
		case ir.ReduceAny, ir.ReduceAll:
			return "boolean", nil
		default:
			return "", internalErr("ts", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return "", internalErr("ts", "unknown result kind %q", c.Kind)
	}
}

func tsParams(c *ir.Comprehension) string {
	var params []string
	for _, gen := range c.Generators {
		if src, ok := gen.Source.(ir.OpaqueSource); ok {
			params = append(params, src.Name+": number[]")
		}
	}
	return strings.Join(params, ", ")
}

// tsRangeExpr materializes a static range as an array.
func tsRangeExpr(rng ir.RangeSource) string {
	if rng.Start == 0 && rng.Step == 1 {
		return fmt.Sprintf("Array.from({ length: %d }, (_, i) => i)", rng.Count())
	}
	if rng.Step == 1 {
		return fmt.Sprintf("Array.from({ length: %d }, (_, i) => %d + i)", rng.Count(), rng.Start)
	}
	return fmt.Sprintf("Array.from({ length: %d }, (_, i) => %d + i * %d)", rng.Count(), rng.Start, rng.Step)
}

// tsBody writes the computation and its return statement. The same
// body serves the inline function and the worker (where the return is
// rewritten into a postMessage).
func tsBody(w *writer, c *ir.Comprehension, rules exprRules) error {
	if len(c.Generators) == 1 {
		return tsChainBody(w, c, c.Generators[0], rules)
	}
	return tsNestedLoops(w, c, rules)
}

func tsChainBody(w *writer, c *ir.Comprehension, gen ir.Generator, rules exprRules) error {
	var chain string
	switch src := gen.Source.(type) {
	case ir.RangeSource:
		chain = tsRangeExpr(src)
	case ir.OpaqueSource:
		chain = src.Name
	}
	for _, pred := range gen.Filters {
		chain += fmt.Sprintf(".filter(%s => %s)", gen.Var, rules.translate(string(pred)))
	}

	elem := tsElem(c.Element, rules)
	switch c.Kind {
	case ir.KindList:
		if elem != gen.Var {
			chain += fmt.Sprintf(".map(%s => %s)", gen.Var, elem)
		}
	case ir.KindSet:
		if elem != gen.Var {
			chain += fmt.Sprintf(".map(%s => %s)", gen.Var, elem)
		}
		chain = fmt.Sprintf("new Set<%s>(%s)", tsElemType(c.Element), chain)
	case ir.KindDict:
		chain += fmt.Sprintf(".map(%s => [%s, %s] as [number, number])", gen.Var, rules.translate(c.KeyExpr), elem)
		chain = "new Map<number, number>(" + chain + ")"
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			chain += fmt.Sprintf(".reduce((acc, %s) => acc + (%s), 0)", gen.Var, elem)
		case ir.ReduceCount:
			chain += ".length"
		case ir.ReduceMax:
			chain += fmt.Sprintf(".reduce((acc, %s) => Math.max(acc, %s), -Infinity)", gen.Var, elem)
		case ir.ReduceMin:
			chain += fmt.Sprintf(".reduce((acc, %s) => Math.min(acc, %s), Infinity)", gen.Var, elem)
		case ir.ReduceAny:
			chain += fmt.Sprintf(".some(%s => %s)", gen.Var, elem)
		case ir.ReduceAll:
			chain += fmt.Sprintf(".every(%s => %s)", gen.Var, elem)
		default:
			return internalErr("ts", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return internalErr("ts", "unknown result kind %q", c.Kind)
	}

	w.line("return %s;", chain)
	return nil
}

func tsNestedLoops(w *writer, c *ir.Comprehension, rules exprRules) error {
	elem := tsElem(c.Element, rules)
	switch c.Kind {
	case ir.KindList:
		w.line("const result: %s[] = [];", tsElemType(c.Element))
	case ir.KindSet:
		w.line("const result = new Set<%s>();", tsElemType(c.Element))
	case ir.KindDict:
		w.line("const result = new Map<number, number>();")
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount:
			w.line("let acc = 0;")
		case ir.ReduceMax:
			w.line("let acc = -Infinity;")
		case ir.ReduceMin:
			w.line("let acc = Infinity;")
		case ir.ReduceAny:
			w.line("let acc = false;")
		case ir.ReduceAll:
			w.line("let acc = true;")
		default:
			return internalErr("ts", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return internalErr("ts", "unknown result kind %q", c.Kind)
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
			w.line("for (let %s = %d; %s %s %d; %s) {", gen.Var, src.Start, gen.Var, cmp, src.Stop, stepStmt)
		case ir.OpaqueSource:
			w.line("for (const %s of %s) {", gen.Var, src.Name)
		}
		w.in()
		depth++
		for _, pred := range gen.Filters {
			w.line("if (%s) {", negate(rules.translate(string(pred))))
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
		w.line("result.add(%s);", elem)
	case ir.KindDict:
		w.line("result.set(%s, %s);", rules.translate(c.KeyExpr), elem)
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			w.line("acc += %s;", elem)
		case ir.ReduceCount:
			w.line("acc++;")
		case ir.ReduceMax:
			w.line("acc = Math.max(acc, %s);", elem)
		case ir.ReduceMin:
			w.line("acc = Math.min(acc, %s);", elem)
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
