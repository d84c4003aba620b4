package emit

import (
	"fmt"
	"strings"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// Go emits Go source for a comprehension.
//
// Safe-parallel idiom: a goroutine per worker writing into a private
// per-worker accumulator (contiguous slice chunk, map shard, or scalar
// partial), joined by a WaitGroup, merged in one serial pass. No
// per-element locking anywhere. List chunks are contiguous index
// ranges reassembled in worker order, which preserves the sequential
// element order exactly.
//
// Accepted options: parallel.
func Go(c *ir.Comprehension, plan classify.Plan, opts Options) (string, error) {
	needPow := false
	rules := exprRules{
		and: "&&", or: "||", not: "!",
		trueLit: "true", falseLit: "false",
		pow: func(l, r string) string {
			needPow = true
			return "intPow(" + l + ", " + r + ")"
		},
		floorDiv: func(l, r string) string { return l + " / " + r },
	}

	body := newWriter("\t")
	body.in()
	needMath := false

	gen, rng, isRange := singleRange(c)
	var err error
	switch {
	case isRange && plan.Safe:
		needMath, err = goParallel(body, c, gen, rng, plan, rules)
	case isRange:
		needMath, err = goSequentialRange(body, c, gen, rng, rules)
	case len(c.Generators) == 1:
		needMath, err = goNestedLoops(body, c, rules)
	default:
		needMath, err = goNestedLoops(body, c, rules)
	}
	if err != nil {
		return "", err
	}

	retType, err := goReturnType(c)
	if err != nil {
		return "", err
	}

	w := newWriter("\t")
	var imports []string
	if needMath {
		imports = append(imports, `"math"`)
	}
	if plan.Safe {
		imports = append(imports, `"runtime"`, `"sync"`)
	}
	if len(imports) > 0 {
		w.line("import (")
		w.in()
		for _, imp := range imports {
			w.line("%s", imp)
		}
		w.out()
		w.line(")")
		w.blank()
	}

	w.line("func program(%s) %s {", goParams(c), retType)
	w.buf.WriteString(body.String())
	w.line("}")

	if needPow {
		w.blank()
		w.line("func intPow(base, exp int) int {")
		w.in()
		w.line("result := 1")
		w.line("for exp > 0 {")
		w.in()
		w.line("if exp&1 == 1 {")
		w.in()
		w.line("result *= base")
		w.out()
		w.line("}")
		w.line("base *= base")
		w.line("exp >>= 1")
		w.out()
		w.line("}")
		w.line("return result")
		w.out()
		w.line("}")
	}
	return w.String(), nil
}

func goElem(expr string, rules exprRules) string {
	if parts := tupleParts(expr); parts != nil {
		translated := make([]string, len(parts))
		for i, p := range parts {
			translated[i] = rules.translate(p)
		}
		return fmt.Sprintf("[%d]int{%s}", len(parts), strings.Join(translated, ", "))
	}
	return rules.translate(expr)
}

func goElemType(expr string) string {
	if parts := tupleParts(expr); parts != nil {
		return fmt.Sprintf("[%d]int", len(parts))
	}
	return "int"
}

func goReturnType(c *ir.Comprehension) (string, error) {
	switch c.Kind {
	case ir.KindList:
		return "[]" + goElemType(c.Element), nil
	case ir.KindSet:
		return "map[" + goElemType(c.Element) + "]struct{}", nil
	case ir.KindDict:
		return "map[int]int", nil
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount, ir.ReduceMax, ir.ReduceMin:
			return "int", nil
		case ir.ReduceAny, ir.ReduceAll:
			return "bool", nil
		default:
			return "", internalErr("go", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return "", internalErr("go", "unknown result kind %q", c.Kind)
	}
}

func goParams(c *ir.Comprehension) string {
	var params []string
	for _, gen := range c.Generators {
		if src, ok := gen.Source.(ir.OpaqueSource); ok {
			params = append(params, src.Name+" []int")
		}
	}
	return strings.Join(params, ", ")
}

// goLoopHeader renders the sequential for-statement for one generator.
func goLoopHeader(gen ir.Generator) string {
	switch src := gen.Source.(type) {
	case ir.RangeSource:
		cmp, stepStmt := "<", gen.Var+"++"
		if src.Step < 0 {
			cmp = ">"
			stepStmt = fmt.Sprintf("%s -= %d", gen.Var, -src.Step)
		} else if src.Step != 1 {
			stepStmt = fmt.Sprintf("%s += %d", gen.Var, src.Step)
		}
		return fmt.Sprintf("for %s := %d; %s %s %d; %s {", gen.Var, src.Start, gen.Var, cmp, src.Stop, stepStmt)
	case ir.OpaqueSource:
		return fmt.Sprintf("for _, %s := range %s {", gen.Var, src.Name)
	}
	return ""
}

// goGuards emits the skip-guards for a generator's predicates.
func goGuards(w *writer, gen ir.Generator, rules exprRules) {
	for _, pred := range gen.Filters {
		w.line("if %s {", negate(rules.translate(string(pred))))
		w.in()
		w.line("continue")
		w.out()
		w.line("}")
	}
}

// goAccInit emits the accumulator declaration for a sequential loop and
// reports whether math is needed.
func goAccInit(w *writer, c *ir.Comprehension) (bool, error) {
	switch c.Kind {
	case ir.KindList:
		w.line("var result []%s", goElemType(c.Element))
	case ir.KindSet:
		w.line("result := make(map[%s]struct{})", goElemType(c.Element))
	case ir.KindDict:
		w.line("result := make(map[int]int)")
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum, ir.ReduceCount:
			w.line("acc := 0")
		case ir.ReduceMax:
			w.line("acc := math.MinInt")
			return true, nil
		case ir.ReduceMin:
			w.line("acc := math.MaxInt")
			return true, nil
		case ir.ReduceAny, ir.ReduceAll:
			// folded through early returns, no accumulator
		default:
			return false, internalErr("go", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return false, internalErr("go", "unknown result kind %q", c.Kind)
	}
	return false, nil
}

// goUpdate emits the per-element statement inside the innermost loop.
func goUpdate(w *writer, c *ir.Comprehension, rules exprRules, early bool) {
	elem := goElem(c.Element, rules)
	switch c.Kind {
	case ir.KindList:
		w.line("result = append(result, %s)", elem)
	case ir.KindSet:
		w.line("result[%s] = struct{}{}", elem)
	case ir.KindDict:
		w.line("result[%s] = %s", rules.translate(c.KeyExpr), elem)
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			w.line("acc += %s", elem)
		case ir.ReduceCount:
			w.line("acc++")
		case ir.ReduceMax:
			w.line("if v := %s; v > acc {", elem)
			w.in()
			w.line("acc = v")
			w.out()
			w.line("}")
		case ir.ReduceMin:
			w.line("if v := %s; v < acc {", elem)
			w.in()
			w.line("acc = v")
			w.out()
			w.line("}")
		case ir.ReduceAny:
			if early {
				w.line("if %s {", elem)
				w.in()
				w.line("return true")
				w.out()
				w.line("}")
			} else {
				w.line("if %s {", elem)
				w.in()
				w.line("acc = true")
				w.out()
				w.line("}")
			}
		case ir.ReduceAll:
			if early {
				w.line("if %s {", negate(elem))
				w.in()
				w.line("return false")
				w.out()
				w.line("}")
			} else {
				w.line("if %s {", negate(elem))
				w.in()
				w.line("acc = false")
				w.out()
				w.line("}")
			}
		}
	}
}

// goReturn emits the final return for a sequential emission.
func goReturn(w *writer, c *ir.Comprehension) {
	if c.Kind == ir.KindReduce {
		switch c.Reduce {
		case ir.ReduceAny:
			w.line("return false")
		case ir.ReduceAll:
			w.line("return true")
		default:
			w.line("return acc")
		}
		return
	}
	w.line("return result")
}

func goSequentialRange(w *writer, c *ir.Comprehension, gen ir.Generator, rng ir.RangeSource, rules exprRules) (bool, error) {
	needMath, err := goAccInit(w, c)
	if err != nil {
		return false, err
	}
	w.line("%s", goLoopHeader(gen))
	w.in()
	goGuards(w, gen, rules)
	goUpdate(w, c, rules, true)
	w.out()
	w.line("}")
	goReturn(w, c)
	return needMath, nil
}

func goNestedLoops(w *writer, c *ir.Comprehension, rules exprRules) (bool, error) {
	needMath, err := goAccInit(w, c)
	if err != nil {
		return false, err
	}
	depth := 0
	for _, gen := range c.Generators {
		w.line("%s", goLoopHeader(gen))
		w.in()
		depth++
		goGuards(w, gen, rules)
	}
	goUpdate(w, c, rules, false)
	for ; depth > 0; depth-- {
		w.out()
		w.line("}")
	}
	// without early returns the boolean reductions carry an accumulator
	if c.Kind == ir.KindReduce && (c.Reduce == ir.ReduceAny || c.Reduce == ir.ReduceAll) {
		w.line("return acc")
		return needMath, nil
	}
	goReturn(w, c)
	return needMath, nil
}

// goParallel emits the shard-then-merge worker pool for the one shape
// the classifier admits: a single generator over a static range.
func goParallel(w *writer, c *ir.Comprehension, gen ir.Generator, rng ir.RangeSource, plan classify.Plan, rules exprRules) (bool, error) {
	workerVar := avoid("w", gen.Var)
	idxVar := avoid("k", gen.Var)

	var alg reduceAlgebra
	if c.Kind == ir.KindReduce {
		var ok bool
		if alg, ok = algebraFor(c.Reduce); !ok {
			return false, internalErr("go", "unknown reduction operator %q", c.Reduce)
		}
	}

	w.line("const n = %d", rng.Count())
	w.line("workers := runtime.GOMAXPROCS(0)")
	w.line("span := (n + workers - 1) / workers")

	needMath := false
	var mergeErr error
	switch c.Kind {
	case ir.KindList:
		w.line("parts := make([][]%s, workers)", goElemType(c.Element))
	case ir.KindSet:
		w.line("shards := make([]map[%s]struct{}, workers)", goElemType(c.Element))
	case ir.KindDict:
		w.line("shards := make([]map[int]int, workers)")
	case ir.KindReduce:
		w.line("accs := make([]%s, workers)", goFoldType(alg))
	default:
		return false, internalErr("go", "unknown result kind %q", c.Kind)
	}

	w.line("var wg sync.WaitGroup")
	w.line("for %s := 0; %s < workers; %s++ {", workerVar, workerVar, workerVar)
	w.in()
	w.line("wg.Add(1)")
	w.line("go func(%s int) {", workerVar)
	w.in()
	w.line("defer wg.Done()")
	w.line("lo := %s * span", workerVar)
	w.line("hi := lo + span")
	w.line("if hi > n {")
	w.in()
	w.line("hi = n")
	w.out()
	w.line("}")

	// worker-private accumulator
	switch c.Kind {
	case ir.KindList:
		w.line("var part []%s", goElemType(c.Element))
	case ir.KindSet:
		w.line("shard := make(map[%s]struct{})", goElemType(c.Element))
	case ir.KindDict:
		w.line("shard := make(map[int]int)")
	case ir.KindReduce:
		lit, usesMath := goFoldIdentity(alg.identity)
		w.line("acc := %s", lit)
		needMath = needMath || usesMath
	}

	w.line("for %s := lo; %s < hi; %s++ {", idxVar, idxVar, idxVar)
	w.in()
	if goWorkerNeedsVar(c, gen) {
		w.line("%s := %s", gen.Var, goIndexToValue(rng, idxVar))
	}
	goGuards(w, gen, rules)
	goParallelUpdate(w, c, alg, rules)
	w.out()
	w.line("}")

	switch c.Kind {
	case ir.KindList:
		w.line("parts[%s] = part", workerVar)
	case ir.KindSet, ir.KindDict:
		w.line("shards[%s] = shard", workerVar)
	case ir.KindReduce:
		w.line("accs[%s] = acc", workerVar)
	}
	w.out()
	w.line("}(%s)", workerVar)
	w.out()
	w.line("}")
	w.line("wg.Wait()")

	mergeErr = goMerge(w, c, alg, plan)
	return needMath, mergeErr
}

// goFoldType is the accs slot type for a reduction.
func goFoldType(alg reduceAlgebra) string {
	if alg.boolean {
		return "bool"
	}
	return "int"
}

// goFoldIdentity renders a fold identity and reports whether it needs
// the math import.
func goFoldIdentity(id foldIdentity) (string, bool) {
	switch id {
	case identMinInt:
		return "math.MinInt", true
	case identMaxInt:
		return "math.MaxInt", true
	case identFalse:
		return "false", false
	case identTrue:
		return "true", false
	default:
		return "0", false
	}
}

// goWorkerNeedsVar reports whether the worker body reads the bound
// variable. A filterless count touches only its counter; binding the
// variable anyway would leave it unused.
func goWorkerNeedsVar(c *ir.Comprehension, gen ir.Generator) bool {
	for _, p := range gen.Filters {
		if exprMentions(string(p), gen.Var) {
			return true
		}
	}
	if c.Kind == ir.KindDict && exprMentions(c.KeyExpr, gen.Var) {
		return true
	}
	if c.Kind == ir.KindReduce && c.Reduce == ir.ReduceCount {
		// count's update is acc++, the element never renders
		return false
	}
	return exprMentions(c.Element, gen.Var)
}

// goIndexToValue maps a chunk index to the range value it denotes.
func goIndexToValue(rng ir.RangeSource, idxVar string) string {
	switch {
	case rng.Start == 0 && rng.Step == 1:
		return idxVar
	case rng.Step == 1:
		return fmt.Sprintf("%d + %s", rng.Start, idxVar)
	case rng.Start == 0:
		return fmt.Sprintf("%s * %d", idxVar, rng.Step)
	default:
		return fmt.Sprintf("%d + %s*%d", rng.Start, idxVar, rng.Step)
	}
}

// goParallelUpdate is goUpdate against the worker-private accumulator,
// with the reduction branch driven by the shard algebra.
func goParallelUpdate(w *writer, c *ir.Comprehension, alg reduceAlgebra, rules exprRules) {
	elem := goElem(c.Element, rules)
	switch c.Kind {
	case ir.KindList:
		w.line("part = append(part, %s)", elem)
	case ir.KindSet:
		w.line("shard[%s] = struct{}{}", elem)
	case ir.KindDict:
		w.line("shard[%s] = %s", rules.translate(c.KeyExpr), elem)
	case ir.KindReduce:
		switch {
		case alg.counts:
			w.line("acc++")
		case alg.combine == combineAdd:
			w.line("acc += %s", elem)
		case alg.combine == combineMax:
			w.line("if v := %s; v > acc {", elem)
			w.in()
			w.line("acc = v")
			w.out()
			w.line("}")
		case alg.combine == combineMin:
			w.line("if v := %s; v < acc {", elem)
			w.in()
			w.line("acc = v")
			w.out()
			w.line("}")
		case alg.combine == combineOr:
			w.line("if %s {", elem)
			w.in()
			w.line("acc = true")
			w.out()
			w.line("}")
		case alg.combine == combineAnd:
			w.line("if %s {", negate(elem))
			w.in()
			w.line("acc = false")
			w.out()
			w.line("}")
		}
	}
}

// goMerge emits the single serial pass combining all worker results.
// Reductions fold accs with the algebra's combine rule.
func goMerge(w *writer, c *ir.Comprehension, alg reduceAlgebra, plan classify.Plan) error {
	switch c.Kind {
	case ir.KindList:
		// index-preserving collect: chunks are contiguous, worker
		// order reproduces sequential order
		w.line("var result []%s", goElemType(c.Element))
		w.line("for _, part := range parts {")
		w.in()
		w.line("result = append(result, part...)")
		w.out()
		w.line("}")
		w.line("return result")
	case ir.KindSet:
		w.line("result := make(map[%s]struct{})", goElemType(c.Element))
		w.line("for _, shard := range shards {")
		w.in()
		w.line("for k := range shard {")
		w.in()
		w.line("result[k] = struct{}{}")
		w.out()
		w.line("}")
		w.out()
		w.line("}")
		w.line("return result")
	case ir.KindDict:
		// later shard wins on duplicate keys
		w.line("result := make(map[int]int)")
		w.line("for _, shard := range shards {")
		w.in()
		w.line("for k, v := range shard {")
		w.in()
		w.line("result[k] = v")
		w.out()
		w.line("}")
		w.out()
		w.line("}")
		w.line("return result")
	case ir.KindReduce:
		switch alg.combine {
		case combineAdd:
			w.line("total := 0")
			w.line("for _, part := range accs {")
			w.in()
			w.line("total += part")
			w.out()
			w.line("}")
			w.line("return total")
		case combineMax:
			w.line("best := math.MinInt")
			w.line("for _, part := range accs {")
			w.in()
			w.line("if part > best {")
			w.in()
			w.line("best = part")
			w.out()
			w.line("}")
			w.out()
			w.line("}")
			w.line("return best")
		case combineMin:
			w.line("best := math.MaxInt")
			w.line("for _, part := range accs {")
			w.in()
			w.line("if part < best {")
			w.in()
			w.line("best = part")
			w.out()
			w.line("}")
			w.out()
			w.line("}")
			w.line("return best")
		case combineOr:
			w.line("for _, part := range accs {")
			w.in()
			w.line("if part {")
			w.in()
			w.line("return true")
			w.out()
			w.line("}")
			w.out()
			w.line("}")
			w.line("return false")
		case combineAnd:
			w.line("for _, part := range accs {")
			w.in()
			w.line("if !part {")
			w.in()
			w.line("return false")
			w.out()
			w.line("}")
			w.out()
			w.line("}")
			w.line("return true")
		}
	}
	return nil
}

// avoid returns base unless it collides with the bound variable.
func avoid(base, boundVar string) string {
	if base == boundVar {
		return base + "1"
	}
	return base
}
