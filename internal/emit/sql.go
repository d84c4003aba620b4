package emit

import (
	"fmt"
	"strings"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// SQL emits a query for a comprehension. Declarative targets never
// get physical parallelism: predicates fold into one WHERE conjunction
// (predicate pushdown) and reductions become aggregates, so the
// parallel option - filtered out by the adapter - has nothing to do
// here and the emission is identical either way.
//
// Accepted options:
//
//	dialect  "sqlite" (default, recursive-CTE ranges) or "postgres"
//	         (generate_series ranges)
//	explain  prefixes the query with plan comments
func SQL(c *ir.Comprehension, plan classify.Plan, opts Options) (string, error) {
	dialect := opts.String(OptDialect, "sqlite")
	if dialect == "postgresql" {
		dialect = "postgres"
	}
	rules := exprRules{
		and: "AND", or: "OR", not: "NOT",
		trueLit: "TRUE", falseLit: "FALSE",
		eq: "=", neq: "<>",
		pow:      func(l, r string) string { return "POWER(" + l + ", " + r + ")" },
		floorDiv: func(l, r string) string { return l + " / " + r },
	}

	w := newWriter("    ")
	if opts.Bool(OptExplain) {
		w.line("-- dialect: %s", dialect)
		w.line("-- predicates pushed down into WHERE")
	}

	var ctes []string
	var from []string
	var where []string
	for _, gen := range c.Generators {
		switch src := gen.Source.(type) {
		case ir.RangeSource:
			if dialect == "postgres" {
				from = append(from, sqlSeries(gen.Var, src))
			} else {
				ctes = append(ctes, sqlRangeCTE(gen.Var, src))
				from = append(from, "r_"+gen.Var)
				if src.Count() == 0 {
					// the CTE's unconditional base row must not
					// reach the result
					where = append(where, "1 = 0")
				}
			}
		case ir.OpaqueSource:
			from = append(from, fmt.Sprintf("(SELECT value AS %s FROM %s)", gen.Var, src.Name))
		}
		for _, pred := range gen.Filters {
			where = append(where, rules.translate(string(pred)))
		}
	}

	if len(ctes) > 0 {
		w.line("WITH RECURSIVE %s", strings.Join(ctes, ",\n"))
	}

	fromClause := strings.Join(from, " CROSS JOIN ")

	selectLine, extraWhere, err := sqlSelect(c, rules)
	if err != nil {
		return "", err
	}

	// any/all fold the element predicate into an EXISTS probe rather
	// than a select list
	if c.Kind == ir.KindReduce && (c.Reduce == ir.ReduceAny || c.Reduce == ir.ReduceAll) {
		conds := append(append([]string{}, where...), extraWhere)
		inner := "SELECT 1 FROM " + fromClause + " WHERE " + strings.Join(conds, " AND ")
		if c.Reduce == ir.ReduceAny {
			w.line("SELECT EXISTS(%s)", inner)
		} else {
			w.line("SELECT NOT EXISTS(%s)", inner)
		}
		return w.String(), nil
	}

	w.line("%s", selectLine)
	w.line("FROM %s", fromClause)
	if len(where) > 0 {
		w.line("WHERE %s", strings.Join(where, " AND "))
	}
	return w.String(), nil
}

// sqlRangeCTE renders one recursive range CTE. The guard compares the
// current value against the last value on the stride, so any step
// terminates exactly.
func sqlRangeCTE(v string, rng ir.RangeSource) string {
	n := rng.Count()
	last := rng.Start + (n-1)*rng.Step
	stepExpr := fmt.Sprintf("%s + %d", v, rng.Step)
	guard := fmt.Sprintf("%s < %d", v, last)
	if rng.Step < 0 {
		stepExpr = fmt.Sprintf("%s - %d", v, -rng.Step)
		guard = fmt.Sprintf("%s > %d", v, last)
	}
	if n == 0 {
		guard = "1 = 0"
	}
	return fmt.Sprintf(`r_%s(%s) AS (
    SELECT %d
    UNION ALL
    SELECT %s FROM r_%s WHERE %s
)`, v, v, rng.Start, stepExpr, v, guard)
}

func sqlSeries(v string, rng ir.RangeSource) string {
	n := rng.Count()
	last := rng.Start + (n-1)*rng.Step
	if rng.Step == 1 {
		return fmt.Sprintf("generate_series(%d, %d) AS %s", rng.Start, last, v)
	}
	return fmt.Sprintf("generate_series(%d, %d, %d) AS %s", rng.Start, last, rng.Step, v)
}

// sqlSelect renders the select list for the result kind. For any/all
// it instead returns the probe condition as extraWhere.
func sqlSelect(c *ir.Comprehension, rules exprRules) (selectLine, extraWhere string, err error) {
	elem := rules.translate(c.Element)
	if parts := tupleParts(c.Element); parts != nil {
		translated := make([]string, len(parts))
		for i, p := range parts {
			translated[i] = rules.translate(p)
		}
		elem = strings.Join(translated, ", ")
	}

	switch c.Kind {
	case ir.KindList:
		return "SELECT " + elem, "", nil
	case ir.KindSet:
		return "SELECT DISTINCT " + elem, "", nil
	case ir.KindDict:
		return fmt.Sprintf("SELECT %s, %s", rules.translate(c.KeyExpr), elem), "", nil
	case ir.KindReduce:
		switch c.Reduce {
		case ir.ReduceSum:
			return fmt.Sprintf("SELECT SUM(%s)", elem), "", nil
		case ir.ReduceCount:
			return "SELECT COUNT(*)", "", nil
		case ir.ReduceMax:
			return fmt.Sprintf("SELECT MAX(%s)", elem), "", nil
		case ir.ReduceMin:
			return fmt.Sprintf("SELECT MIN(%s)", elem), "", nil
		case ir.ReduceAny:
			return "", elem, nil
		case ir.ReduceAll:
			return "", "NOT (" + elem + ")", nil
		default:
			return "", "", internalErr("sql", "unknown reduction operator %q", c.Reduce)
		}
	default:
		return "", "", internalErr("sql", "unknown result kind %q", c.Kind)
	}
}
