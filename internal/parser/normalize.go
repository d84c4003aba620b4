package parser

import (
	"strings"
	"unicode"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// Predicate normalization establishes the flat-conjunction invariant:
// top-level "and" operands become separate filters, and a chained
// comparison (a <= x < b) becomes its pairwise conjuncts. Anything
// else (disjunctions, negations) stays as one opaque conjunct.

// NormalizePredicate splits raw predicate text into its flat
// conjuncts. Document loaders run literal filters through it so every
// IR construction path establishes the same invariant.
func NormalizePredicate(text string) []ir.Predicate {
	return normalizePredicate(text)
}

func normalizePredicate(text string) []ir.Predicate {
	var out []ir.Predicate
	for _, conjunct := range splitAnd(text) {
		for _, simple := range splitChained(conjunct) {
			out = append(out, ir.Predicate(simple))
		}
	}
	return out
}

// splitAnd splits on top-level "and" keywords.
func splitAnd(text string) []string {
	var parts []string
	depth := 0
	start := 0
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '(' || c == '[' || c == '{':
			depth++
			i++
		case c == ')' || c == ']' || c == '}':
			depth--
			i++
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(text) && (unicode.IsLetter(rune(text[j])) || unicode.IsDigit(rune(text[j])) || text[j] == '_') {
				j++
			}
			if depth == 0 && text[i:j] == "and" {
				parts = append(parts, strings.TrimSpace(text[start:i]))
				start = j
			}
			i = j
		default:
			i++
		}
	}
	parts = append(parts, strings.TrimSpace(text[start:]))
	return parts
}

var comparisonOps = []string{"<=", ">=", "==", "!=", "<", ">"}

// splitChained rewrites a chain of two or more comparisons over shared
// operands into pairwise comparisons. A conjunct containing any other
// top-level boolean structure is left alone.
func splitChained(text string) []string {
	type cmp struct {
		op  string
		pos int
	}
	var cmps []cmp
	depth := 0
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '(' || c == '[' || c == '{':
			depth++
			i++
		case c == ')' || c == ']' || c == '}':
			depth--
			i++
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(text) && (unicode.IsLetter(rune(text[j])) || unicode.IsDigit(rune(text[j])) || text[j] == '_') {
				j++
			}
			if depth == 0 && (text[i:j] == "or" || text[i:j] == "not") {
				return []string{text}
			}
			i = j
		default:
			if depth == 0 {
				matched := false
				for _, op := range comparisonOps {
					if strings.HasPrefix(text[i:], op) {
						cmps = append(cmps, cmp{op, i})
						i += len(op)
						matched = true
						break
					}
				}
				if matched {
					continue
				}
			}
			i++
		}
	}
	if len(cmps) < 2 {
		return []string{text}
	}

	var parts []string
	prev := 0
	for idx, c := range cmps {
		lhs := strings.TrimSpace(text[prev:c.pos])
		end := len(text)
		if idx+1 < len(cmps) {
			end = cmps[idx+1].pos
		}
		rhs := strings.TrimSpace(text[c.pos+len(c.op) : end])
		parts = append(parts, lhs+" "+c.op+" "+rhs)
		prev = c.pos + len(c.op)
	}
	return parts
}
