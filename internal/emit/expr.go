package emit

import (
	"strings"
	"unicode"
)

// The IR carries expressions as text in the restricted source syntax
// (identifiers, integer literals, arithmetic and comparison operators,
// and/or/not, parentheses, tuples). Each backend rewrites that text
// into its own surface syntax at the token level; no backend ever
// re-parses expressions structurally beyond the binary rewrites below.

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokRaw // pre-rendered fragment produced by a rewrite
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a restricted expression into tokens. Unknown bytes
// are passed through as single-character operator tokens so that a
// surprising expression degrades to pass-through rather than an error.
func tokenize(expr string) []token {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case unicode.IsDigit(rune(c)):
			j := i
			for j < len(expr) && unicode.IsDigit(rune(expr[j])) {
				j++
			}
			toks = append(toks, token{tokNumber, expr[i:j]})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(expr) && (unicode.IsLetter(rune(expr[j])) || unicode.IsDigit(rune(expr[j])) || expr[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, expr[i:j]})
			i = j
		default:
			// multi-character operators first, longest match
			matched := false
			for _, op := range []string{"**", "//", "<=", ">=", "==", "!="} {
				if strings.HasPrefix(expr[i:], op) {
					toks = append(toks, token{tokOp, op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				toks = append(toks, token{tokOp, string(c)})
				i++
			}
		}
	}
	return toks
}

// renderTokens joins tokens back into text with conventional spacing:
// binary operators are surrounded by spaces, parentheses are tight,
// commas bind left, and prefix operators ("!", unary "-") attach to
// their operand.
func renderTokens(toks []token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && needSpace(toks, i) {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

func needSpace(toks []token, i int) bool {
	prev, cur := toks[i-1], toks[i]
	if prev.kind == tokLParen || cur.kind == tokRParen || cur.kind == tokComma {
		return false
	}
	if prev.kind == tokComma {
		return true
	}
	if prev.kind == tokOp && prev.text == "!" {
		return false
	}
	if prev.kind == tokOp && prev.text == "-" && isUnary(toks, i-1) {
		return false
	}
	if cur.kind == tokLParen && (prev.kind == tokIdent || prev.kind == tokRaw) {
		return false // call syntax
	}
	return true
}

// isUnary reports whether the operator at position j is prefix rather
// than infix: it is unary when nothing bindable precedes it.
func isUnary(toks []token, j int) bool {
	if j == 0 {
		return true
	}
	switch toks[j-1].kind {
	case tokOp, tokLParen, tokComma:
		return true
	}
	return false
}

// atomBefore returns the index of the start of the atom ending at
// position end (exclusive): a single token, or a balanced paren group.
func atomBefore(toks []token, end int) int {
	if end == 0 {
		return 0
	}
	if toks[end-1].kind == tokRParen {
		depth := 0
		for i := end - 1; i >= 0; i-- {
			switch toks[i].kind {
			case tokRParen:
				depth++
			case tokLParen:
				depth--
				if depth == 0 {
					return i
				}
			}
		}
		return 0
	}
	return end - 1
}

// atomAfter returns the index one past the end of the atom starting at
// position start: a single token (with an optional leading unary
// minus), or a balanced paren group.
func atomAfter(toks []token, start int) int {
	if start >= len(toks) {
		return start
	}
	if toks[start].kind == tokOp && toks[start].text == "-" {
		return atomAfter(toks, start+1)
	}
	if toks[start].kind == tokLParen {
		depth := 0
		for i := start; i < len(toks); i++ {
			switch toks[i].kind {
			case tokLParen:
				depth++
			case tokRParen:
				depth--
				if depth == 0 {
					return i + 1
				}
			}
		}
		return len(toks)
	}
	return start + 1
}

// rewriteBinary replaces every occurrence of `lhs op rhs` (atoms only)
// with the fragment produced by fn. Applied left to right; the result
// of fn participates in later rewrites as an opaque atom.
func rewriteBinary(toks []token, op string, fn func(lhs, rhs []token) string) []token {
	for {
		idx := -1
		for i, t := range toks {
			if t.kind == tokOp && t.text == op {
				idx = i
				break
			}
		}
		if idx < 0 {
			return toks
		}
		lo := atomBefore(toks, idx)
		hi := atomAfter(toks, idx+1)
		frag := fn(toks[lo:idx], toks[idx+1:hi])
		rewritten := make([]token, 0, len(toks)-(hi-lo)+1)
		rewritten = append(rewritten, toks[:lo]...)
		rewritten = append(rewritten, token{tokRaw, frag})
		rewritten = append(rewritten, toks[hi:]...)
		toks = rewritten
	}
}

// exprRules configures a per-target token translation.
type exprRules struct {
	and, or, not      string
	trueLit, falseLit string
	eq, neq           string // comparison spellings when the target differs
	// pow and floorDiv render `lhs OP rhs` into target syntax; nil
	// leaves the operator untouched.
	pow      func(lhs, rhs string) string
	floorDiv func(lhs, rhs string) string
}

// translate rewrites a restricted expression into target syntax.
func (r exprRules) translate(expr string) string {
	toks := tokenize(expr)
	if r.pow != nil {
		toks = rewriteBinary(toks, "**", func(l, rh []token) string {
			return r.pow(renderTokens(l), renderTokens(rh))
		})
	}
	if r.floorDiv != nil {
		toks = rewriteBinary(toks, "//", func(l, rh []token) string {
			return r.floorDiv(renderTokens(l), renderTokens(rh))
		})
	}
	for i, t := range toks {
		switch {
		case t.kind == tokIdent && t.text == "and":
			toks[i] = token{tokOp, r.and}
		case t.kind == tokIdent && t.text == "or":
			toks[i] = token{tokOp, r.or}
		case t.kind == tokIdent && t.text == "not":
			toks[i] = token{tokOp, r.not}
		case t.kind == tokIdent && t.text == "True":
			toks[i] = token{tokIdent, r.trueLit}
		case t.kind == tokIdent && t.text == "False":
			toks[i] = token{tokIdent, r.falseLit}
		case t.kind == tokOp && t.text == "==" && r.eq != "":
			toks[i] = token{tokOp, r.eq}
		case t.kind == tokOp && t.text == "!=" && r.neq != "":
			toks[i] = token{tokOp, r.neq}
		}
	}
	return renderTokens(toks)
}

// negate wraps a translated predicate for use in a skip-guard.
func negate(cond string) string {
	return "!(" + cond + ")"
}

// exprMentions reports whether ident occurs as an identifier token.
func exprMentions(expr, ident string) bool {
	for _, t := range tokenize(expr) {
		if t.kind == tokIdent && t.text == ident {
			return true
		}
	}
	return false
}
