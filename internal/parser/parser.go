// Package parser turns comprehension source text into IR.
//
// The accepted grammar is the comprehension subset:
//
//	[elem for v in src if p ...]            list
//	{elem for v in src ...}                 set
//	{key: val for v in src ...}             dict
//	op(elem for v in src ...)               reduction, op one of
//	                                        sum count max min any all
//
// with src either range(stop) / range(start, stop[, step]) with
// integer literal arguments, or a bare identifier naming an opaque
// collection. Expressions are captured as text and carried through the
// IR untouched, except that chained comparisons and top-level "and"
// conjunctions in filters are split into flat conjunct lists before
// the IR is constructed.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// ParseError reports malformed or unsupported input text, with the
// byte offset where parsing stopped.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

var reduceOps = map[string]ir.ReduceOp{
	"sum":   ir.ReduceSum,
	"count": ir.ReduceCount,
	"max":   ir.ReduceMax,
	"min":   ir.ReduceMin,
	"any":   ir.ReduceAny,
	"all":   ir.ReduceAll,
}

// Parse reads one comprehension expression.
func Parse(code string) (*ir.Comprehension, error) {
	p := &scanner{src: code}
	c, err := p.comprehension()
	if err != nil {
		return nil, err
	}
	p.ws()
	if !p.eof() {
		return nil, p.errf("unexpected trailing input %q", p.rest())
	}
	if err := c.Validate(); err != nil {
		return nil, &ParseError{Offset: len(code), Message: err.Error()}
	}
	return c, nil
}

type scanner struct {
	src string
	pos int
}

func (p *scanner) eof() bool { return p.pos >= len(p.src) }

func (p *scanner) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *scanner) ws() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *scanner) rest() string {
	tail := p.src[p.pos:]
	if len(tail) > 20 {
		tail = tail[:20] + "..."
	}
	return tail
}

func (p *scanner) errf(format string, args ...any) error {
	return &ParseError{Offset: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *scanner) expect(ch byte) error {
	p.ws()
	if p.peek() != ch {
		return p.errf("expected %q", string(ch))
	}
	p.pos++
	return nil
}

// ident reads an identifier, or "" when the cursor is not at one.
func (p *scanner) ident() string {
	p.ws()
	start := p.pos
	for !p.eof() {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || c == '_' || (p.pos > start && unicode.IsDigit(c)) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *scanner) int64() (int64, error) {
	p.ws()
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() && unicode.IsDigit(rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos == start || p.src[p.pos-1] == '-' {
		p.pos = start
		return 0, p.errf("expected integer literal")
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		return 0, &ParseError{Offset: start, Message: "integer literal out of range"}
	}
	return n, nil
}

func (p *scanner) comprehension() (*ir.Comprehension, error) {
	p.ws()
	switch {
	case p.peek() == '[':
		p.pos++
		return p.body(ir.KindList, "", ']', "list_comp")
	case p.peek() == '{':
		p.pos++
		return p.braced()
	default:
		return p.reduction()
	}
}

// braced disambiguates set from dict by whether the first expression
// is followed by a top-level colon.
func (p *scanner) braced() (*ir.Comprehension, error) {
	first, err := p.expr(true)
	if err != nil {
		return nil, err
	}
	p.ws()
	if p.peek() == ':' {
		p.pos++
		return p.body(ir.KindDict, first, '}', "dict_comp")
	}
	c, err := p.generators()
	if err != nil {
		return nil, err
	}
	c.Kind = ir.KindSet
	c.Element = first
	c.Origin = "set_comp"
	if err := p.expect('}'); err != nil {
		return nil, err
	}
	return c, nil
}

// body parses "elem for ... CLOSE" with an optional pre-parsed dict
// key.
func (p *scanner) body(kind ir.Kind, keyExpr string, close byte, origin string) (*ir.Comprehension, error) {
	elem, err := p.expr(false)
	if err != nil {
		return nil, err
	}
	c, err := p.generators()
	if err != nil {
		return nil, err
	}
	c.Kind = kind
	c.Element = elem
	c.KeyExpr = keyExpr
	c.Origin = origin
	if err := p.expect(close); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *scanner) reduction() (*ir.Comprehension, error) {
	start := p.pos
	name := p.ident()
	op, ok := reduceOps[name]
	if !ok {
		return nil, &ParseError{Offset: start, Message: fmt.Sprintf("expected a comprehension or one of sum/count/max/min/any/all, got %q", name)}
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	c, err := p.body(ir.KindReduce, "", ')', "call_"+name)
	if err != nil {
		return nil, err
	}
	c.Reduce = op
	return c, nil
}

// generators parses one or more "for v in src [if pred]..." clauses.
func (p *scanner) generators() (*ir.Comprehension, error) {
	c := &ir.Comprehension{}
	for {
		p.ws()
		if !p.keyword("for") {
			break
		}
		v := p.ident()
		if v == "" {
			return nil, p.errf("expected bound variable after 'for'")
		}
		p.ws()
		if !p.keyword("in") {
			return nil, p.errf("expected 'in'")
		}
		src, err := p.source()
		if err != nil {
			return nil, err
		}
		gen := ir.Generator{Var: v, Source: src}
		for {
			p.ws()
			if !p.keyword("if") {
				break
			}
			pred, err := p.expr(false)
			if err != nil {
				return nil, err
			}
			gen.Filters = append(gen.Filters, normalizePredicate(pred)...)
		}
		c.Generators = append(c.Generators, gen)
	}
	if len(c.Generators) == 0 {
		return nil, p.errf("expected 'for'")
	}
	return c, nil
}

// keyword consumes word when the cursor sits on it as a whole word.
func (p *scanner) keyword(word string) bool {
	if !strings.HasPrefix(p.src[p.pos:], word) {
		return false
	}
	end := p.pos + len(word)
	if end < len(p.src) {
		c := rune(p.src[end])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			return false
		}
	}
	p.pos = end
	return true
}

func (p *scanner) source() (ir.Source, error) {
	p.ws()
	start := p.pos
	name := p.ident()
	if name == "" {
		return nil, p.errf("expected a source")
	}
	if name != "range" {
		return ir.OpaqueSource{Name: name}, nil
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var args []int64
	for {
		n, err := p.int64()
		if err != nil {
			return nil, err
		}
		args = append(args, n)
		p.ws()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	switch len(args) {
	case 1:
		return ir.RangeSource{Start: 0, Stop: args[0], Step: 1}, nil
	case 2:
		return ir.RangeSource{Start: args[0], Stop: args[1], Step: 1}, nil
	case 3:
		if args[2] == 0 {
			return nil, &ParseError{Offset: start, Message: "range step must be non-zero"}
		}
		return ir.RangeSource{Start: args[0], Stop: args[1], Step: args[2]}, nil
	default:
		return nil, &ParseError{Offset: start, Message: fmt.Sprintf("range expects 1-3 arguments, got %d", len(args))}
	}
}

// expr captures raw expression text up to the next top-level 'for' or
// 'if' keyword, closing delimiter, or (when stopColon) colon.
func (p *scanner) expr(stopColon bool) (string, error) {
	p.ws()
	start := p.pos
	depth := 0
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '(' || c == '[' || c == '{':
			depth++
			p.pos++
		case c == ')' || c == ']' || c == '}':
			if depth == 0 {
				return p.captured(start)
			}
			depth--
			p.pos++
		case c == ':' && depth == 0 && stopColon:
			return p.captured(start)
		case unicode.IsLetter(rune(c)) || c == '_':
			wordStart := p.pos
			word := p.ident()
			if depth == 0 && (word == "for" || word == "if") {
				p.pos = wordStart
				return p.captured(start)
			}
		default:
			p.pos++
		}
	}
	return p.captured(start)
}

func (p *scanner) captured(start int) (string, error) {
	text := strings.TrimSpace(p.src[start:p.pos])
	if text == "" {
		return "", &ParseError{Offset: start, Message: "expected expression"}
	}
	return text, nil
}
