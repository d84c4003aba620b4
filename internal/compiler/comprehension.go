// Package compiler turns CUE comprehension documents into IR.
//
// A document declares comprehensions under the `comprehension` struct,
// each either as surface code handed to the parser or as a structured
// IR literal:
//
//	comprehension: squares: {
//		code: "[x * x for x in range(10) if x % 2 == 0]"
//	}
//
//	comprehension: pairs: {
//		kind:    "list"
//		element: "(i, j)"
//		generators: [
//			{var: "i", range: {stop: 1000}, filters: ["i > 2"]},
//			{var: "j", source: "items"},
//		]
//	}
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
package compiler

import (
	"cuelang.org/go/cue"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/parser"
)

// CompileComprehension parses a CUE value holding one comprehension
// document entry.
func CompileComprehension(v cue.Value) (*ir.Comprehension, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	// surface-code form wins when both are present; mixing them is
	// rejected so a document cannot disagree with itself
	codeVal := v.LookupPath(cue.ParsePath("code"))
	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if codeVal.Exists() && kindVal.Exists() {
		return nil, &CompileError{
			Field:   "code",
			Message: "declare either code or a structured literal, not both",
			Pos:     v.Pos(),
		}
	}

	label := entryLabel(v)

	if codeVal.Exists() {
		code, err := codeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c, err := parser.Parse(code)
		if err != nil {
			return nil, &CompileError{Field: "code", Message: err.Error(), Pos: codeVal.Pos()}
		}
		if label != "" {
			c.Origin = label
		}
		return c, nil
	}

	return compileLiteral(v, label)
}

func entryLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

func compileLiteral(v cue.Value, label string) (*ir.Comprehension, error) {
	c := &ir.Comprehension{Origin: label}

	kind, err := requiredString(v, "kind")
	if err != nil {
		return nil, err
	}
	c.Kind = ir.Kind(kind)

	c.Element, err = requiredString(v, "element")
	if err != nil {
		return nil, err
	}
	c.KeyExpr, err = optionalString(v, "key")
	if err != nil {
		return nil, err
	}
	reduce, err := optionalString(v, "reduce")
	if err != nil {
		return nil, err
	}
	c.Reduce = ir.ReduceOp(reduce)

	gensVal := v.LookupPath(cue.ParsePath("generators"))
	if !gensVal.Exists() {
		return nil, &CompileError{Field: "generators", Message: "generators are required", Pos: v.Pos()}
	}
	iter, err := gensVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		gen, err := compileGenerator(iter.Value())
		if err != nil {
			return nil, err
		}
		c.Generators = append(c.Generators, gen)
	}

	if err := c.Validate(); err != nil {
		return nil, &CompileError{Field: label, Message: err.Error(), Pos: v.Pos()}
	}
	return c, nil
}

func compileGenerator(v cue.Value) (ir.Generator, error) {
	var gen ir.Generator
	var err error
	gen.Var, err = requiredString(v, "var")
	if err != nil {
		return gen, err
	}

	rangeVal := v.LookupPath(cue.ParsePath("range"))
	sourceVal := v.LookupPath(cue.ParsePath("source"))
	switch {
	case rangeVal.Exists() && sourceVal.Exists():
		return gen, &CompileError{Field: "source", Message: "declare either range or source, not both", Pos: v.Pos()}
	case rangeVal.Exists():
		rng := ir.RangeSource{Step: 1}
		if rng.Stop, err = requiredInt(rangeVal, "stop"); err != nil {
			return gen, err
		}
		if rng.Start, err = optionalInt(rangeVal, "start", 0); err != nil {
			return gen, err
		}
		if rng.Step, err = optionalInt(rangeVal, "step", 1); err != nil {
			return gen, err
		}
		gen.Source = rng
	case sourceVal.Exists():
		name, err := sourceVal.String()
		if err != nil {
			return gen, formatCUEError(err)
		}
		gen.Source = ir.OpaqueSource{Name: name}
	default:
		return gen, &CompileError{Field: "source", Message: "generator requires a range or a source", Pos: v.Pos()}
	}

	filtersVal := v.LookupPath(cue.ParsePath("filters"))
	if filtersVal.Exists() {
		iter, err := filtersVal.List()
		if err != nil {
			return gen, formatCUEError(err)
		}
		for iter.Next() {
			pred, err := iter.Value().String()
			if err != nil {
				return gen, formatCUEError(err)
			}
			gen.Filters = append(gen.Filters, parser.NormalizePredicate(pred)...)
		}
	}
	return gen, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredInt(v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optionalInt(v cue.Value, field string, def int64) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}
