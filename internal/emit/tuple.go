package emit

// Tuple elements ("(i, j)") appear when a multi-generator comprehension
// collects its bound variables. Backends that have no parenthesized
// tuple literal rewrite the parts into their own syntax.

// tupleParts returns the comma-separated parts of a parenthesized
// tuple expression, or nil when expr is not a tuple literal.
func tupleParts(expr string) []string {
	toks := tokenize(expr)
	if len(toks) < 3 || toks[0].kind != tokLParen || toks[len(toks)-1].kind != tokRParen {
		return nil
	}
	// the opening paren must match the final one
	depth := 0
	for i, t := range toks {
		switch t.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 && i != len(toks)-1 {
				return nil
			}
		}
	}

	var parts []string
	depth = 0
	start := 1
	sawComma := false
	for i := 1; i < len(toks)-1; i++ {
		switch toks[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokComma:
			if depth == 0 {
				parts = append(parts, renderTokens(toks[start:i]))
				start = i + 1
				sawComma = true
			}
		}
	}
	if !sawComma {
		return nil
	}
	parts = append(parts, renderTokens(toks[start:len(toks)-1]))
	return parts
}
