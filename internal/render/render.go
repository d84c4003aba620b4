// Package render is the adapter between callers and the backend
// emitters. It owns the backend enumeration, the per-backend accepted
// option sets, and the option filtering that shields emitters from
// signature drift: callers may pass one option superset for any mix of
// backends and each emitter sees only the keys it declared.
package render

import (
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/emit"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// Backend identifiers. The set is closed: dispatch is an exhaustive
// switch over these six, not a runtime-populated registry.
const (
	BackendRust   = "rust"
	BackendGo     = "go"
	BackendTS     = "ts"
	BackendCSharp = "csharp"
	BackendJulia  = "julia"
	BackendSQL    = "sql"
)

// Backends returns the known backend ids in stable order.
func Backends() []string {
	return []string{BackendRust, BackendGo, BackendTS, BackendCSharp, BackendJulia, BackendSQL}
}

// Render translates a comprehension into source text for one target.
//
// Unknown option keys never cause an error; they are filtered against
// the target's capability set before classification, so a parallel
// request a backend does not accept is equivalent to no request.
// The only target-related failure is an unrecognized id.
func Render(target string, c *ir.Comprehension, opts emit.Options) (string, error) {
	text, _, err := RenderPlan(target, c, opts)
	return text, err
}

// RenderPlan is Render with the classifier's plan exposed, for callers
// that surface the downgrade reason (the CLI's explain output and the
// tests).
func RenderPlan(target string, c *ir.Comprehension, opts emit.Options) (string, classify.Plan, error) {
	accepted, ok := capabilities(target)
	if !ok {
		return "", classify.Plan{}, &UnknownBackendError{Target: target, Known: Backends()}
	}
	filtered := opts.Filter(accepted)
	plan := classify.Classify(c, filtered.Bool(emit.OptParallel))

	var text string
	var err error
	switch target {
	case BackendRust:
		text, err = emit.Rust(c, plan, filtered)
	case BackendGo:
		text, err = emit.Go(c, plan, filtered)
	case BackendTS:
		text, err = emit.TypeScript(c, plan, filtered)
	case BackendCSharp:
		text, err = emit.CSharp(c, plan, filtered)
	case BackendJulia:
		text, err = emit.Julia(c, plan, filtered)
	case BackendSQL:
		text, err = emit.SQL(c, plan, filtered)
	}
	if err != nil {
		return "", plan, err
	}
	return text, plan, nil
}
