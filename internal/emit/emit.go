// Package emit contains the six backend emitters and the pieces they
// share: the option bag, the expression translator, and the shard/merge
// algebra for reductions.
//
// Every emitter implements the same contract:
//
//	emit(comp, plan, options) -> text
//
// If plan.Safe is false the emitted text is byte-identical to the text
// emitted with parallel absent - an unsafe shape degrades silently and
// completely, never partially. Emitters never raise for a structurally
// valid IR; an unrecognized shape is a CodegenInternalError, which
// indicates an IR/emitter exhaustiveness defect rather than user error.
package emit

import (
	"fmt"
	"strings"
)

// Option names shared across backends. Each backend declares the subset
// it accepts; the render adapter filters everything else out.
const (
	OptParallel = "parallel"
	OptIntType  = "int_type"
	OptMode     = "mode"
	OptUnsafe   = "unsafe"
	OptExplain  = "explain"
	OptThreads  = "threads"
	OptDialect  = "dialect"
)

// Options is the caller-supplied option bag. Values are loosely typed;
// the accessors coerce defensively and fall back to the default on a
// type mismatch rather than erroring, since a mistyped option must
// never make an emitter raise.
type Options map[string]any

// Bool returns the named option as a bool, false when absent.
func (o Options) Bool(name string) bool {
	v, ok := o[name]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// BoolOr returns the named option as a bool, or def when absent or not
// a bool. Used for options whose default is true (e.g. explain).
func (o Options) BoolOr(name string, def bool) bool {
	v, ok := o[name]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// String returns the named option as a string, or def when absent or
// not a string.
func (o Options) String(name, def string) string {
	v, ok := o[name]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// Int returns the named option as an int, or def when absent or not an
// integer.
func (o Options) Int(name string, def int) int {
	switch v := o[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

// Filter returns a copy of o containing only the accepted keys.
// This set intersection is the signature-drift protection: a caller may
// pass a superset of options relevant to several backends in one call,
// and each backend receives only what it declared.
func (o Options) Filter(accepted map[string]struct{}) Options {
	filtered := make(Options, len(accepted))
	for k, v := range o {
		if _, ok := accepted[k]; ok {
			filtered[k] = v
		}
	}
	return filtered
}

// CodegenInternalError reports an IR shape a chosen emitter does not
// recognize. It indicates an exhaustiveness defect in the IR/emitter
// pairing, never a user error, and must never be swallowed: the emitter
// fails loudly rather than emitting best-effort text.
type CodegenInternalError struct {
	Backend string
	Message string
}

func (e *CodegenInternalError) Error() string {
	return fmt.Sprintf("codegen internal error [%s]: %s", e.Backend, e.Message)
}

func internalErr(backend, format string, args ...any) error {
	return &CodegenInternalError{Backend: backend, Message: fmt.Sprintf(format, args...)}
}

// writer accumulates emitted source text line by line.
type writer struct {
	buf    strings.Builder
	indent int
	unit   string
}

func newWriter(indentUnit string) *writer {
	return &writer{unit: indentUnit}
}

func (w *writer) line(format string, args ...any) {
	if format == "" {
		w.buf.WriteByte('\n')
		return
	}
	w.buf.WriteString(strings.Repeat(w.unit, w.indent))
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

func (w *writer) blank() { w.line("") }

func (w *writer) in()  { w.indent++ }
func (w *writer) out() { w.indent-- }

func (w *writer) String() string { return w.buf.String() }
