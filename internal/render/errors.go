package render

import (
	"fmt"
	"strings"
)

// UnknownBackendError reports a target id outside the closed backend
// enumeration. This is the adapter's only failure mode of its own;
// everything else surfaces from the chosen emitter.
type UnknownBackendError struct {
	Target string
	Known  []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend %q (known: %s)", e.Target, strings.Join(e.Known, ", "))
}
