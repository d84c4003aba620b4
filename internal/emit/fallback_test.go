package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/classify"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/testutil"
)

type emitFunc func(*ir.Comprehension, classify.Plan, Options) (string, error)

var allEmitters = []struct {
	name string
	fn   emitFunc
}{
	{"rust", Rust},
	{"go", Go},
	{"typescript", TypeScript},
	{"csharp", CSharp},
	{"julia", Julia},
	{"sql", SQL},
}

// An unsafe shape must degrade completely: asking for parallel and not
// asking at all produce byte-identical text.
func TestFallbackIdentity_UnsafeShapes(t *testing.T) {
	shapes := []struct {
		name string
		comp func() *ir.Comprehension
	}{
		{"nested generators", testutil.PairProducts},
		{"opaque source", testutil.OpaqueFilter},
	}
	for _, backend := range allEmitters {
		for _, shape := range shapes {
			t.Run(backend.name+"/"+shape.name, func(t *testing.T) {
				c := shape.comp()

				requested, err := backend.fn(c, classify.Classify(c, true), nil)
				require.NoError(t, err)
				absent, err := backend.fn(c, classify.Classify(c, false), nil)
				require.NoError(t, err)

				assert.Equal(t, absent, requested)
			})
		}
	}
}

// Repeated emission of the same comprehension is byte-identical.
func TestEmitters_Deterministic(t *testing.T) {
	for _, backend := range allEmitters {
		t.Run(backend.name, func(t *testing.T) {
			c := testutil.EvenSquares()
			plan := classify.Classify(c, true)

			first, err := backend.fn(c, plan, nil)
			require.NoError(t, err)
			second, err := backend.fn(c, plan, nil)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}
