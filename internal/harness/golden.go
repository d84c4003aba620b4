package harness

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/emit"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/parser"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/render"
)

// RenderOutput captures one executed render step.
type RenderOutput struct {
	Target string
	Header string // deterministic step header used in the snapshot
	Safe   bool
	Reason string
	Text   string
}

// Result is one scenario execution.
type Result struct {
	// RunID correlates log lines from one execution. It is fresh per
	// run and deliberately excluded from the snapshot bytes.
	RunID string

	ScenarioName string
	IRHash       string
	Outputs      []RenderOutput
}

// Run parses the scenario's comprehension and executes every render
// step.
func Run(scenario *Scenario) (*Result, error) {
	comp, err := parser.Parse(scenario.Code)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	hash, err := ir.Hash(comp)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{
		RunID:        uuid.NewString(),
		ScenarioName: scenario.Name,
		IRHash:       hash,
	}
	for _, step := range scenario.Renders {
		opts := emit.Options(step.Options)
		text, plan, err := render.RenderPlan(step.Target, comp, opts)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: render %s: %w", scenario.Name, step.Target, err)
		}
		result.Outputs = append(result.Outputs, RenderOutput{
			Target: step.Target,
			Header: stepHeader(step),
			Safe:   plan.Safe,
			Reason: string(plan.Reason),
			Text:   text,
		})
	}
	return result, nil
}

// stepHeader renders "target key=value ..." with sorted keys.
func stepHeader(step RenderStep) string {
	parts := []string{step.Target}
	for _, k := range step.optionKeys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, step.Options[k]))
	}
	return strings.Join(parts, " ")
}

// Snapshot is the byte-exact representation pinned by the golden file.
// Everything in it is deterministic; the run id never appears.
func (r *Result) Snapshot() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", r.ScenarioName)
	fmt.Fprintf(&buf, "ir_hash: %s\n", r.IRHash)
	for _, out := range r.Outputs {
		fmt.Fprintf(&buf, "\n--- %s (safe=%v reason=%s) ---\n", out.Header, out.Safe, out.Reason)
		buf.WriteString(out.Text)
		if !strings.HasSuffix(out.Text, "\n") {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares the snapshot against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, result.Snapshot())
	return nil
}
