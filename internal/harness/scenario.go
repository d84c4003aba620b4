// Package harness runs rendering scenarios and pins their emitted
// code with golden files. A scenario names one comprehension and a
// list of (target, options) render steps; the snapshot of all emitted
// texts is a byte-exact compatibility contract, so any unintended
// change in emission for an existing step fails the golden diff.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one rendering scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario pins down.
	Description string `yaml:"description"`

	// Code is the comprehension source text.
	Code string `yaml:"code"`

	// Renders lists the render steps executed in order.
	Renders []RenderStep `yaml:"renders"`
}

// RenderStep is one render invocation within a scenario.
type RenderStep struct {
	// Target is the backend id.
	Target string `yaml:"target"`

	// Options is the caller-side option bag. Keys outside the
	// target's accepted set are exercised deliberately in some
	// scenarios - the adapter must drop them silently.
	Options map[string]any `yaml:"options,omitempty"`
}

// optionKeys returns the step's option names sorted, for deterministic
// snapshot headers.
func (s RenderStep) optionKeys() []string {
	keys := make([]string, 0, len(s.Options))
	for k := range s.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadScenario reads one scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Code == "" {
		return nil, fmt.Errorf("scenario %s: code is required", path)
	}
	if len(s.Renders) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one render step is required", path)
	}
	return &s, nil
}

// LoadScenarios reads every *.yaml scenario in a directory, sorted by
// filename.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario dir: %w", err)
	}
	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		s, err := LoadScenario(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
