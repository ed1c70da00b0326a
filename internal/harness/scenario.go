package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/objscope/internal/artifact"
)

// Scenario is one recorded comparison.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Variants holds the transcripts per level ("O0", "O2").
	Variants map[string]Variant `yaml:"variants"`

	// Assertions are evaluated against the comparison report.
	Assertions []Assertion `yaml:"assertions"`

	// Golden, when set, is a file holding the expected report JSON.
	// Relative paths are resolved against the scenario file.
	Golden string `yaml:"golden,omitempty"`
}

// Variant is the recorded tool output for one level.
type Variant struct {
	// Missing simulates a level that was never built.
	Missing bool `yaml:"missing,omitempty"`

	Objdump string `yaml:"objdump,omitempty"`
	Nm      string `yaml:"nm,omitempty"`
	Readelf string `yaml:"readelf,omitempty"`
	Size    string `yaml:"size,omitempty"`

	// Failures records tools that exited non-zero, keyed by tool name.
	Failures map[string]ToolFailure `yaml:"failures,omitempty"`
}

// ToolFailure is a recorded failing run.
type ToolFailure struct {
	ExitCode int    `yaml:"exit_code"`
	Stderr   string `yaml:"stderr"`
	TimedOut bool   `yaml:"timed_out,omitempty"`
}

// Assertion validates the comparison report.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Facet is used by facet_present and facet_absent.
	Facet string `yaml:"facet,omitempty"`

	// Level is used by missing_artifact.
	Level string `yaml:"level,omitempty"`

	// Reduction and Percent are used by the *_reduction assertions. Only the
	// fields given are checked.
	Reduction *int64   `yaml:"reduction,omitempty"`
	Percent   *float64 `yaml:"percent,omitempty"`
}

// Assertion type constants.
const (
	AssertFacetPresent         = "facet_present"
	AssertFacetAbsent          = "facet_absent"
	AssertInstructionReduction = "instruction_reduction"
	AssertSizeReduction        = "size_reduction"
	AssertMissingArtifact      = "missing_artifact"
)

// Comparison facet names usable in facet assertions.
var facetNames = map[string]bool{"disassembly": true, "size": true, "symbols": true}

// Tools whose transcripts a Variant can hold.
var toolNames = map[string]bool{"objdump": true, "nm": true, "readelf": true, "size": true}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Golden != "" && !filepath.IsAbs(scenario.Golden) {
		scenario.Golden = filepath.Join(filepath.Dir(path), scenario.Golden)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Variants) == 0 {
		return fmt.Errorf("variants are required")
	}
	for level, v := range s.Variants {
		tag, err := artifact.ParseTag(level)
		if err != nil || string(tag) != level {
			return fmt.Errorf("variants: unknown level %q (use O0 or O2)", level)
		}
		for tool := range v.Failures {
			if !toolNames[tool] {
				return fmt.Errorf("variants.%s.failures: unknown tool %q", level, tool)
			}
		}
	}

	if len(s.Assertions) == 0 && s.Golden == "" {
		return fmt.Errorf("assertions list or golden file is required")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFacetPresent, AssertFacetAbsent:
		if !facetNames[a.Facet] {
			return fmt.Errorf("assertions[%d]: facet must be disassembly, size or symbols for %s", index, a.Type)
		}
	case AssertInstructionReduction, AssertSizeReduction:
		if a.Reduction == nil && a.Percent == nil {
			return fmt.Errorf("assertions[%d]: reduction or percent is required for %s", index, a.Type)
		}
	case AssertMissingArtifact:
		if _, err := artifact.ParseTag(a.Level); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
