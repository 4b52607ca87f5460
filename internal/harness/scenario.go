package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pan-ssds/ptest/internal/state"
)

// Scenario is a declarative single-satellite test case.
type Scenario struct {
	// Name uniquely identifies the case.
	Name string `yaml:"name"`

	// Description explains what the case checks.
	Description string `yaml:"description"`

	// Setup steps run before the case starts. Expectations are allowed
	// but are usually left to Run.
	Setup []Step `yaml:"setup,omitempty"`

	// Run steps make up the case body. The case finishes after the last one.
	Run []Step `yaml:"run"`
}

// Step is one scenario instruction. Exactly one of Write, Cycle, Expect,
// Require and Log is set.
type Step struct {
	// Write names a field to write; Value or Enum supplies the value.
	Write string   `yaml:"write,omitempty"`
	Value any      `yaml:"value,omitempty"`
	Enum  *EnumRef `yaml:"enum,omitempty"`

	// Cycle advances the controller this many cycles.
	Cycle int `yaml:"cycle,omitempty"`

	// Expect records a soft assertion.
	Expect *Check `yaml:"expect,omitempty"`

	// Require aborts the case if the check fails.
	Require *Check `yaml:"require,omitempty"`

	// Log sends a line to the diagnostics sink.
	Log string `yaml:"log,omitempty"`

	// Print logs the current value of each named field.
	Print []string `yaml:"print,omitempty"`
}

// EnumRef names an enumerant.
type EnumRef struct {
	Domain string `yaml:"domain"`
	Name   string `yaml:"name"`
}

func (e EnumRef) String() string {
	return e.Domain + "." + e.Name
}

// Check compares a field against an expected value.
type Check struct {
	Field string   `yaml:"field"`
	Op    string   `yaml:"op"`
	Value any      `yaml:"value,omitempty"`
	Enum  *EnumRef `yaml:"enum,omitempty"`

	// Message replaces the generated assertion message.
	Message string `yaml:"message,omitempty"`
}

// Comparison operators.
const (
	OpEq = "eq"
	OpNe = "ne"
	OpLt = "lt"
	OpLe = "le"
	OpGt = "gt"
	OpGe = "ge"
)

var validOps = map[string]bool{OpEq: true, OpNe: true, OpLt: true, OpLe: true, OpGt: true, OpGe: true}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and every step
// is well formed. Enumerants are resolved when the case runs, not here.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Run) == 0 {
		return fmt.Errorf("run list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Run {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("run[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(s *Step) error {
	set := 0
	for _, present := range []bool{s.Write != "", s.Cycle != 0, s.Expect != nil, s.Require != nil, s.Log != "", len(s.Print) > 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of write, cycle, expect, require, log, print is required")
	}
	if s.Write == "" && (s.Value != nil || s.Enum != nil) {
		return fmt.Errorf("value and enum are only valid with write")
	}

	switch {
	case s.Write != "":
		return validateOperand(s.Value, s.Enum)
	case s.Cycle != 0:
		if s.Cycle < 0 {
			return fmt.Errorf("cycle must be positive, got %d", s.Cycle)
		}
	case s.Expect != nil:
		return validateCheck(s.Expect)
	case s.Require != nil:
		return validateCheck(s.Require)
	}
	return nil
}

func validateCheck(c *Check) error {
	if c.Field == "" {
		return fmt.Errorf("field is required")
	}
	if !validOps[c.Op] {
		return fmt.Errorf("unknown op %q", c.Op)
	}
	return validateOperand(c.Value, c.Enum)
}

func validateOperand(value any, enum *EnumRef) error {
	if (value == nil) == (enum == nil) {
		return fmt.Errorf("exactly one of value and enum is required")
	}
	if enum != nil {
		if enum.Domain == "" || enum.Name == "" {
			return fmt.Errorf("enum needs domain and name")
		}
		return nil
	}
	if _, err := state.FromAny(value); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	return nil
}
