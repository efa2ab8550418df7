package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wpine215/a32nx/internal/ir"
)

// AircraftA32NX selects the built-in A320 configuration and systems model.
const AircraftA32NX = "a32nx"

// Scenario defines a simulation test scenario.
// A scenario builds a simulation, feeds it host events and asserts on the
// host, the simulation and the recorded trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Aircraft selects a built-in configuration ("a32nx"). Mutually
	// exclusive with Config and ConfigFile.
	Aircraft string `yaml:"aircraft,omitempty"`

	// Config is inline CUE configuration source.
	Config string `yaml:"config,omitempty"`

	// ConfigFile is a CUE configuration file, relative to the scenario file.
	ConfigFile string `yaml:"config_file,omitempty"`

	// Model is a scripted model. Without it a configured simulation steps a
	// model that does nothing and the a32nx aircraft steps its systems model.
	Model *ModelSpec `yaml:"model,omitempty"`

	// Seed seeds the model random source.
	Seed uint64 `yaml:"seed,omitempty"`

	// Settings are model settings, merged over those in the configuration.
	Settings map[string]float64 `yaml:"settings,omitempty"`

	// Host holds the host variable values before the first event.
	Host []HostValue `yaml:"host,omitempty"`

	// Events are applied in order. Processing stops at the first
	// runtime error.
	Events []Step `yaml:"events"`

	// Record lists the qualified variable names kept in the golden trace.
	// Empty keeps every variable.
	Record []string `yaml:"record,omitempty"`

	// Assertions validate the final state and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// ModelSpec describes a testutil.ScriptedModel.
type ModelSpec struct {
	Copies []CopySpec  `yaml:"copies,omitempty"`
	Writes []HostValue `yaml:"writes,omitempty"`
}

// CopySpec is one model copy. Scale zero means 1.
type CopySpec struct {
	From  ir.Variable `yaml:"from"`
	To    ir.Variable `yaml:"to"`
	Scale float64     `yaml:"scale,omitempty"`
}

// HostValue is a variable and its value.
type HostValue struct {
	Variable ir.Variable `yaml:"variable"`
	Value    float64     `yaml:"value"`
}

// Step is one scenario event. Exactly one field is set.
type Step struct {
	// Frame ticks the simulation by this duration ("16ms").
	Frame Duration `yaml:"frame,omitempty"`
	// Repeat ticks Frame this many times. Zero means once.
	Repeat int `yaml:"repeat,omitempty"`

	// Set changes host variables between frames.
	Set []HostValue `yaml:"set,omitempty"`

	ActivateFailure   *int `yaml:"activate_failure,omitempty"`
	DeactivateFailure *int `yaml:"deactivate_failure,omitempty"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML parses "16ms", "1s" and similar.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Assertion validates final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "value": simulation storage value of Variable
	// - "host": host value of Variable
	// - "failure_active": whether Failure is active at the end
	// - "error": the run stopped with runtime error Code
	// - "trace_count": number of Event entries in the trace
	Type string `yaml:"type"`

	Variable *ir.Variable `yaml:"variable,omitempty"`
	Value    *float64     `yaml:"value,omitempty"`
	// Tolerance is the allowed absolute difference for value and host.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	Failure string `yaml:"failure,omitempty"`
	Active  *bool  `yaml:"active,omitempty"`

	Code string `yaml:"code,omitempty"`

	Event string `yaml:"event,omitempty"`
	Count *int   `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertValue         = "value"
	AssertHost          = "host"
	AssertFailureActive = "failure_active"
	AssertError         = "error"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// ConfigFile is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.ConfigFile != "" && !filepath.IsAbs(scenario.ConfigFile) {
		scenario.ConfigFile = filepath.Join(filepath.Dir(path), scenario.ConfigFile)
	}
	if scenario.ConfigFile != "" {
		if _, err := os.Stat(scenario.ConfigFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: config file not found: %s", scenario.ConfigFile)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	sources := 0
	for _, set := range []bool{s.Aircraft != "", s.Config != "", s.ConfigFile != ""} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return fmt.Errorf("one of aircraft, config or config_file is required")
	case sources > 1:
		return fmt.Errorf("aircraft, config and config_file are mutually exclusive")
	case s.Aircraft != "" && s.Aircraft != AircraftA32NX:
		return fmt.Errorf("unknown aircraft %q", s.Aircraft)
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Events {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step) error {
	set := 0
	if step.Frame != 0 {
		set++
	}
	if len(step.Set) > 0 {
		set++
	}
	if step.ActivateFailure != nil {
		set++
	}
	if step.DeactivateFailure != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("events[%d]: exactly one of frame, set, activate_failure or deactivate_failure is required", index)
	}
	if step.Frame < 0 {
		return fmt.Errorf("events[%d]: frame must not be negative", index)
	}
	if step.Repeat < 0 || (step.Repeat > 0 && step.Frame == 0) {
		return fmt.Errorf("events[%d]: repeat needs a frame and must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertValue, AssertHost:
		if a.Variable == nil {
			return fmt.Errorf("assertions[%d]: variable is required for %s", index, a.Type)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertFailureActive:
		if a.Failure == "" || a.Active == nil {
			return fmt.Errorf("assertions[%d]: failure and active are required for failure_active", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	case AssertTraceCount:
		if a.Event != EventTick && a.Event != EventFailure {
			return fmt.Errorf("assertions[%d]: event must be %q or %q for trace_count", index, EventTick, EventFailure)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
