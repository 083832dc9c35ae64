package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rxnenum/internal/engine"
)

// MainCursor is the cursor a scenario builds; operations without "on"
// apply to it.
const MainCursor = "main"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sizes are the pool sizes the cursor walks.
	Sizes []int `yaml:"sizes"`

	// Strategy selects the walk.
	Strategy StrategySpec `yaml:"strategy"`

	// Reject lists the positions a filtered walk drops.
	Reject [][]int `yaml:"reject,omitempty"`

	// Steps are the operations, run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the cursors after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// StrategySpec is the YAML form of engine.Spec.
type StrategySpec struct {
	Kind  string `yaml:"kind"`
	Order string `yaml:"order,omitempty"`
	Seed  uint64 `yaml:"seed,omitempty"`
}

// Spec parses the strategy.
func (s StrategySpec) Spec() (engine.Spec, error) {
	kind := engine.KindCartesian
	if s.Kind != "" {
		k, err := engine.ParseKind(s.Kind)
		if err != nil {
			return engine.Spec{}, err
		}
		kind = k
	}
	order, err := engine.ParseOrder(s.Order)
	if err != nil {
		return engine.Spec{}, err
	}
	return engine.Spec{Kind: kind, Order: order, Seed: s.Seed}, nil
}

// Step is one cursor operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// On names the cursor the operation applies to. Default "main".
	On string `yaml:"on,omitempty"`

	// Count is the number of positions for advance and skip. Default 1.
	Count uint64 `yaml:"count,omitempty"`

	// To is the target step of seek.
	To *uint64 `yaml:"to,omitempty"`

	// Slot names the saved state (save, restore) or the new cursor (clone).
	Slot string `yaml:"slot,omitempty"`

	// Expect lists the positions an advance must produce.
	Expect [][]int `yaml:"expect,omitempty"`

	// ExpectError names the error the operation must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// cursor returns the cursor name the step applies to.
func (s Step) cursor() string {
	if s.On == "" {
		return MainCursor
	}
	return s.On
}

// count returns the step's count, defaulting to 1.
func (s Step) count() uint64 {
	if s.Count == 0 {
		return 1
	}
	return s.Count
}

// Operations.
const (
	OpAdvance = "advance"
	OpSkip    = "skip"
	OpSeek    = "seek"
	OpReset   = "reset"
	OpSave    = "save"
	OpRestore = "restore"
	OpClone   = "clone"
)

// Assertion validates a cursor after the last step.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// On names the cursor. Default "main".
	On string `yaml:"on,omitempty"`

	// Step is the expected cursor step (state).
	Step *uint64 `yaml:"step,omitempty"`

	// Exhausted is the expected exhaustion flag (state).
	Exhausted *bool `yaml:"exhausted,omitempty"`

	// Count is the expected number of produced positions (emitted).
	Count *int `yaml:"count,omitempty"`

	// Other names the cursor whose positions must match (same_as).
	Other string `yaml:"other,omitempty"`
}

func (a Assertion) cursor() string {
	if a.On == "" {
		return MainCursor
	}
	return a.On
}

// Assertion types.
const (
	AssertState    = "state"
	AssertEmitted  = "emitted"
	AssertDistinct = "distinct"
	AssertCovers   = "covers"
	AssertSameAs   = "same_as"
)

// Error names accepted by expect_error.
const (
	ErrNameExhausted            = "exhausted"
	ErrNameOutOfRange           = "out_of_range"
	ErrNameCorruptState         = "corrupt_state"
	ErrNameUnsupported          = "unsupported"
	ErrNameInvalidConfiguration = "invalid_configuration"
)

var errorNames = []string{
	ErrNameExhausted,
	ErrNameOutOfRange,
	ErrNameCorruptState,
	ErrNameUnsupported,
	ErrNameInvalidConfiguration,
}

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

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
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

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Sizes) == 0 {
		return fmt.Errorf("sizes list is required and must be non-empty")
	}
	spec, err := s.Strategy.Spec()
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if len(s.Reject) > 0 && spec.Kind != engine.KindFiltered {
		return fmt.Errorf("reject requires a filtered strategy")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	switch s.Op {
	case OpAdvance:
		if len(s.Expect) > 0 && uint64(len(s.Expect)) != s.count() {
			return fmt.Errorf("steps[%d]: expect lists %d positions, count is %d", index, len(s.Expect), s.count())
		}
	case OpSkip, OpReset:
	case OpSeek:
		if s.To == nil {
			return fmt.Errorf("steps[%d]: to is required for seek", index)
		}
	case OpSave, OpRestore, OpClone:
		if s.Slot == "" {
			return fmt.Errorf("steps[%d]: slot is required for %s", index, s.Op)
		}
		if s.Op == OpClone && s.Slot == MainCursor {
			return fmt.Errorf("steps[%d]: cannot clone into %q", index, MainCursor)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	if s.ExpectError != "" && !lo.Contains(errorNames, s.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown expect_error %q", index, s.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertState:
		if a.Step == nil && a.Exhausted == nil {
			return fmt.Errorf("assertions[%d]: step or exhausted is required for state", index)
		}
	case AssertEmitted:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for emitted", index)
		}
	case AssertDistinct, AssertCovers:
	case AssertSameAs:
		if a.Other == "" {
			return fmt.Errorf("assertions[%d]: other is required for same_as", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
