package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios execute a flow of actions against a fresh store and assert
// on the resulting event log and materialized state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// User is the partition owner. Defaults to "u1".
	User string `yaml:"user,omitempty"`

	// Setup contains actions invoked before the main flow.
	// Setup actions must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main test flow. Each step can declare an
	// expected error; steps without one must succeed.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final log and state.
	// Supported types: log_contains, log_order, log_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single action invocation.
type Step struct {
	// Action is the action name (e.g. "category.create").
	Action string `yaml:"action"`

	// Args contains the action arguments. String values of the form
	// "$alias" resolve to ids captured by earlier steps.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// As captures the id returned by the action under an alias for
	// later steps and assertions to reference.
	As string `yaml:"as,omitempty"`

	// Expect names the error the step must fail with
	// ("active_session", "schema_violation"). Empty means success.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the final log or state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "log_contains": the event kind appears in the log
	// - "log_order": event kinds appear in order (gaps allowed)
	// - "log_count": the event kind appears exactly N times
	// - "final_state": a table row matching Where has the Expect values
	Type string `yaml:"type"`

	// Event is the versioned event kind (used by log_contains, log_count).
	Event string `yaml:"event,omitempty"`

	// Events is the expected kind order (used by log_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (used by log_count).
	Count int `yaml:"count,omitempty"`

	// Table is the snapshot table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where selects rows; all fields must match exactly. "$alias"
	// values resolve like step args.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values, subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertLogContains = "log_contains"
	AssertLogOrder    = "log_order"
	AssertLogCount    = "log_count"
	AssertFinalState  = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:".
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertLogContains, AssertLogCount:
			if a.Event == "" {
				return fmt.Errorf("assertion %d: event is required for %s", i, a.Type)
			}
		case AssertLogOrder:
			if len(a.Events) == 0 {
				return fmt.Errorf("assertion %d: events list is required for log_order", i)
			}
		case AssertFinalState:
			if a.Table == "" {
				return fmt.Errorf("assertion %d: table is required for final_state", i)
			}
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	if s.User == "" {
		s.User = "u1"
	}
	return nil
}
