package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/config"
)

// Scenario is one test session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session names the journal session. Defaults to Name.
	Session string `yaml:"session,omitempty"`

	// Config is the inline session configuration.
	Config *config.Config `yaml:"config,omitempty"`

	// ConfigFile is a YAML or CUE configuration file, relative to the
	// scenario file. Exactly one of Config and ConfigFile is set.
	ConfigFile string `yaml:"config_file,omitempty"`

	// Setup establishes the session. Setup steps must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the steps under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace, journal and ledger after the flow.
	Assertions []Assertion `yaml:"assertions"`
}

// Step actions.
const (
	ActionIdentity = "identity"
	ActionSymbol   = "symbol"
	ActionHas      = "has"
	ActionSend     = "send"
	ActionBalance  = "balance"
)

// requiredArgs lists the args each action needs.
var requiredArgs = map[string][]string{
	ActionIdentity: {"alias"},
	ActionSymbol:   {"name"},
	ActionHas:      {"alias", "amount", "symbol"},
	ActionSend:     {"from", "to", "amount", "symbol"},
	ActionBalance:  {"alias", "amount", "symbol"},
}

// Step is a single World operation.
type Step struct {
	// Action is one of identity, symbol, has, send, balance.
	Action string `yaml:"action"`

	// Args are the action arguments. Amounts are decimal strings.
	Args map[string]string `yaml:"args"`

	// Expect, if set, requires the step to fail with the given code.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected step failure.
type ExpectClause struct {
	// Error is the expected failure code, e.g. "INSUFFICIENT_FUNDS".
	Error string `yaml:"error"`
}

// Assertion validates the trace, the journal or the ledger.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count,
	// transfer_count, final_state, balance.
	Type string `yaml:"type"`

	// Action is the step action (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are expected step args, subset match (trace_contains).
	Args map[string]string `yaml:"args,omitempty"`

	// Outcome filters by step or transfer outcome (trace_contains,
	// transfer_count). Empty matches any.
	Outcome string `yaml:"outcome,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count, transfer_count).
	Count int `yaml:"count,omitempty"`

	// Table is the journal table (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies row filters (final_state). The current session is
	// added automatically.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values, subset match (final_state).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Alias, Amount and Symbol name the expected balance (balance).
	Alias  string `yaml:"alias,omitempty"`
	Amount string `yaml:"amount,omitempty"`
	Symbol string `yaml:"symbol,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTransferCount = "transfer_count"
	AssertFinalState    = "final_state"
	AssertBalance       = "balance"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A config_file is resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.ConfigFile != "" {
		if scenario.Config != nil {
			return nil, fmt.Errorf("invalid scenario: config and config_file are mutually exclusive")
		}
		cfgPath := scenario.ConfigFile
		if !filepath.IsAbs(cfgPath) {
			cfgPath = filepath.Join(filepath.Dir(path), cfgPath)
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
		scenario.Config = cfg
	} else if scenario.Config != nil {
		scenario.Config.Normalize()
		if err := scenario.Config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario: config: %w", err)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// SessionName returns the journal session of the scenario.
func (s *Scenario) SessionName() string {
	if s.Session != "" {
		return s.Session
	}
	return s.Name
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Config == nil {
		return fmt.Errorf("config or config_file is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot expect an error", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Error == "" {
			return fmt.Errorf("flow[%d].expect: error is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(step Step) error {
	if step.Action == "" {
		return fmt.Errorf("action is required")
	}
	required, ok := requiredArgs[step.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", step.Action)
	}
	for _, arg := range required {
		if step.Args[arg] == "" {
			return fmt.Errorf("%s: arg %q is required", step.Action, arg)
		}
	}
	if a, ok := step.Args["amount"]; ok {
		if _, err := amount.Parse(a); err != nil {
			return fmt.Errorf("%s: %w", step.Action, err)
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
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTransferCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for transfer_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertBalance:
		if a.Alias == "" || a.Symbol == "" {
			return fmt.Errorf("assertions[%d]: alias and symbol are required for balance", index)
		}
		if _, err := amount.Parse(a.Amount); err != nil {
			return fmt.Errorf("assertions[%d]: balance amount: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
