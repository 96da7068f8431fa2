package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative conformance test: a board setup, a sequence
// of actions/inputs to drive, and assertions checked against the
// resulting event log and final state.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Ruleset is a path to a compiled ruleset JSON file, resolved
	// relative to the scenario file's own directory.
	Ruleset string   `yaml:"ruleset"`
	Players []string `yaml:"players"`
	Seed    int64    `yaml:"seed"`

	Setup      []SetupStep `yaml:"setup"`
	Flow       []FlowStep  `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions"`
}

// SetupStep instantiates one component before BeginGame, optionally
// binding it to a name later FlowSteps and Assertions can reference.
type SetupStep struct {
	Bind       string                 `yaml:"bind"`
	Component  string                 `yaml:"component"`
	Zone       string                 `yaml:"zone"`
	Controller string                 `yaml:"controller"`
	Props      map[string]interface{} `yaml:"props"`
	Keywords   []string               `yaml:"keywords"`
}

// FlowStep is one step of play: either a player action (Action set) or
// a response to a pending workflow input (Input set). Exactly one of
// the two must be set.
type FlowStep struct {
	Action  string              `yaml:"action"`
	Player  string              `yaml:"player"`
	Targets map[string][]string `yaml:"targets"` // target slot name -> bound component names

	Input string `yaml:"input"` // pending input id to submit, alternative to Action
}

// Assertion checks one property of a completed scenario run. Which
// fields are meaningful depends on Type; see package doc.
type Assertion struct {
	Type string `yaml:"type"`

	EventType string `yaml:"event_type"`
	Count     int    `yaml:"count"`
	Order     []string `yaml:"order"`

	Phase string `yaml:"phase"`
	Ended *bool  `yaml:"ended"`

	Bind     string `yaml:"bind"`
	Resource string `yaml:"resource"`
	Amount   int64  `yaml:"amount"`
	Zone     string `yaml:"zone"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read scenario %s: %w", path, err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("harness: parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("harness: scenario %s has no name", path)
	}
	return &sc, nil
}
