package ir

import (
	"encoding/json"
	"fmt"
)

// ComponentDef describes the shape of a component: the resources it
// carries, the zones it may legally occupy, and the triggers every
// instance is created with (copied onto the instance at creation time,
// per internal/component's grounding in component.py).
type ComponentDef struct {
	Name       string           `json:"name"`
	Resources  []ResourceSchema `json:"resources"`
	ZoneIDs    []string         `json:"zone_ids,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
	TriggerIDs []string         `json:"trigger_ids,omitempty"` // ids into Ruleset.Triggers
}

// ResourceKind controls how a resource's per-turn bookkeeping behaves.
type ResourceKind string

const (
	ResourceConsumable  ResourceKind = "consumable"  // spend depletes, resets on turn/phase boundary
	ResourceTracked     ResourceKind = "tracked"     // running counter, never auto-resets
	ResourceAccumulating ResourceKind = "accumulating" // carries over between turns
	ResourceBinary      ResourceKind = "binary"      // 0/1 flag, e.g. "attacked this turn"
)

// ResourceSchema is a named, typed resource slot a component definition grants.
type ResourceSchema struct {
	Name    string       `json:"name"`
	Kind    ResourceKind `json:"kind"`
	Default int64        `json:"default"`
}

// ZoneVisibility is informational metadata about a zone's information status.
// Enforcement (hiding zone contents from a remote viewer) is out of scope -
// there is no transport layer here, only the gameplay contract.
type ZoneVisibility string

const (
	ZonePublic  ZoneVisibility = "public"
	ZonePrivate ZoneVisibility = "private"
	ZoneHidden  ZoneVisibility = "hidden"
)

// ZoneDef describes a named location components can occupy.
type ZoneDef struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Visibility ZoneVisibility `json:"visibility"`
	Ordered    bool           `json:"ordered"` // false = set semantics, true = stack/queue semantics
}

// ActionTiming controls whether an action passes through the stack or
// resolves immediately.
type ActionTiming string

const (
	TimingStack   ActionTiming = "stack"
	TimingInstant ActionTiming = "instant"
)

// ActionTarget describes one target slot an action requires at invocation time.
type ActionTarget struct {
	Name     string   `json:"name"`
	Selector Selector `json:"selector"`
	Count    int      `json:"count"`
}

// ActionDef is a legal move players can submit.
type ActionDef struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Timing          ActionTiming   `json:"timing"`
	PhaseIDs        []string       `json:"phase_ids,omitempty"`
	ZoneIDs         []string       `json:"zone_ids,omitempty"`
	Preconditions   []Predicate    `json:"preconditions,omitempty"`
	Costs           []EffectDef    `json:"costs,omitempty"`
	Targets         []ActionTarget `json:"targets,omitempty"`
	ExecuteRuleIDs  []string       `json:"execute_rule_ids"`
}

// RuleDef is a named, parameterized effect pipeline invoked by id from
// triggers, actions, or other rules (execute_rule).
type RuleDef struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Parameters []NamedArg  `json:"parameters,omitempty"`
	Effects    []EffectDef `json:"effects"`
}

// NamedArg is a named, typed parameter.
type NamedArg struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ActiveWhile gates when a trigger is eligible for discovery: the active
// player's current zone/phase context must intersect these sets (empty
// means unconditionally active).
type ActiveWhile struct {
	ZoneIDs  []string `json:"zone_ids,omitempty"`
	PhaseIDs []string `json:"phase_ids,omitempty"`
}

// ScopeMode controls which components caused_by resolves against for a trigger.
type ScopeMode string

const (
	ScopeSelf     ScopeMode = "self"
	ScopeAll      ScopeMode = "all"
	ScopeOpponent ScopeMode = "opponent"
	ScopeFlow     ScopeMode = "flow"
	ScopeGlobal   ScopeMode = "global"
	ScopeKeyed    ScopeMode = "keyed"
)

// ValidScopeModes enumerates the accepted scope mode strings.
var ValidScopeModes = map[ScopeMode]bool{
	ScopeSelf: true, ScopeAll: true, ScopeOpponent: true,
	ScopeFlow: true, ScopeGlobal: true, ScopeKeyed: true,
}

// ScopeSpec is a trigger's caused_by scoping declaration.
type ScopeSpec struct {
	Mode ScopeMode `json:"mode"`
	Key  string    `json:"key,omitempty"` // field name, for keyed mode
}

// TriggerKind distinguishes event-triggered subscriptions (fire in
// response to a dispatched event) from state-based ones (standing
// predicate polled by the state-watcher engine whenever state is dirty).
type TriggerKind string

const (
	TriggerEvent TriggerKind = "event"
	TriggerState TriggerKind = "state"
)

// TriggerDef declares a reaction-producing subscription. Event triggers
// are indexed by the event bus on EventType+Filters; state triggers
// carry no EventType and are polled by the state-watcher engine via
// Condition instead.
//
// Discovery order across triggers with equal priority falls back to
// registration order (see DESIGN.md, Open Question: trigger priority).
type TriggerDef struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Kind        TriggerKind       `json:"kind"`
	EventType   string            `json:"event_type,omitempty"` // "*" subscribes to all event types
	Filters     map[string]string `json:"filters,omitempty"`
	Condition   *Predicate        `json:"condition,omitempty"` // event: extra runtime predicate; state: the standing predicate
	ActiveWhile *ActiveWhile      `json:"active_while,omitempty"`
	Scope       ScopeSpec         `json:"scope"`
	Priority    int               `json:"priority"`
	PreReaction bool              `json:"pre_reaction"` // fires before the event resolves, vs after
	Effects     []EffectDef       `json:"effects"`
}

// KeywordDef bundles effects and implicit triggers a component gains while
// it carries the keyword (e.g. "Flying" grants an evasion trigger).
type KeywordDef struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	GrantedTriggers []TriggerDef `json:"granted_triggers,omitempty"`
	Effects         []EffectDef  `json:"effects,omitempty"`
}

// PhaseExitType controls how a phase decides it is done.
type PhaseExitType string

const (
	ExitOnNoActions  PhaseExitType = "exit_on_no_actions"
	ExitManual       PhaseExitType = "exit_manual"
	ExitOnStepComplete PhaseExitType = "exit_on_step_complete"
)

// StepDef is an informational sub-step within a phase.
type StepDef struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Mandatory   bool   `json:"mandatory"`
}

// PhaseDef is one phase of a turn.
type PhaseDef struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Steps    []StepDef     `json:"steps,omitempty"`
	ExitType PhaseExitType `json:"exit_type"`
}

// TurnStructure is the ordered phase cycle every turn follows.
type TurnStructure struct {
	Phases            []PhaseDef `json:"phases"`
	InitialPhaseID    string     `json:"initial_phase_id"`
	MaxTurnsPerPlayer int        `json:"max_turns_per_player,omitempty"` // 0 = unbounded
}

// Ruleset is the complete compiled form of an authored game: every
// component, zone, action, rule, trigger, keyword and the turn cycle
// that binds them together.
type Ruleset struct {
	Name          string         `json:"name"`
	Components    []ComponentDef `json:"components"`
	Zones         []ZoneDef      `json:"zones"`
	Actions       []ActionDef    `json:"actions"`
	Rules         []RuleDef      `json:"rules"`
	Triggers      []TriggerDef   `json:"triggers"`
	Keywords      []KeywordDef   `json:"keywords,omitempty"`
	TurnStructure TurnStructure  `json:"turn_structure"`
	WorkflowGraph *WorkflowGraph `json:"workflow_graph,omitempty"`
}

// FromJSON decodes the wire form of a ruleset (spec.md §6: "Implementations
// must accept any field ordering and ignore unknown fields") - the JSON IR
// contract authored rulesets compile down to, and that a host without
// internal/compiler's CUE toolchain can submit directly.
func RulesetFromJSON(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("ir: decode ruleset: %w", err)
	}
	return &rs, nil
}

// ToJSON encodes the ruleset to its wire form.
func (rs *Ruleset) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ir: encode ruleset: %w", err)
	}
	return data, nil
}
