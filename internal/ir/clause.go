package ir

// EffectKind is the closed tagged-union discriminator for effect pipelines.
type EffectKind string

const (
	EffectExecuteRule EffectKind = "execute_rule"
	EffectEmitEvent   EffectKind = "emit_event"
	EffectSequence    EffectKind = "sequence"
	EffectIf          EffectKind = "if"
	EffectForEach     EffectKind = "for_each"
	EffectModifyState EffectKind = "modify_state"
)

// StateOp enumerates the modify_state effect's recognized operations.
// Each one is implemented by emitting the corresponding state-change event
// rather than mutating state directly (see spec's rule executor design).
type StateOp string

const (
	OpSetPhase     StateOp = "set_phase"
	OpAddResource  StateOp = "add_resource"
	OpMoveCard     StateOp = "move_card"
	OpDealDamage   StateOp = "deal_damage"
)

// EffectDef is a single node of an effect pipeline. Only the fields
// relevant to Kind are populated; unused fields must be left zero.
type EffectDef struct {
	Kind EffectKind `json:"kind"`

	// execute_rule
	RuleID string            `json:"rule_id,omitempty"`
	Args   map[string]string `json:"args,omitempty"` // param name -> expression string

	// emit_event
	EventType string            `json:"event_type,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`

	// sequence / for_each body
	Effects []EffectDef `json:"effects,omitempty"`

	// if
	Condition Predicate   `json:"condition,omitempty"`
	Then      []EffectDef `json:"then,omitempty"`
	Else      []EffectDef `json:"else,omitempty"`

	// for_each
	Over    Selector `json:"over,omitempty"`
	Binding string   `json:"binding,omitempty"` // name bound to each candidate ("it")

	// modify_state
	StateOp      StateOp `json:"state_op,omitempty"`
	Target       string  `json:"target,omitempty"` // "self", "it", or a binding name
	ResourceName string  `json:"resource_name,omitempty"`
	Amount       Expr    `json:"amount,omitempty"`
	ZoneID       string  `json:"zone_id,omitempty"`
}
