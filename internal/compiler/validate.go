package compiler

import (
	"fmt"

	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/workflow"
)

// Validation error codes (E200-E299), continuing the teacher's
// per-concern numbering scheme (E1xx for spec-shape errors, E2xx here for
// ruleset cross-reference errors).
const (
	ErrRulesetNoComponents   = "E200" // no components declared
	ErrRulesetNoPhases       = "E201" // no turn_structure phases declared
	ErrDuplicateComponent    = "E202" // duplicate component definition name
	ErrDuplicateZone         = "E203" // duplicate zone id
	ErrDuplicateAction       = "E204" // duplicate action id
	ErrDuplicateRule         = "E205" // duplicate rule id
	ErrDuplicateTrigger      = "E206" // duplicate trigger id
	ErrUnknownPhaseRef       = "E210" // action/phase references an undeclared phase id
	ErrUnknownZoneRef        = "E211" // action/component references an undeclared zone id
	ErrUnknownRuleRef        = "E212" // action references an undeclared rule id
	ErrUnknownTriggerRef     = "E213" // component references an undeclared trigger id
	ErrEventTriggerNoType    = "E214" // event trigger missing event_type
	ErrStateTriggerNoCond    = "E215" // state trigger missing condition
	ErrWorkflowUnreachable   = "E220" // workflow node cannot reach the end node and has no outgoing edge
)

// ValidationError is a single ruleset validation finding.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled ruleset's internal cross-references and
// structural invariants. It does not fail fast - every finding is
// collected so `matchcore validate` can report them all at once.
func Validate(rs *ir.Ruleset) []ValidationError {
	var errs []ValidationError

	if len(rs.Components) == 0 {
		errs = append(errs, ValidationError{Code: ErrRulesetNoComponents, Field: "components", Message: "at least one component is required"})
	}
	if len(rs.TurnStructure.Phases) == 0 {
		errs = append(errs, ValidationError{Code: ErrRulesetNoPhases, Field: "turn_structure.phases", Message: "at least one phase is required"})
	}

	zoneIDs := stringSet(len(rs.Zones))
	for _, z := range rs.Zones {
		if !zoneIDs.add(z.ID) {
			errs = append(errs, ValidationError{Code: ErrDuplicateZone, Field: "zones", Message: fmt.Sprintf("duplicate zone id %q", z.ID)})
		}
	}

	componentNames := stringSet(len(rs.Components))
	for _, c := range rs.Components {
		if !componentNames.add(c.Name) {
			errs = append(errs, ValidationError{Code: ErrDuplicateComponent, Field: "components", Message: fmt.Sprintf("duplicate component %q", c.Name)})
		}
	}

	ruleIDs := stringSet(len(rs.Rules))
	for _, r := range rs.Rules {
		if !ruleIDs.add(r.ID) {
			errs = append(errs, ValidationError{Code: ErrDuplicateRule, Field: "rules", Message: fmt.Sprintf("duplicate rule id %q", r.ID)})
		}
	}

	triggerIDs := stringSet(len(rs.Triggers))
	for _, t := range rs.Triggers {
		if !triggerIDs.add(t.ID) {
			errs = append(errs, ValidationError{Code: ErrDuplicateTrigger, Field: "triggers", Message: fmt.Sprintf("duplicate trigger id %q", t.ID)})
		}
		errs = append(errs, validateTrigger(t)...)
	}

	phaseIDs := stringSet(len(rs.TurnStructure.Phases))
	for _, p := range rs.TurnStructure.Phases {
		phaseIDs.add(p.ID)
	}

	actionIDs := stringSet(len(rs.Actions))
	for _, a := range rs.Actions {
		if !actionIDs.add(a.ID) {
			errs = append(errs, ValidationError{Code: ErrDuplicateAction, Field: "actions", Message: fmt.Sprintf("duplicate action id %q", a.ID)})
		}
		for _, p := range a.PhaseIDs {
			if !phaseIDs.has(p) {
				errs = append(errs, ValidationError{Code: ErrUnknownPhaseRef, Field: "actions." + a.ID, Message: fmt.Sprintf("references undeclared phase %q", p)})
			}
		}
		for _, z := range a.ZoneIDs {
			if !zoneIDs.has(z) {
				errs = append(errs, ValidationError{Code: ErrUnknownZoneRef, Field: "actions." + a.ID, Message: fmt.Sprintf("references undeclared zone %q", z)})
			}
		}
		for _, rid := range a.ExecuteRuleIDs {
			if !ruleIDs.has(rid) {
				errs = append(errs, ValidationError{Code: ErrUnknownRuleRef, Field: "actions." + a.ID, Message: fmt.Sprintf("references undeclared rule %q", rid)})
			}
		}
	}

	for _, c := range rs.Components {
		for _, tid := range c.TriggerIDs {
			if !triggerIDs.has(tid) {
				errs = append(errs, ValidationError{Code: ErrUnknownTriggerRef, Field: "components." + c.Name, Message: fmt.Sprintf("references undeclared trigger %q", tid)})
			}
		}
		for _, z := range c.ZoneIDs {
			if !zoneIDs.has(z) {
				errs = append(errs, ValidationError{Code: ErrUnknownZoneRef, Field: "components." + c.Name, Message: fmt.Sprintf("references undeclared zone %q", z)})
			}
		}
	}

	if rs.WorkflowGraph != nil {
		for _, id := range workflow.Reachable(*rs.WorkflowGraph) {
			errs = append(errs, ValidationError{Code: ErrWorkflowUnreachable, Field: "workflow_graph", Message: fmt.Sprintf("node %q cannot reach the end node and has no outgoing edge", id)})
		}
	}

	return errs
}

func validateTrigger(t ir.TriggerDef) []ValidationError {
	var errs []ValidationError
	switch t.Kind {
	case ir.TriggerState:
		if t.Condition == nil {
			errs = append(errs, ValidationError{Code: ErrStateTriggerNoCond, Field: "triggers." + t.ID, Message: "state trigger requires a condition"})
		}
	default:
		if t.EventType == "" {
			errs = append(errs, ValidationError{Code: ErrEventTriggerNoType, Field: "triggers." + t.ID, Message: "event trigger requires event_type"})
		}
	}
	return errs
}

type idSet map[string]bool

func stringSet(sizeHint int) idSet {
	return make(idSet, sizeHint)
}

// add reports whether id was newly inserted (false means it was already present).
func (s idSet) add(id string) bool {
	if s[id] {
		return false
	}
	s[id] = true
	return true
}

func (s idSet) has(id string) bool {
	return s[id]
}
