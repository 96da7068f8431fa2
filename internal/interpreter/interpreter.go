// Package interpreter is the ruleset interpreter (spec.md §4.7): it
// indexes actions/phases/rules and answers the query surface the match
// actor and any external client need — which actions a player may
// currently take, which actions target a specific object, and whether a
// submitted action is still legal to execute.
//
// Grounded on rule_engine.py's action-filtering-by-phase-and-
// precondition pass, generalized to also compute target option lists
// via internal/expr selectors per spec.md §4.7.
package interpreter

import (
	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/expr"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/matcherr"
	"github.com/teapot-games/matchcore/internal/state"
)

// Interpreter answers legality and metadata queries against a compiled
// ruleset. It holds no match state of its own — every query takes the
// current state explicitly, so it is safe to share across matches
// running the same ruleset.
type Interpreter struct {
	ruleset *ir.Ruleset
	actions map[string]ir.ActionDef
}

// New indexes a ruleset's actions by id.
func New(rs *ir.Ruleset) *Interpreter {
	actions := make(map[string]ir.ActionDef, len(rs.Actions))
	for _, a := range rs.Actions {
		actions[a.ID] = a
	}
	return &Interpreter{ruleset: rs, actions: actions}
}

// Available is one legal action a player may currently submit, with its
// resolved target option lists.
type Available struct {
	Action  ir.ActionDef
	Targets map[string][]component.ID // target slot name -> legal candidates
}

// GetAvailableActions filters the ruleset's actions by current phase and
// evaluates preconditions for the player's side, returning the legal
// subset with resolved target candidate lists.
func (in *Interpreter) GetAvailableActions(st *state.State, player string) ([]Available, error) {
	actor := in.playerComponent(st, player)
	if actor == nil {
		return nil, matcherr.NewInvalidAction("no component controlled by player %q", player)
	}
	var out []Available
	for _, a := range in.ruleset.Actions {
		if !phaseAllows(a, st.CurrentPhaseID) {
			continue
		}
		ctx := expr.NewContext(st.Components, actor)
		ok, err := checkPreconditions(ctx, a.Preconditions)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		targets, err := resolveTargets(ctx, a.Targets)
		if err != nil {
			return nil, err
		}
		if !hasEnoughTargets(a, targets) {
			continue
		}
		out = append(out, Available{Action: a, Targets: targets})
	}
	return out, nil
}

// ObjectAction is a legal action narrowed to one that can be invoked by
// interacting with a specific object, carrying the UI-facing metadata
// get_actions_for_object exposes (spec.md §4.7).
type ObjectAction struct {
	Action          ir.ActionDef
	InteractionMode string
}

// GetActionsForObject further filters available actions by the action's
// declared primary target selector matching the given object.
func (in *Interpreter) GetActionsForObject(st *state.State, player string, objectID component.ID) ([]ObjectAction, error) {
	avail, err := in.GetAvailableActions(st, player)
	if err != nil {
		return nil, err
	}
	var out []ObjectAction
	for _, a := range avail {
		for _, candidates := range a.Targets {
			if containsID(candidates, objectID) {
				out = append(out, ObjectAction{Action: a.Action, InteractionMode: "target_select"})
				break
			}
		}
	}
	return out, nil
}

// ValidateAction rechecks phase, preconditions, and target validity for
// an action a player is about to submit. Returns a matcherr.InvalidAction
// error describing the first failing check, or nil if still legal.
func (in *Interpreter) ValidateAction(actionID string, st *state.State, player string, chosenTargets map[string][]component.ID) error {
	a, ok := in.actions[actionID]
	if !ok {
		return matcherr.NewUnknownReference("action %q not found", actionID)
	}
	actor := in.playerComponent(st, player)
	if actor == nil {
		return matcherr.NewInvalidAction("no component controlled by player %q", player)
	}
	if !phaseAllows(a, st.CurrentPhaseID) {
		return matcherr.NewInvalidAction("action %q not legal in phase %q", actionID, st.CurrentPhaseID)
	}
	ctx := expr.NewContext(st.Components, actor)
	ok, err := checkPreconditions(ctx, a.Preconditions)
	if err != nil {
		return err
	}
	if !ok {
		return matcherr.NewInvalidAction("action %q preconditions not satisfied", actionID)
	}
	legalTargets, err := resolveTargets(ctx, a.Targets)
	if err != nil {
		return err
	}
	for _, slot := range a.Targets {
		chosen := chosenTargets[slot.Name]
		if len(chosen) != slot.Count {
			return matcherr.NewInvalidAction("action %q target slot %q requires %d targets, got %d", actionID, slot.Name, slot.Count, len(chosen))
		}
		legal := legalTargets[slot.Name]
		for _, id := range chosen {
			if !containsID(legal, id) {
				return matcherr.NewInvalidAction("action %q target %d not a legal choice for slot %q", actionID, id, slot.Name)
			}
		}
	}
	return nil
}

// Action looks up a compiled action definition by id.
func (in *Interpreter) Action(id string) (ir.ActionDef, bool) {
	a, ok := in.actions[id]
	return a, ok
}

func (in *Interpreter) playerComponent(st *state.State, player string) *component.Component {
	for _, c := range st.Components.ByController(player) {
		if c.DefinitionName == "Player" {
			return c
		}
	}
	cs := st.Components.ByController(player)
	if len(cs) > 0 {
		return cs[0]
	}
	return nil
}

func phaseAllows(a ir.ActionDef, phaseID string) bool {
	if len(a.PhaseIDs) == 0 {
		return true
	}
	for _, p := range a.PhaseIDs {
		if p == phaseID {
			return true
		}
	}
	return false
}

func checkPreconditions(ctx *expr.Context, preconditions []ir.Predicate) (bool, error) {
	for _, p := range preconditions {
		ok, err := expr.EvalPredicate(ctx, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func resolveTargets(ctx *expr.Context, targets []ir.ActionTarget) (map[string][]component.ID, error) {
	out := make(map[string][]component.ID, len(targets))
	for _, t := range targets {
		candidates, err := expr.EvalSelector(ctx, t.Selector)
		if err != nil {
			return nil, err
		}
		ids := make([]component.ID, len(candidates))
		for i, c := range candidates {
			ids[i] = c.ID
		}
		out[t.Name] = ids
	}
	return out, nil
}

func hasEnoughTargets(a ir.ActionDef, targets map[string][]component.ID) bool {
	for _, t := range a.Targets {
		if len(targets[t.Name]) < t.Count {
			return false
		}
	}
	return true
}

func containsID(ids []component.ID, target component.ID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
