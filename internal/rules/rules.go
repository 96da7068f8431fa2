// Package rules is the rule executor and effect interpreter
// (spec.md §4.5): it walks an effect pipeline and returns the list of
// events it produces. The caller (internal/match) pushes them onto the
// stack in reverse so the first effect resolves first.
//
// Grounded on EffectDefinition.py's six-way effect tagged union
// (execute_rule, emit_event, sequence, if, for_each, modify_state) and
// on RuleDefinition.py's named rule table; recursion is capped the same
// way the teacher bounds sync-rule cascades (internal/engine/quota.go),
// per spec.md §9's "recursive effect pipelines ... cap depth by the same
// recursion guard as the resolution loop."
package rules

import (
	"strconv"
	"strings"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/expr"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/matcherr"
)

// MaxEffectDepth bounds execute_rule/sequence/if/for_each recursion
// within a single effect pipeline evaluation.
const MaxEffectDepth = 100

// Emitted is one event an effect pipeline produced.
type Emitted struct {
	Type    string
	Payload ir.IRObject
}

// Interpreter executes rule and effect pipelines against a ruleset's
// named rule table.
type Interpreter struct {
	rules map[string]ir.RuleDef
}

// NewInterpreter indexes a ruleset's rules by id.
func NewInterpreter(rs *ir.Ruleset) *Interpreter {
	m := make(map[string]ir.RuleDef, len(rs.Rules))
	for _, r := range rs.Rules {
		m[r.ID] = r
	}
	return &Interpreter{rules: m}
}

// ExecuteRule runs a named rule's effect pipeline and returns the events
// it emits, in pipeline order.
func (in *Interpreter) ExecuteRule(ruleID string, ctx *expr.Context, depth int) ([]Emitted, error) {
	if depth > MaxEffectDepth {
		return nil, matcherr.NewResolutionOverflow("rule recursion exceeded %d executing %q", MaxEffectDepth, ruleID)
	}
	rule, ok := in.rules[ruleID]
	if !ok {
		return nil, matcherr.NewUnknownReference("rule %q not found", ruleID)
	}
	return in.executeEffects(rule.Effects, ctx, depth+1)
}

// ExecuteEffects runs a raw effect list (an action's costs, or a fired
// watcher's effects) outside of the named rule table, with the same
// recursion guard as ExecuteRule.
func (in *Interpreter) ExecuteEffects(effects []ir.EffectDef, ctx *expr.Context, depth int) ([]Emitted, error) {
	return in.executeEffects(effects, ctx, depth)
}

func (in *Interpreter) executeEffects(effects []ir.EffectDef, ctx *expr.Context, depth int) ([]Emitted, error) {
	if depth > MaxEffectDepth {
		return nil, matcherr.NewResolutionOverflow("effect recursion exceeded %d", MaxEffectDepth)
	}
	var out []Emitted
	for _, eff := range effects {
		produced, err := in.executeOne(eff, ctx, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, produced...)
	}
	return out, nil
}

func (in *Interpreter) executeOne(eff ir.EffectDef, ctx *expr.Context, depth int) ([]Emitted, error) {
	switch eff.Kind {
	case ir.EffectExecuteRule:
		return in.ExecuteRule(eff.RuleID, ctx, depth+1)

	case ir.EffectEmitEvent:
		payload, err := resolvePayload(ctx, eff.Payload)
		if err != nil {
			return nil, err
		}
		return []Emitted{{Type: eff.EventType, Payload: payload}}, nil

	case ir.EffectSequence:
		return in.executeEffects(eff.Effects, ctx, depth+1)

	case ir.EffectIf:
		ok, err := expr.EvalPredicate(ctx, eff.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.executeEffects(eff.Then, ctx, depth+1)
		}
		return in.executeEffects(eff.Else, ctx, depth+1)

	case ir.EffectForEach:
		candidates, err := expr.EvalSelector(ctx, eff.Over)
		if err != nil {
			return nil, err
		}
		var out []Emitted
		for _, cand := range candidates {
			itCtx := ctx.WithIt(cand)
			produced, err := in.executeEffects(eff.Effects, itCtx, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, produced...)
		}
		return out, nil

	case ir.EffectModifyState:
		return in.modifyState(eff, ctx)

	default:
		return nil, matcherr.NewMalformedRuleset("unknown effect kind %q", eff.Kind)
	}
}

// modifyState translates an engine-primitive modify_state effect into
// the corresponding state-change event, per spec.md §4.5: "implemented
// by emitting the corresponding state-change event" rather than
// mutating state directly.
func (in *Interpreter) modifyState(eff ir.EffectDef, ctx *expr.Context) ([]Emitted, error) {
	target, err := ctx.ResolveTarget(eff.Target)
	if err != nil {
		return nil, err
	}
	switch eff.StateOp {
	case ir.OpSetPhase:
		return []Emitted{{Type: "PhaseChanged", Payload: ir.IRObject{
			"phase_id": ir.IRString(eff.ZoneID),
		}}}, nil

	case ir.OpAddResource:
		amount, err := evalAmount(ctx, eff.Amount)
		if err != nil {
			return nil, err
		}
		instID, found := firstResourceInstance(target, eff.ResourceName)
		if !found {
			return nil, matcherr.NewUnknownReference("resource %q not found on component %d", eff.ResourceName, target.ID)
		}
		return []Emitted{{Type: "ResourceChanged", Payload: ir.IRObject{
			"component_id": ir.IRInt(target.ID),
			"instance_id":  ir.IRInt(instID),
			"delta":        ir.IRInt(amount),
		}}}, nil

	case ir.OpMoveCard:
		return []Emitted{{Type: "CardMoved", Payload: ir.IRObject{
			"component_id":  ir.IRInt(target.ID),
			"to_zone":       ir.IRString(eff.ZoneID),
			"controller_id": ir.IRString(target.ControllerID),
		}}}, nil

	case ir.OpDealDamage:
		amount, err := evalAmount(ctx, eff.Amount)
		if err != nil {
			return nil, err
		}
		instID, found := firstResourceInstance(target, eff.ResourceName)
		if !found {
			return nil, matcherr.NewUnknownReference("resource %q not found on component %d", eff.ResourceName, target.ID)
		}
		return []Emitted{{Type: "DamageDealt", Payload: ir.IRObject{
			"component_id": ir.IRInt(target.ID),
			"instance_id":  ir.IRInt(instID),
			"amount":       ir.IRInt(amount),
		}}, {Type: "ResourceChanged", Payload: ir.IRObject{
			"component_id": ir.IRInt(target.ID),
			"instance_id":  ir.IRInt(instID),
			"delta":        ir.IRInt(-amount),
		}}}, nil

	default:
		return nil, matcherr.NewMalformedRuleset("unknown state_op %q", eff.StateOp)
	}
}

func evalAmount(ctx *expr.Context, e ir.Expr) (int64, error) {
	if e.Kind == "" {
		return 0, nil
	}
	return expr.EvalExpr(ctx, e)
}

func firstResourceInstance(c *component.Component, name string) (component.ResourceInstanceID, bool) {
	ids := c.ResourceInstances(name)
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// resolvePayload resolves an emit_event payload: each value is either a
// self/it property reference ("self.power", "it.toughness") evaluated
// numerically, or a literal string copied through verbatim. This is the
// minimal expression surface spec.md §4.6 allows for payload-level
// event construction.
func resolvePayload(ctx *expr.Context, payload map[string]string) (ir.IRObject, error) {
	out := make(ir.IRObject, len(payload))
	for k, v := range payload {
		val, err := resolveScalar(ctx, v)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

// resolveScalar parses the tiny expression-string surface
// execute_rule's Args and emit_event's Payload use: integer literals,
// "self.<field>"/"it.<field>" property reads, or (falling back) a
// literal string.
func resolveScalar(ctx *expr.Context, s string) (ir.IRValue, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.IRInt(n), nil
	}
	if ref, field, ok := strings.Cut(s, "."); ok && (ref == string(ir.RefSelf) || ref == string(ir.RefIt)) {
		n, err := expr.EvalExpr(ctx, ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.Ref(ref), Field: field})
		if err != nil {
			return nil, err
		}
		return ir.IRInt(n), nil
	}
	return ir.IRString(s), nil
}
