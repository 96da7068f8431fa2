// Package bus implements the trigger index (spec.md §4.2): subscribe
// and unsubscribe event triggers, and dispatch a fired event to the
// ordered list of Candidate reactions it produces.
//
// Grounded on eventBus.py's subscription-by-event-type index and
// _is_trigger_active activation gate, and on the teacher's
// internal/engine/matcher.go (matchWhen/extractBindings when-clause
// matching), generalized from a single concept-action when-clause to
// the TCG trigger's (event_type, filters, active_while, condition,
// scope) tuple.
package bus

import (
	"fmt"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/expr"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/state"
)

// wildcard is the event type string that subscribes to every event.
const wildcard = "*"

// SubscriptionID is a monotonic handle returned by Subscribe.
type SubscriptionID int64

// subscription is one trigger indexed against an event type.
type subscription struct {
	id          SubscriptionID
	eventType   string
	trigger     ir.TriggerDef
	componentID component.ID
}

// Candidate is one reaction the dispatch of an event produced: a single
// trigger firing, already resolved against one caused_by binding. The
// match actor registers candidates into internal/registry and pushes
// them onto the stack; the bus itself owns no stack state.
type Candidate struct {
	TriggerID          string
	SourceComponentID  component.ID
	CausedBy           component.ID
	Pre                bool
	Effects            []ir.EffectDef
}

// Bus indexes trigger subscriptions by event type and dispatches fired
// events against them.
type Bus struct {
	counter       SubscriptionID
	byID          map[SubscriptionID]*subscription
	byEventType   map[string][]SubscriptionID // insertion order preserved per spec.md §4.2
	byComponentID map[component.ID][]SubscriptionID
}

// New creates an empty event bus.
func New() *Bus {
	return &Bus{
		byID:          make(map[SubscriptionID]*subscription),
		byEventType:   make(map[string][]SubscriptionID),
		byComponentID: make(map[component.ID][]SubscriptionID),
	}
}

// Subscribe registers trigger against eventType, owned by componentID,
// and returns a monotonic subscription id.
func (b *Bus) Subscribe(eventType string, trigger ir.TriggerDef, componentID component.ID) SubscriptionID {
	b.counter++
	sub := &subscription{
		id:          b.counter,
		eventType:   eventType,
		trigger:     trigger,
		componentID: componentID,
	}
	b.byID[sub.id] = sub
	b.byEventType[eventType] = append(b.byEventType[eventType], sub.id)
	b.byComponentID[componentID] = append(b.byComponentID[componentID], sub.id)
	return sub.id
}

// Unsubscribe removes a single subscription by id.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	sub, ok := b.byID[id]
	if !ok {
		return
	}
	delete(b.byID, id)
	b.byEventType[sub.eventType] = removeID(b.byEventType[sub.eventType], id)
	b.byComponentID[sub.componentID] = removeID(b.byComponentID[sub.componentID], id)
}

// UnsubscribeAllFromComponent removes every subscription owned by a
// component (e.g. when it is destroyed and leaves play).
func (b *Bus) UnsubscribeAllFromComponent(componentID component.ID) {
	for _, id := range append([]SubscriptionID(nil), b.byComponentID[componentID]...) {
		b.Unsubscribe(id)
	}
}

// Dispatch evaluates every subscription on eventType (plus the wildcard)
// against the fired event's payload and current state, returning one
// Candidate per trigger x caused_by binding, in subscription-registration
// order (spec.md testable property 4: deterministic dispatch).
func (b *Bus) Dispatch(eventType string, payload ir.IRObject, st *state.State) ([]Candidate, error) {
	ids := mergedOrdered(b.byEventType[eventType], b.byEventType[wildcard])

	var out []Candidate
	for _, id := range ids {
		sub, ok := b.byID[id]
		if !ok {
			continue // unsubscribed mid-dispatch; not an error, just skip
		}
		if sub.trigger.Kind == ir.TriggerState {
			continue // state-based triggers never dispatch off events
		}
		owner, ok := st.Components.Get(sub.componentID)
		if !ok || !owner.IsActive() {
			continue
		}
		if !activeWhile(sub.trigger.ActiveWhile, owner, st) {
			continue
		}
		if !matchFilters(sub.trigger.Filters, payload) {
			continue
		}
		if sub.trigger.Condition != nil {
			ctx := expr.NewContext(st.Components, owner)
			ok, err := expr.EvalPredicate(ctx, *sub.trigger.Condition)
			if err != nil {
				return nil, fmt.Errorf("bus: evaluating condition for trigger %s: %w", sub.trigger.ID, err)
			}
			if !ok {
				continue
			}
		}
		targets, err := resolveScope(sub.trigger.Scope, owner, st)
		if err != nil {
			return nil, fmt.Errorf("bus: resolving scope for trigger %s: %w", sub.trigger.ID, err)
		}
		for _, causedBy := range targets {
			out = append(out, Candidate{
				TriggerID:         sub.trigger.ID,
				SourceComponentID: sub.componentID,
				CausedBy:          causedBy,
				Pre:               sub.trigger.PreReaction,
				Effects:           sub.trigger.Effects,
			})
		}
	}
	return out, nil
}

// activeWhile reports whether owner's current zone/controller context
// satisfies the trigger's activation gate. An empty ActiveWhile (or nil)
// is unconditionally active.
func activeWhile(aw *ir.ActiveWhile, owner *component.Component, st *state.State) bool {
	if aw == nil {
		return true
	}
	if len(aw.ZoneIDs) > 0 && !contains(aw.ZoneIDs, owner.Zone) {
		return false
	}
	if len(aw.PhaseIDs) > 0 && !contains(aw.PhaseIDs, st.CurrentPhaseID) {
		return false
	}
	return true
}

// matchFilters requires every listed key to equal-compare against the
// event payload (spec.md §4.2(b)): every filter is a conjunction, a
// missing or mismatched key fails the match.
func matchFilters(filters map[string]string, payload ir.IRObject) bool {
	for key, want := range filters {
		got, ok := payload[key]
		if !ok {
			return false
		}
		if fmt.Sprint(plainValue(got)) != want {
			return false
		}
	}
	return true
}

func plainValue(v ir.IRValue) any {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return int64(val)
	case ir.IRBool:
		return bool(val)
	default:
		return v
	}
}

// resolveScope resolves a trigger's caused_by component set per
// spec.md §4.2(d): self resolves to the owning component (or the active
// player if owner has no controller), all resolves to every player, and
// opponent resolves to the non-owning side.
func resolveScope(scope ir.ScopeSpec, owner *component.Component, st *state.State) ([]component.ID, error) {
	switch scope.Mode {
	case ir.ScopeSelf, ir.ScopeFlow, ir.ScopeKeyed, "":
		return []component.ID{owner.ID}, nil
	case ir.ScopeAll:
		var out []component.ID
		for _, p := range st.Players {
			for _, c := range st.Components.ByController(p) {
				out = append(out, c.ID)
			}
		}
		return out, nil
	case ir.ScopeOpponent:
		opp := st.Opponent(owner.ControllerID)
		var out []component.ID
		for _, c := range st.Components.ByController(opp) {
			out = append(out, c.ID)
		}
		return out, nil
	case ir.ScopeGlobal:
		return []component.ID{owner.ID}, nil
	default:
		return nil, fmt.Errorf("unknown scope mode %q", scope.Mode)
	}
}

func contains(xs []string, target string) bool {
	for _, x := range xs {
		if x == target {
			return true
		}
	}
	return false
}

func removeID(ids []SubscriptionID, target SubscriptionID) []SubscriptionID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// mergedOrdered merges two already-sorted-by-registration-order id
// slices (specific event type, then wildcard), preserving each slice's
// relative order and placing specific-type subscriptions before
// wildcard ones so a more targeted trigger is discovered first.
func mergedOrdered(specific, wild []SubscriptionID) []SubscriptionID {
	out := make([]SubscriptionID, 0, len(specific)+len(wild))
	out = append(out, specific...)
	out = append(out, wild...)
	return out
}
