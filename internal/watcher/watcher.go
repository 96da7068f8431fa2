// Package watcher implements the state-watcher engine (spec.md §4.3):
// state-based triggers evaluated on a dirty flag rather than dispatched
// off events. Checking short-circuits to empty whenever nothing has
// mutated state since the last check, and is capped at a fixed
// iteration bound so a watcher whose own effects re-dirty state can
// never loop forever (spec.md §4.3, grounded on
// MatchActor._check_state_based_actions's max_iterations and the
// teacher's internal/engine/quota.go QuotaEnforcer pattern).
package watcher

import (
	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/expr"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/state"
)

// MaxCheckIterations bounds the number of times CheckWatchers may be
// re-invoked in a single quiescence round before the match actor must
// fail with ResolutionOverflow.
const MaxCheckIterations = 100

// Fired is one state-based trigger whose standing predicate currently
// holds. The match actor executes its effects with self bound to the
// owning component.
type Fired struct {
	TriggerID   string
	ComponentID component.ID
	Effects     []ir.EffectDef
}

type watch struct {
	trigger     ir.TriggerDef
	componentID component.ID
}

// Engine tracks state-based triggers independently of the event bus.
type Engine struct {
	watches []watch
}

// New creates an empty state-watcher engine.
func New() *Engine {
	return &Engine{}
}

// RegisterWatcher adds a state-based trigger owned by componentID.
func (e *Engine) RegisterWatcher(trigger ir.TriggerDef, componentID component.ID) {
	e.watches = append(e.watches, watch{trigger: trigger, componentID: componentID})
}

// UnregisterWatchersFromSource removes every watcher owned by a
// component (e.g. on destruction).
func (e *Engine) UnregisterWatchersFromSource(componentID component.ID) {
	out := e.watches[:0]
	for _, w := range e.watches {
		if w.componentID != componentID {
			out = append(out, w)
		}
	}
	e.watches = out
}

// CheckWatchers evaluates every registered watcher's standing predicate
// if (and only if) state has been marked dirty since the last call,
// returning the list of currently-true watchers and clearing the dirty
// flag. Calling this on clean state is a cheap no-op, per spec.md §4.3.
func (e *Engine) CheckWatchers(st *state.State) ([]Fired, error) {
	if !st.Dirty() {
		return nil, nil
	}
	var fired []Fired
	for _, w := range e.watches {
		owner, ok := st.Components.Get(w.componentID)
		if !ok || !owner.IsActive() {
			continue
		}
		if w.trigger.Condition == nil {
			continue
		}
		ctx := expr.NewContext(st.Components, owner)
		ok2, err := expr.EvalPredicate(ctx, *w.trigger.Condition)
		if err != nil {
			return nil, err
		}
		if ok2 {
			fired = append(fired, Fired{
				TriggerID:   w.trigger.ID,
				ComponentID: w.componentID,
				Effects:     w.trigger.Effects,
			})
		}
	}
	st.ClearDirty()
	return fired, nil
}
