// Package harness drives compiled rulesets through conformance
// scenarios against a live internal/match Actor.
//
// Grounded on the teacher's harness.Run: a scenario's setup steps seed
// a fresh engine, its flow steps are replayed in order, and the
// resulting trace is checked against the scenario's assertions -
// adapted from NYSM's invoke/expect flow to matchcore's
// action/submit-input flow over a single Actor instance.
package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/match"
)

// Run executes scenario end to end: loads its ruleset, seeds the board
// per Setup, drives Flow, and checks Assertions against the resulting
// event log and final state.
func Run(scenario *Scenario) (*Result, error) {
	rs, err := loadRuleset(scenario.Ruleset)
	if err != nil {
		return nil, err
	}

	actor, err := match.New(rs, scenario.Players, match.WithSeed(scenario.Seed))
	if err != nil {
		return nil, fmt.Errorf("harness: construct match for scenario %s: %w", scenario.Name, err)
	}

	binds := make(map[string]component.ID, len(scenario.Setup))
	for _, step := range scenario.Setup {
		props, err := convertProps(step.Props)
		if err != nil {
			return nil, fmt.Errorf("harness: scenario %s setup %q: %w", scenario.Name, step.Bind, err)
		}
		c, err := actor.CreateComponent(step.Component, step.Zone, step.Controller, props, step.Keywords)
		if err != nil {
			return nil, fmt.Errorf("harness: scenario %s setup %q: %w", scenario.Name, step.Bind, err)
		}
		if step.Bind != "" {
			binds[step.Bind] = c.ID
		}
	}

	var trace []TraceEvent
	record := func(res *match.ActionResult) {
		for _, ev := range res.Events {
			trace = append(trace, TraceEvent{
				Type:     ev.Type,
				Payload:  ev.Payload,
				CausedBy: ev.CausedBy,
				Seq:      ev.Seq,
			})
		}
	}

	beginRes, err := actor.BeginGame()
	if err != nil {
		return nil, fmt.Errorf("harness: scenario %s begin_game: %w", scenario.Name, err)
	}
	record(beginRes)

	for i, step := range scenario.Flow {
		var res *match.ActionResult
		var err error
		switch {
		case step.Input != "":
			res, err = actor.SubmitInput(step.Input)
		case step.Action != "":
			targets, terr := resolveTargets(step.Targets, binds)
			if terr != nil {
				return nil, fmt.Errorf("harness: scenario %s flow[%d]: %w", scenario.Name, i, terr)
			}
			res, err = actor.ProcessAction(step.Action, step.Player, targets)
		default:
			return nil, fmt.Errorf("harness: scenario %s flow[%d]: neither action nor input set", scenario.Name, i)
		}
		if err != nil {
			return nil, fmt.Errorf("harness: scenario %s flow[%d]: %w", scenario.Name, i, err)
		}
		record(res)
	}

	st := actor.GetCurrentState()
	result := newResult()
	result.Trace = trace
	result.Ended = actor.Ended()
	result.FinalPhase = st.CurrentPhaseID

	evaluateAssertions(result, scenario, actor, binds)
	return result, nil
}

func loadRuleset(path string) (*ir.Ruleset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("harness: resolve ruleset path %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("harness: read ruleset %s: %w", path, err)
	}
	rs, err := ir.RulesetFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("harness: decode ruleset %s: %w", path, err)
	}
	return rs, nil
}

func convertProps(props map[string]interface{}) (map[string]ir.IRValue, error) {
	if props == nil {
		return nil, nil
	}
	out := make(map[string]ir.IRValue, len(props))
	for k, v := range props {
		val, err := ir.FromGoValue(v)
		if err != nil {
			return nil, fmt.Errorf("prop %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

func resolveTargets(targets map[string][]string, binds map[string]component.ID) (map[string][]component.ID, error) {
	if targets == nil {
		return nil, nil
	}
	out := make(map[string][]component.ID, len(targets))
	for slot, names := range targets {
		ids := make([]component.ID, 0, len(names))
		for _, name := range names {
			id, ok := binds[name]
			if !ok {
				return nil, fmt.Errorf("target %q: no component bound to name %q", slot, name)
			}
			ids = append(ids, id)
		}
		out[slot] = ids
	}
	return out, nil
}
