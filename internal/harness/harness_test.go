package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teapot-games/matchcore/internal/ir"
)

// twoPhaseRuleset mirrors internal/match's fixture of the same name: a
// Main phase offering "pass" (costs one mana) and an End phase with no
// actions, two turns per player.
func twoPhaseRuleset() *ir.Ruleset {
	return &ir.Ruleset{
		Name: "test-game",
		Components: []ir.ComponentDef{
			{Name: "Player", Resources: []ir.ResourceSchema{
				{Name: "mana", Kind: ir.ResourceConsumable, Default: 1},
			}},
		},
		Zones: []ir.ZoneDef{
			{ID: "hand", Name: "Hand", Visibility: ir.ZonePrivate},
		},
		Actions: []ir.ActionDef{
			{
				ID:       "pass",
				Name:     "Pass",
				Timing:   ir.TimingInstant,
				PhaseIDs: []string{"main"},
				Preconditions: []ir.Predicate{{
					Kind:  ir.PredGt,
					Left:  &ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefSelf, Field: "mana"},
					Right: &ir.Expr{Kind: ir.ExprConstNumber, Value: 0},
				}},
				Costs: []ir.EffectDef{{
					Kind:         ir.EffectModifyState,
					StateOp:      ir.OpAddResource,
					Target:       "self",
					ResourceName: "mana",
					Amount:       ir.Expr{Kind: ir.ExprConstNumber, Value: -1},
				}},
				ExecuteRuleIDs: []string{"noop"},
			},
		},
		Rules: []ir.RuleDef{
			{ID: "noop", Name: "No-op", Effects: nil},
		},
		TurnStructure: ir.TurnStructure{
			Phases: []ir.PhaseDef{
				{ID: "main", Name: "Main", ExitType: ir.ExitOnNoActions},
				{ID: "end", Name: "End", ExitType: ir.ExitOnNoActions},
			},
			InitialPhaseID:    "main",
			MaxTurnsPerPlayer: 2,
		},
	}
}

func writeRulesetFixture(t *testing.T) string {
	t.Helper()
	data, err := twoPhaseRuleset().ToJSON()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "ruleset.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunDrivesActionsAndChecksAssertions(t *testing.T) {
	rulesetPath := writeRulesetFixture(t)
	sc := &Scenario{
		Name:    "alice-passes",
		Ruleset: rulesetPath,
		Players: []string{"alice", "bob"},
		Seed:    1,
		Setup: []SetupStep{
			{Bind: "alice_player", Component: "Player", Zone: "hand", Controller: "alice"},
			{Bind: "bob_player", Component: "Player", Zone: "hand", Controller: "bob"},
		},
		Flow: []FlowStep{
			{Action: "pass", Player: "alice"},
		},
		Assertions: []Assertion{
			{Type: AssertEventOccurs, EventType: "MatchStarted"},
			{Type: AssertEventOccurs, EventType: "ExecuteAction"},
			{Type: AssertEventCount, EventType: "ExecuteAction", Count: 1},
			{Type: AssertFinalPhase, Phase: "main"},
			{Type: AssertFinalResource, Bind: "alice_player", Resource: "mana", Amount: 0},
			{Type: AssertFinalResource, Bind: "bob_player", Resource: "mana", Amount: 1},
		},
	}

	result, err := Run(sc)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "main", result.FinalPhase)
	assert.False(t, result.Ended)
}

func TestRunReportsFailingAssertion(t *testing.T) {
	rulesetPath := writeRulesetFixture(t)
	sc := &Scenario{
		Name:    "wrong-expectation",
		Ruleset: rulesetPath,
		Players: []string{"alice", "bob"},
		Setup: []SetupStep{
			{Bind: "alice_player", Component: "Player", Zone: "hand", Controller: "alice"},
			{Bind: "bob_player", Component: "Player", Zone: "hand", Controller: "bob"},
		},
		Assertions: []Assertion{
			{Type: AssertEventOccurs, EventType: "NeverHappens"},
		},
	}

	result, err := Run(sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
}

func TestRunUnknownTargetBindingErrors(t *testing.T) {
	rulesetPath := writeRulesetFixture(t)
	sc := &Scenario{
		Name:    "bad-target",
		Ruleset: rulesetPath,
		Players: []string{"alice", "bob"},
		Setup: []SetupStep{
			{Bind: "alice_player", Component: "Player", Zone: "hand", Controller: "alice"},
		},
		Flow: []FlowStep{
			{Action: "pass", Player: "alice", Targets: map[string][]string{"victim": {"not-bound"}}},
		},
	}

	_, err := Run(sc)
	assert.Error(t, err)
}
