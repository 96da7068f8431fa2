package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/state"
)

func twoActionRuleset() *ir.Ruleset {
	return &ir.Ruleset{
		Actions: []ir.ActionDef{
			{
				ID:       "pass",
				PhaseIDs: []string{"main"},
			},
			{
				ID:       "end-only",
				PhaseIDs: []string{"end"},
			},
			{
				ID: "everywhere",
			},
			{
				ID:       "needs-mana",
				PhaseIDs: []string{"main"},
				Preconditions: []ir.Predicate{{
					Kind:  ir.PredGt,
					Left:  &ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefSelf, Field: "mana"},
					Right: &ir.Expr{Kind: ir.ExprConstNumber, Value: 0},
				}},
			},
			{
				ID:       "target-creature",
				PhaseIDs: []string{"main"},
				Targets: []ir.ActionTarget{{
					Name:     "victim",
					Selector: ir.Selector{Kind: ir.SelectorZone, ZoneID: "battlefield"},
					Count:    1,
				}},
			},
		},
	}
}

func stateWithPlayerAndMana(mana int64) *state.State {
	st := state.New([]string{"p1", "p2"}, "main")
	c := st.Components.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	c.AddResourceInstance(ir.ResourceSchema{Name: "mana", Kind: ir.ResourceTracked, Default: mana}, nil)
	st.Components.Create(ir.ComponentDef{Name: "Player"}, "", "p2", nil, nil)
	return st
}

func TestGetAvailableActionsFiltersByPhase(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0)

	avail, err := in.GetAvailableActions(st, "p1")
	require.NoError(t, err)
	ids := actionIDs(avail)
	assert.Contains(t, ids, "pass")
	assert.Contains(t, ids, "everywhere")
	assert.NotContains(t, ids, "end-only", "end-only is not legal during main")
}

func TestGetAvailableActionsEvaluatesPreconditions(t *testing.T) {
	in := New(twoActionRuleset())

	st := stateWithPlayerAndMana(0)
	avail, err := in.GetAvailableActions(st, "p1")
	require.NoError(t, err)
	assert.NotContains(t, actionIDs(avail), "needs-mana", "precondition mana > 0 must fail with zero mana")

	st2 := stateWithPlayerAndMana(1)
	avail2, err := in.GetAvailableActions(st2, "p1")
	require.NoError(t, err)
	assert.Contains(t, actionIDs(avail2), "needs-mana")
}

func TestGetAvailableActionsResolvesTargetCandidates(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0)
	creature := st.Components.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", nil, nil)

	avail, err := in.GetAvailableActions(st, "p1")
	require.NoError(t, err)
	var found *Available
	for i := range avail {
		if avail[i].Action.ID == "target-creature" {
			found = &avail[i]
		}
	}
	require.NotNil(t, found)
	assert.Contains(t, found.Targets["victim"], creature.ID)
}

func TestGetAvailableActionsOmitsActionWithoutEnoughTargets(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0) // no creature on the battlefield

	avail, err := in.GetAvailableActions(st, "p1")
	require.NoError(t, err)
	assert.NotContains(t, actionIDs(avail), "target-creature")
}

func TestGetActionsForObjectFindsActionsTargetingIt(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0)
	creature := st.Components.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", nil, nil)

	objActions, err := in.GetActionsForObject(st, "p1", creature.ID)
	require.NoError(t, err)
	require.Len(t, objActions, 1)
	assert.Equal(t, "target-creature", objActions[0].Action.ID)
	assert.Equal(t, "target_select", objActions[0].InteractionMode)
}

func TestValidateActionRejectsWrongPhase(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0)
	err := in.ValidateAction("end-only", st, "p1", nil)
	assert.Error(t, err)
}

func TestValidateActionRejectsFailedPrecondition(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0)
	err := in.ValidateAction("needs-mana", st, "p1", nil)
	assert.Error(t, err)
}

func TestValidateActionRejectsIllegalTarget(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0)
	st.Components.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", nil, nil)
	notOnBoard := st.Components.Create(ir.ComponentDef{Name: "Creature"}, "graveyard", "p1", nil, nil)

	err := in.ValidateAction("target-creature", st, "p1", map[string][]component.ID{"victim": {notOnBoard.ID}})
	assert.Error(t, err)
}

func TestValidateActionAcceptsLegalChoice(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0)
	creature := st.Components.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", nil, nil)

	err := in.ValidateAction("target-creature", st, "p1", map[string][]component.ID{"victim": {creature.ID}})
	assert.NoError(t, err)
}

func TestValidateActionUnknownActionIsUnknownReference(t *testing.T) {
	in := New(twoActionRuleset())
	st := stateWithPlayerAndMana(0)
	err := in.ValidateAction("nonexistent", st, "p1", nil)
	assert.Error(t, err)
}

func actionIDs(avail []Available) []string {
	out := make([]string, len(avail))
	for i, a := range avail {
		out[i] = a.Action.ID
	}
	return out
}
