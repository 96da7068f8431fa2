package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/matcherr"
	"github.com/teapot-games/matchcore/internal/testutil"
)

// twoPhaseRuleset is a minimal ruleset with a Main phase offering one
// action ("pass") and an End phase with no actions, so run_until_blocked
// auto-advances End->Main and wraps the turn.
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

func newTestActor(t *testing.T) *Actor {
	t.Helper()
	a, err := New(twoPhaseRuleset(), []string{"alice", "bob"}, WithSeed(1))
	require.NoError(t, err)
	_, err = a.CreateComponent("Player", "hand", "alice", nil, nil)
	require.NoError(t, err)
	_, err = a.CreateComponent("Player", "hand", "bob", nil, nil)
	require.NoError(t, err)
	return a
}

func TestNewRejectsNilRuleset(t *testing.T) {
	_, err := New(nil, []string{"alice"})
	assert.Error(t, err)
}

func TestNewRejectsNoPlayers(t *testing.T) {
	_, err := New(twoPhaseRuleset(), nil)
	assert.Error(t, err)
}

func TestBeginGameWaitsForFirstAction(t *testing.T) {
	a := newTestActor(t)
	res, err := a.BeginGame()
	require.NoError(t, err)
	assert.Equal(t, WaitingForInput, res.Outcome)
	assert.Equal(t, "main", a.GetCurrentState().CurrentPhaseID)
}

// TestBeginGameEmptyTurnSequence is spec.md's literal S1 "Empty turn"
// scenario: a single-player, 2-phase ruleset with max_turns_per_player=1
// and no declared actions, begun with no prior actions, must produce
// exactly MatchStarted, TurnStarted, PhaseStarted(Main), PhaseEnded(Main),
// PhaseStarted(End), PhaseEnded(End), TurnEnded, EndGame - with no
// spurious second TurnStarted sneaking in before the first PhaseStarted
// (the bug this guards against: misreading the initial Start->Main
// transition as a turn wrap).
func TestBeginGameEmptyTurnSequence(t *testing.T) {
	rs := &ir.Ruleset{
		Name: "empty-turn",
		Components: []ir.ComponentDef{
			{Name: "Player"},
		},
		Zones: []ir.ZoneDef{
			{ID: "hand", Name: "Hand", Visibility: ir.ZonePrivate},
		},
		TurnStructure: ir.TurnStructure{
			Phases: []ir.PhaseDef{
				{ID: "main", Name: "Main", ExitType: ir.ExitOnNoActions},
				{ID: "end", Name: "End", ExitType: ir.ExitOnNoActions},
			},
			InitialPhaseID:    "main",
			MaxTurnsPerPlayer: 1,
		},
	}
	a, err := New(rs, []string{"solo"}, WithSeed(1))
	require.NoError(t, err)
	_, err = a.CreateComponent("Player", "hand", "solo", nil, nil)
	require.NoError(t, err)

	res, err := a.BeginGame()
	require.NoError(t, err)

	types := make([]string, len(res.Events))
	for i, ev := range res.Events {
		types[i] = ev.Type
	}
	assert.Equal(t, []string{
		"MatchStarted",
		"TurnStarted",
		"PhaseChanged", "PhaseStarted",
		"PhaseEnded",
		"PhaseChanged", "PhaseStarted",
		"PhaseEnded",
		"TurnEnded",
		"EndGame",
	}, types)
	assert.True(t, a.Ended())
}

func TestWithFlowTokenGeneratorPinsEveryCallToOneToken(t *testing.T) {
	a, err := New(twoPhaseRuleset(), []string{"alice", "bob"},
		WithSeed(1), WithFlowTokenGenerator(testutil.NewFixedFlowGenerator("fixture-001")))
	require.NoError(t, err)
	_, err = a.CreateComponent("Player", "hand", "alice", nil, nil)
	require.NoError(t, err)
	_, err = a.CreateComponent("Player", "hand", "bob", nil, nil)
	require.NoError(t, err)

	res, err := a.BeginGame()
	require.NoError(t, err)
	for _, ev := range res.Events {
		assert.Equal(t, "fixture-001", ev.FlowToken)
	}

	res, err = a.ProcessAction("pass", "alice", map[string][]component.ID{})
	require.NoError(t, err)
	for _, ev := range res.Events {
		assert.Equal(t, "fixture-001", ev.FlowToken)
	}
}

func TestBeginGameTwiceFails(t *testing.T) {
	a := newTestActor(t)
	_, err := a.BeginGame()
	require.NoError(t, err)
	_, err = a.BeginGame()
	assert.Error(t, err)
}

func TestProcessActionRejectsUnknownAction(t *testing.T) {
	a := newTestActor(t)
	_, err := a.BeginGame()
	require.NoError(t, err)
	_, err = a.ProcessAction("does-not-exist", "alice", nil)
	assert.Error(t, err)
}

func TestProcessActionAdvancesThroughPhaseWithNoActions(t *testing.T) {
	a := newTestActor(t)
	_, err := a.BeginGame()
	require.NoError(t, err)

	res, err := a.ProcessAction("pass", "alice", map[string][]component.ID{})
	require.NoError(t, err)
	// main has no further legal actions after pass since "pass" only
	// fires in main, but it carries no side effects - the match should
	// auto-exit to "end" and then wrap to bob's "main".
	assert.Equal(t, WaitingForInput, res.Outcome)
	assert.Equal(t, "main", a.GetCurrentState().CurrentPhaseID)
	assert.Equal(t, "bob", a.GetCurrentState().ActivePlayer)
}

func TestMatchEndsAfterMaxTurnsPerPlayer(t *testing.T) {
	a := newTestActor(t)
	_, err := a.BeginGame()
	require.NoError(t, err)

	for i := 0; i < 4 && !a.Ended(); i++ {
		player := a.GetCurrentState().ActivePlayer
		_, err := a.ProcessAction("pass", player, map[string][]component.ID{})
		require.NoError(t, err)
	}
	assert.True(t, a.Ended())
}

func TestGetAvailableActionsOnlyOffersPassInMain(t *testing.T) {
	a := newTestActor(t)
	_, err := a.BeginGame()
	require.NoError(t, err)

	avail, err := a.GetAvailableActions("alice")
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, "pass", avail[0].Action.ID)
}

func TestCreateComponentUnknownDefinitionErrors(t *testing.T) {
	a, err := New(twoPhaseRuleset(), []string{"alice", "bob"})
	require.NoError(t, err)
	_, err = a.CreateComponent("Nonexistent", "hand", "alice", nil, nil)
	assert.Error(t, err)
}

func TestSubmitInputWithNoPendingInputErrors(t *testing.T) {
	a := newTestActor(t)
	_, err := a.BeginGame()
	require.NoError(t, err)
	_, err = a.SubmitInput("bogus")
	assert.Error(t, err)
}

// loopingRuleset has a component whose triggers endlessly reflect a Ping
// event back at itself, so resolving the stack never reaches quiescence
// on its own - only the recursion depth bound stops it.
func loopingRuleset() *ir.Ruleset {
	return &ir.Ruleset{
		Name: "loop-game",
		Components: []ir.ComponentDef{
			{Name: "Looper", TriggerIDs: []string{"kickoff", "reflect"}},
		},
		Triggers: []ir.TriggerDef{
			{
				ID:        "kickoff",
				Kind:      ir.TriggerEvent,
				EventType: "MatchStarted",
				Scope:     ir.ScopeSpec{Mode: ir.ScopeSelf},
				Effects:   []ir.EffectDef{{Kind: ir.EffectEmitEvent, EventType: "Ping"}},
			},
			{
				ID:        "reflect",
				Kind:      ir.TriggerEvent,
				EventType: "Ping",
				Scope:     ir.ScopeSpec{Mode: ir.ScopeSelf},
				Effects:   []ir.EffectDef{{Kind: ir.EffectEmitEvent, EventType: "Ping"}},
			},
		},
	}
}

func TestResolutionOverflowEndsTheMatch(t *testing.T) {
	a, err := New(loopingRuleset(), []string{"alice"}, WithMaxRecursionDepth(5))
	require.NoError(t, err)
	_, err = a.CreateComponent("Looper", "battlefield", "alice", nil, nil)
	require.NoError(t, err)

	_, err = a.BeginGame()
	require.Error(t, err)
	assert.True(t, matcherr.Is(err, matcherr.ResolutionOverflow))
	assert.True(t, a.Ended(), "a fatal resolution error must halt the match")
}

// preReactionRuleset fires a pre-reaction ("Fizz") before its causing
// event ("Boom") is applied, per spec.md's pre/post ordering invariant.
func preReactionRuleset() *ir.Ruleset {
	return &ir.Ruleset{
		Name: "fizz-game",
		Components: []ir.ComponentDef{
			{Name: "Fizzler", TriggerIDs: []string{"fizz-before-boom"}},
		},
		Triggers: []ir.TriggerDef{{
			ID:          "fizz-before-boom",
			Kind:        ir.TriggerEvent,
			EventType:   "Boom",
			PreReaction: true,
			Scope:       ir.ScopeSpec{Mode: ir.ScopeSelf},
			Effects:     []ir.EffectDef{{Kind: ir.EffectEmitEvent, EventType: "Fizz"}},
		}},
		Rules: []ir.RuleDef{
			{ID: "boom", Name: "Boom", Effects: []ir.EffectDef{{Kind: ir.EffectEmitEvent, EventType: "Boom"}}},
		},
		Actions: []ir.ActionDef{{
			ID:             "trigger-boom",
			PhaseIDs:       []string{"main"},
			ExecuteRuleIDs: []string{"boom"},
		}},
		TurnStructure: ir.TurnStructure{
			Phases:         []ir.PhaseDef{{ID: "main", Name: "Main", ExitType: ir.ExitOnNoActions}},
			InitialPhaseID: "main",
		},
	}
}

func TestPreReactionAppliesBeforeCausingEvent(t *testing.T) {
	a, err := New(preReactionRuleset(), []string{"alice"}, WithSeed(1))
	require.NoError(t, err)
	_, err = a.CreateComponent("Fizzler", "battlefield", "alice", nil, nil)
	require.NoError(t, err)

	_, err = a.BeginGame()
	require.NoError(t, err)

	res, err := a.ProcessAction("trigger-boom", "alice", map[string][]component.ID{})
	require.NoError(t, err)

	fizzIdx, boomIdx := -1, -1
	for i, ev := range res.Events {
		switch ev.Type {
		case "Fizz":
			fizzIdx = i
		case "Boom":
			boomIdx = i
		}
	}
	require.GreaterOrEqual(t, fizzIdx, 0)
	require.GreaterOrEqual(t, boomIdx, 0)
	assert.Less(t, fizzIdx, boomIdx, "a pre-reaction must resolve before the event that caused it")
}

// stateWatcherRuleset ends the game as soon as a player's life resource
// reaches zero, via a standing state-watcher predicate rather than an
// event-triggered reaction.
func stateWatcherRuleset() *ir.Ruleset {
	return &ir.Ruleset{
		Name: "life-game",
		Components: []ir.ComponentDef{
			{
				Name: "Duelist",
				Resources: []ir.ResourceSchema{
					{Name: "life", Kind: ir.ResourceTracked, Default: 1},
				},
				TriggerIDs: []string{"dead-at-zero"},
			},
		},
		Triggers: []ir.TriggerDef{{
			ID:   "dead-at-zero",
			Kind: ir.TriggerState,
			Condition: &ir.Predicate{
				Kind:  ir.PredGt,
				Left:  &ir.Expr{Kind: ir.ExprConstNumber, Value: 1},
				Right: &ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefSelf, Field: "life"},
			},
			Scope:   ir.ScopeSpec{Mode: ir.ScopeSelf},
			Effects: []ir.EffectDef{{Kind: ir.EffectEmitEvent, EventType: "EndGame"}},
		}},
		Rules: []ir.RuleDef{
			{ID: "hit", Name: "Hit", Effects: []ir.EffectDef{{
				Kind:         ir.EffectModifyState,
				StateOp:      ir.OpDealDamage,
				Target:       "self",
				ResourceName: "life",
				Amount:       ir.Expr{Kind: ir.ExprConstNumber, Value: 1},
			}}},
		},
		Actions: []ir.ActionDef{{
			ID:             "hit",
			PhaseIDs:       []string{"main"},
			ExecuteRuleIDs: []string{"hit"},
		}},
		TurnStructure: ir.TurnStructure{
			Phases:         []ir.PhaseDef{{ID: "main", Name: "Main", ExitType: ir.ExitOnNoActions}},
			InitialPhaseID: "main",
		},
	}
}

func TestStateWatcherEndsGameWhenLifeReachesZero(t *testing.T) {
	a, err := New(stateWatcherRuleset(), []string{"alice"}, WithSeed(1))
	require.NoError(t, err)
	_, err = a.CreateComponent("Duelist", "battlefield", "alice", nil, nil)
	require.NoError(t, err)

	_, err = a.BeginGame()
	require.NoError(t, err)

	res, err := a.ProcessAction("hit", "alice", map[string][]component.ID{})
	require.NoError(t, err)
	assert.Equal(t, GameEnded, res.Outcome)
	assert.True(t, a.Ended())
	require.NotEmpty(t, res.Events)
	assert.Equal(t, "EndGame", res.Events[len(res.Events)-1].Type)
}

// drawOnPhaseRuleset moves a card from deck to hand via a trigger that
// fires whenever the main phase starts, mirroring a draw-on-phase-entry
// rule. Only the Player component subscribes; Opponent never does.
func drawOnPhaseRuleset() *ir.Ruleset {
	return &ir.Ruleset{
		Name: "draw-game",
		Components: []ir.ComponentDef{
			{Name: "Player", TriggerIDs: []string{"draw-on-main"}},
			{Name: "Opponent"},
			{Name: "Card"},
		},
		Triggers: []ir.TriggerDef{{
			ID:        "draw-on-main",
			Kind:      ir.TriggerEvent,
			EventType: "PhaseStarted",
			Filters:   map[string]string{"phase_id": "main"},
			Scope:     ir.ScopeSpec{Mode: ir.ScopeSelf},
			Effects: []ir.EffectDef{{
				Kind: ir.EffectForEach,
				Over: ir.Selector{Kind: ir.SelectorZone, ZoneID: "deck"},
				Effects: []ir.EffectDef{{
					Kind:    ir.EffectModifyState,
					StateOp: ir.OpMoveCard,
					Target:  "it",
					ZoneID:  "hand",
				}},
			}},
		}},
		TurnStructure: ir.TurnStructure{
			Phases: []ir.PhaseDef{
				{ID: "main", Name: "Main", ExitType: ir.ExitOnNoActions},
				{ID: "end", Name: "End", ExitType: ir.ExitOnNoActions},
			},
			InitialPhaseID:    "main",
			MaxTurnsPerPlayer: 3,
		},
	}
}

func TestTriggerFiresOnPhaseEntryAndMovesCard(t *testing.T) {
	a, err := New(drawOnPhaseRuleset(), []string{"alice", "bob"}, WithSeed(1))
	require.NoError(t, err)
	_, err = a.CreateComponent("Player", "battlefield", "alice", nil, nil)
	require.NoError(t, err)
	_, err = a.CreateComponent("Opponent", "battlefield", "bob", nil, nil)
	require.NoError(t, err)
	card, err := a.CreateComponent("Card", "deck", "alice", nil, nil)
	require.NoError(t, err)

	res, err := a.BeginGame()
	require.NoError(t, err)
	assert.Equal(t, GameEnded, res.Outcome, "the turn limit eventually ends a ruleset with no player actions")

	hand := a.GetCurrentState().Components.ByZone("hand")
	require.Len(t, hand, 1)
	assert.Equal(t, card.ID, hand[0].ID)

	cardMovedIdx := -1
	for i, ev := range res.Events {
		if ev.Type == "CardMoved" {
			cardMovedIdx = i
			break
		}
	}
	require.GreaterOrEqual(t, cardMovedIdx, 0, "the draw-on-entry trigger must have moved the card")

	phaseStartedIdx, phaseEndedIdx := -1, -1
	for i := cardMovedIdx - 1; i >= 0; i-- {
		if res.Events[i].Type == "PhaseStarted" {
			phaseStartedIdx = i
			break
		}
	}
	for i := cardMovedIdx + 1; i < len(res.Events); i++ {
		if res.Events[i].Type == "PhaseEnded" {
			phaseEndedIdx = i
			break
		}
	}
	assert.GreaterOrEqual(t, phaseStartedIdx, 0, "a PhaseStarted must precede the draw")
	assert.GreaterOrEqual(t, phaseEndedIdx, 0, "a PhaseEnded must follow the draw")
}
