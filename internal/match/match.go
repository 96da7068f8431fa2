// Package match implements the Match Actor (spec.md §4.1): the
// single-writer orchestrator that ties the stack, registries, bus,
// state-watcher engine, workflow executor, and rule executor together
// into begin_game / process_action / submit_input / the pure query
// surface.
//
// Grounded on MatchActor.py's run_until_blocked/resolve_stack/
// check_state_based_actions and on the teacher's engine.Engine /
// engine.EngineOption functional-options pattern
// (internal/engine/engine.go) for match construction.
package match

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/teapot-games/matchcore/internal/bus"
	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/expr"
	"github.com/teapot-games/matchcore/internal/interpreter"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/matcherr"
	"github.com/teapot-games/matchcore/internal/registry"
	"github.com/teapot-games/matchcore/internal/rng"
	"github.com/teapot-games/matchcore/internal/rules"
	"github.com/teapot-games/matchcore/internal/stack"
	"github.com/teapot-games/matchcore/internal/state"
	"github.com/teapot-games/matchcore/internal/watcher"
	"github.com/teapot-games/matchcore/internal/workflow"
)

// DefaultMaxRecursionDepth bounds resolve_stack per spec.md §4.1, §9.
const DefaultMaxRecursionDepth = 100

// Store persists the event/reaction log as the actor produces it.
// internal/store provides the SQLite-backed implementation; tests and
// the in-memory harness may leave it nil.
type Store interface {
	AppendEvent(ir.Event) error
	AppendReaction(ir.Reaction) error
}

// Outcome is the result of a run-until-blocked cycle, surfaced from
// begin_game/process_action/submit_input per spec.md §4.1.
type Outcome int

const (
	Advanced Outcome = iota
	WaitingForInput
	GameEnded
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "Advanced"
	case WaitingForInput:
		return "WaitingForInput"
	case GameEnded:
		return "GameEnded"
	default:
		return "Unknown"
	}
}

// PendingInput describes an unresolved workflow Input edge: the match
// is blocked until the owning player submits it by id.
type PendingInput struct {
	ID       string
	ActionID string
}

// ActionResult is returned from every state-changing Actor operation.
type ActionResult struct {
	Outcome Outcome
	Events  []ir.Event
	Pending *PendingInput
}

// Option configures an Actor at construction time.
type Option func(*Actor)

// WithSeed fixes the match's deterministic RNG seed.
func WithSeed(seed int64) Option {
	return func(a *Actor) { a.rng = rng.New(seed) }
}

// WithMaxRecursionDepth overrides DefaultMaxRecursionDepth.
func WithMaxRecursionDepth(n int) Option {
	return func(a *Actor) { a.maxRecursionDepth = n }
}

// WithStore attaches a persistence sink; every applied event and
// resolved reaction is appended to it as it happens.
func WithStore(s Store) Option {
	return func(a *Actor) { a.store = s }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Actor) { a.log = l }
}

// FlowTokenGenerator produces the flow-correlation token assigned to
// each begin_game/process_action/submit_input call, per the teacher's
// engine.FlowTokenGenerator (internal/engine/engine.go): production uses
// a generator derived purely from match-local state, tests substitute a
// fixed one (internal/testutil.FixedFlowGenerator) for byte-identical
// golden output.
type FlowTokenGenerator interface {
	Generate() string
}

// sequentialFlowGen is the default FlowTokenGenerator: tokens are the
// call ordinal, not randomness, so EventID/ReactionID content hashes are
// reproducible across two actors given the same ruleset, seed, and call
// sequence (spec.md testable property 5). Unlike the teacher's
// production UUIDv7Generator, matchcore's default can't be random — the
// token feeds directly into a content-addressed id the spec requires to
// be deterministic, not merely unique.
type sequentialFlowGen struct{ n int64 }

func (g *sequentialFlowGen) Generate() string {
	g.n++
	return fmt.Sprintf("flow/%d", g.n)
}

// WithFlowTokenGenerator overrides the default sequential flow-token
// generator, e.g. with internal/testutil.FixedFlowGenerator to pin every
// call in a scenario to one token for golden-file comparison.
func WithFlowTokenGenerator(gen FlowTokenGenerator) Option {
	return func(a *Actor) { a.flowGen = gen }
}

// Actor orchestrates one match. Not safe for concurrent use — callers
// serialize begin_game/process_action/submit_input through a single
// goroutine, mirroring the teacher's single-writer engine.Run
// discipline (spec.md §5).
type Actor struct {
	id      string
	ruleset *ir.Ruleset

	st          *state.State
	eventReg    *registry.EventRegistry
	reactionReg *registry.ReactionRegistry
	stk         *stack.Stack
	evtBus      *bus.Bus
	watch       *watcher.Engine
	ruleInterp  *rules.Interpreter
	actInterp   *interpreter.Interpreter
	rng         *rng.RNG

	workflowGraph ir.WorkflowGraph
	workflowState ir.WorkflowState
	phaseOrder    []string

	maxRecursionDepth int
	seq               int64
	flowToken         string
	flowGen           FlowTokenGenerator
	inputSeq          int64
	began             bool
	ended             bool
	pending           *PendingInput
	eventLog          []ir.Event

	store Store
	log   *slog.Logger
}

// New constructs a match actor for the given ruleset and player list.
// No components exist yet — callers (typically internal/harness) use
// CreateComponent to set up the board before calling BeginGame.
func New(rs *ir.Ruleset, players []string, opts ...Option) (*Actor, error) {
	if rs == nil {
		return nil, matcherr.NewMalformedRuleset("ruleset is nil")
	}
	if len(players) == 0 {
		return nil, matcherr.NewMalformedRuleset("match requires at least one player")
	}
	a := &Actor{
		id:                uuid.NewString(),
		ruleset:           rs,
		st:                state.New(players, rs.TurnStructure.InitialPhaseID),
		eventReg:          registry.NewEventRegistry(),
		reactionReg:       registry.NewReactionRegistry(),
		stk:               stack.New(),
		evtBus:            bus.New(),
		watch:             watcher.New(),
		ruleInterp:        rules.NewInterpreter(rs),
		actInterp:         interpreter.New(rs),
		rng:               rng.New(0),
		flowGen:           &sequentialFlowGen{},
		maxRecursionDepth: DefaultMaxRecursionDepth,
		log:               slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.workflowGraph = rootWorkflowGraph(rs)
	a.workflowState = workflow.EnterWorkflow()
	a.phaseOrder = phaseOrder(rs.TurnStructure)
	return a, nil
}

// ID returns the match's unique identifier.
func (a *Actor) ID() string { return a.id }

// rootWorkflowGraph returns the ruleset's authored Game-level workflow
// graph if one was compiled, or synthesizes a cyclic per-phase graph
// from TurnStructure otherwise — see DESIGN.md, Open Question: workflow
// hierarchy collapse.
func rootWorkflowGraph(rs *ir.Ruleset) ir.WorkflowGraph {
	if rs.WorkflowGraph != nil {
		return *rs.WorkflowGraph
	}
	return buildTurnWorkflowGraph(rs.TurnStructure)
}

func buildTurnWorkflowGraph(ts ir.TurnStructure) ir.WorkflowGraph {
	g := ir.WorkflowGraph{ComponentName: "Game"}
	if len(ts.Phases) == 0 {
		g.Edges = append(g.Edges, ir.WorkflowEdge{Kind: ir.EdgeSimple, From: ir.StartNodeID, To: ir.EndNodeID})
		return g
	}
	first := ts.Phases[0].ID
	if ts.InitialPhaseID != "" {
		first = ts.InitialPhaseID
	}
	for _, p := range ts.Phases {
		g.Nodes = append(g.Nodes, ir.WorkflowNode{ID: p.ID, Name: p.Name})
	}
	g.Edges = append(g.Edges, ir.WorkflowEdge{Kind: ir.EdgeSimple, From: ir.StartNodeID, To: first})
	for i, p := range ts.Phases {
		next := ts.Phases[(i+1)%len(ts.Phases)].ID
		g.Edges = append(g.Edges, ir.WorkflowEdge{Kind: ir.EdgeSimple, From: p.ID, To: next})
	}
	return g
}

func phaseOrder(ts ir.TurnStructure) []string {
	out := make([]string, len(ts.Phases))
	for i, p := range ts.Phases {
		out[i] = p.ID
	}
	return out
}

// CreateComponent instantiates a component from its definition, copying
// in both the definition's declared triggers and any granted by the
// given keywords, and indexes it with the bus/state-watcher engine.
// Intended to be called before BeginGame to set up the starting board.
func (a *Actor) CreateComponent(defName, zone, controllerID string, props map[string]ir.IRValue, keywordIDs []string) (*component.Component, error) {
	def, ok := a.componentDef(defName)
	if !ok {
		return nil, matcherr.NewUnknownReference("component definition %q not found", defName)
	}
	triggers, err := a.resolveTriggers(def.TriggerIDs)
	if err != nil {
		return nil, err
	}
	for _, kw := range keywordIDs {
		kd, ok := a.keyword(kw)
		if !ok {
			return nil, matcherr.NewUnknownReference("keyword %q not found", kw)
		}
		triggers = append(triggers, kd.GrantedTriggers...)
		triggers = append(triggers, effectsAsTriggerlessBundle(kd)...)
	}
	c := a.st.Components.Create(def, zone, controllerID, props, triggers)
	for _, rschema := range def.Resources {
		c.AddResourceInstance(rschema, nil)
	}
	a.st.Zones.Push(zone, c.ID)
	a.registerComponentTriggers(c)
	a.st.MarkDirty()
	return c, nil
}

// effectsAsTriggerlessBundle is a placeholder for keyword-granted
// passive effects that aren't themselves triggers (none defined yet);
// kept so KeywordDef.Effects has a documented, if currently empty,
// consumer instead of silently going unused.
func effectsAsTriggerlessBundle(ir.KeywordDef) []ir.TriggerDef { return nil }

func (a *Actor) componentDef(name string) (ir.ComponentDef, bool) {
	for _, d := range a.ruleset.Components {
		if d.Name == name {
			return d, true
		}
	}
	return ir.ComponentDef{}, false
}

func (a *Actor) keyword(id string) (ir.KeywordDef, bool) {
	for _, k := range a.ruleset.Keywords {
		if k.ID == id {
			return k, true
		}
	}
	return ir.KeywordDef{}, false
}

func (a *Actor) resolveTriggers(ids []string) ([]ir.TriggerDef, error) {
	out := make([]ir.TriggerDef, 0, len(ids))
	for _, id := range ids {
		t, ok := a.trigger(id)
		if !ok {
			return nil, matcherr.NewUnknownReference("trigger %q not found", id)
		}
		out = append(out, t)
	}
	return out, nil
}

func (a *Actor) trigger(id string) (ir.TriggerDef, bool) {
	for _, t := range a.ruleset.Triggers {
		if t.ID == id {
			return t, true
		}
	}
	return ir.TriggerDef{}, false
}

func (a *Actor) registerComponentTriggers(c *component.Component) {
	for _, t := range c.Triggers {
		if t.Kind == ir.TriggerState {
			a.watch.RegisterWatcher(t, c.ID)
		} else {
			a.evtBus.Subscribe(t.EventType, t, c.ID)
		}
	}
}

// BeginGame initializes the match: emits MatchStarted, resolves it to
// quiescence, and enters run-until-blocked.
func (a *Actor) BeginGame() (*ActionResult, error) {
	if a.began {
		return nil, matcherr.NewInvalidAction("match %s already started", a.id)
	}
	a.began = true
	a.flowToken = a.nextFlowToken()
	start := len(a.eventLog)
	a.log.Info("match starting", "match_id", a.id, "players", a.st.Players)
	// Stack resolution is LIFO, so push turn 1's start before MatchStarted
	// itself: MatchStarted must resolve first, then TurnStarted. Turn 1
	// begins here rather than via onPhaseAdvanced's wrap detection - there
	// is no prior turn to end, only one to start.
	if _, err := a.pushEvent("TurnStarted", ir.IRObject{"active_player": ir.IRString(a.st.ActivePlayer)}, ""); err != nil {
		return nil, err
	}
	if _, err := a.pushEvent("MatchStarted", ir.IRObject{}, ""); err != nil {
		return nil, err
	}
	if err := a.resolveStack(); err != nil {
		return nil, a.failIfFatal(err)
	}
	outcome, err := a.runUntilBlocked()
	if err != nil {
		return nil, a.failIfFatal(err)
	}
	return a.result(start, outcome), nil
}

// failIfFatal marks the match ended when err is one of the fatal kinds
// (spec.md §7: ResolutionOverflow, Internal, MalformedRuleset halt the
// match and it accepts no further actions) and returns err unchanged so
// callers can still propagate it.
func (a *Actor) failIfFatal(err error) error {
	if matcherr.Is(err, matcherr.ResolutionOverflow) || matcherr.Is(err, matcherr.Internal) || matcherr.Is(err, matcherr.MalformedRuleset) {
		a.ended = true
	}
	return err
}

// ProcessAction validates and executes a player action per spec.md
// §4.1: deducts costs, emits ExecuteAction, resolves the stack, then
// advances the turn structure as far as it legally can.
func (a *Actor) ProcessAction(actionID, player string, targets map[string][]component.ID) (*ActionResult, error) {
	if a.ended {
		return nil, matcherr.NewInvalidAction("match %s has ended", a.id)
	}
	if a.pending != nil {
		return nil, matcherr.NewInvalidAction("match %s is waiting for input %s", a.id, a.pending.ID)
	}
	if err := a.actInterp.ValidateAction(actionID, a.st, player, targets); err != nil {
		return nil, err
	}
	action, _ := a.actInterp.Action(actionID)
	actor := a.playerComponent(player)
	if actor == nil {
		return nil, matcherr.NewInvalidAction("no component controlled by player %q", player)
	}
	a.flowToken = a.nextFlowToken()
	start := len(a.eventLog)
	a.log.Debug("processing action", "action_id", actionID, "player", player)

	if len(action.Costs) > 0 {
		ctx := expr.NewContext(a.st.Components, actor)
		costEvents, err := a.ruleInterp.ExecuteEffects(action.Costs, ctx, 0)
		if err != nil {
			return nil, err
		}
		if err := a.pushReversed(costEvents, ""); err != nil {
			return nil, err
		}
	}
	payload := ir.IRObject{"action_id": ir.IRString(actionID), "player": ir.IRString(player)}
	if _, err := a.pushEvent("ExecuteAction", payload, ""); err != nil {
		return nil, err
	}
	if err := a.resolveStack(); err != nil {
		return nil, a.failIfFatal(err)
	}
	outcome, err := a.runUntilBlocked()
	if err != nil {
		return nil, a.failIfFatal(err)
	}
	return a.result(start, outcome), nil
}

// SubmitInput satisfies the currently pending workflow Input edge and
// resumes the run-until-blocked loop.
func (a *Actor) SubmitInput(inputID string) (*ActionResult, error) {
	if a.ended {
		return nil, matcherr.NewInvalidAction("match %s has ended", a.id)
	}
	if a.pending == nil || a.pending.ID != inputID {
		return nil, matcherr.NewInputMismatch("no pending input %q", inputID)
	}
	a.flowToken = a.nextFlowToken()
	start := len(a.eventLog)

	self := a.gameContextComponent()
	ctx := expr.NewContext(a.st.Components, self)
	next, ok, err := workflow.TakeInput(a.workflowGraph, a.workflowState, a.pending.ActionID, ctx)
	if err != nil {
		return nil, matcherr.WrapInternal(err, "taking input %q", a.pending.ActionID)
	}
	if !ok {
		return nil, matcherr.NewInputMismatch("input %q is no longer valid", inputID)
	}
	from := a.workflowState.CurrentNodeID
	a.workflowState = next
	a.pending = nil
	if err := a.onPhaseAdvanced(from, next.CurrentNodeID); err != nil {
		return nil, err
	}
	if err := a.resolveStack(); err != nil {
		return nil, a.failIfFatal(err)
	}
	outcome, err := a.runUntilBlocked()
	if err != nil {
		return nil, a.failIfFatal(err)
	}
	return a.result(start, outcome), nil
}

// GetCurrentState exposes the live game state for inspection.
func (a *Actor) GetCurrentState() *state.State { return a.st }

// GetAvailableActions answers which actions player may currently submit.
func (a *Actor) GetAvailableActions(player string) ([]interpreter.Available, error) {
	return a.actInterp.GetAvailableActions(a.st, player)
}

// GetActionsForObject answers which actions target a specific object.
func (a *Actor) GetActionsForObject(player string, objectID component.ID) ([]interpreter.ObjectAction, error) {
	return a.actInterp.GetActionsForObject(a.st, player, objectID)
}

// Ended reports whether the match has reached a terminal state.
func (a *Actor) Ended() bool { return a.ended }

func (a *Actor) result(startIdx int, outcome Outcome) *ActionResult {
	return &ActionResult{
		Outcome: outcome,
		Events:  append([]ir.Event(nil), a.eventLog[startIdx:]...),
		Pending: a.pending,
	}
}

func (a *Actor) playerComponent(player string) *component.Component {
	for _, c := range a.st.Components.ByController(player) {
		if c.DefinitionName == "Player" {
			return c
		}
	}
	cs := a.st.Components.ByController(player)
	if len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// gameContextComponent picks the component used as "self" when
// evaluating Game-level workflow edge conditions: the Game component if
// one was instantiated, else the active player's, so ActiveWhile/When
// predicates referencing "self" have a sensible binding even though no
// single card "owns" turn structure.
func (a *Actor) gameContextComponent() *component.Component {
	if games := a.st.Components.ByDefinition("Game"); len(games) > 0 {
		return games[0]
	}
	return a.playerComponent(a.st.ActivePlayer)
}

// nextFlowToken delegates to the actor's FlowTokenGenerator (sequential
// by default), so two actors fed the same seed and the same call
// sequence compute identical content-addressed event/reaction ids
// (spec.md testable property 5: deterministic run) - a random generator
// would make EventID non-reproducible across otherwise-identical
// matches even though Type/Payload/Seq agree.
func (a *Actor) nextFlowToken() string {
	return a.flowGen.Generate()
}

// nextInputID assigns a pending input's id from the match's own counter
// rather than a.id (a random match identifier) so two matches replaying
// the same ruleset/seed/call sequence agree on it too.
func (a *Actor) nextInputID() string {
	a.inputSeq++
	return fmt.Sprintf("input/%d", a.inputSeq)
}

// pushEvent registers and stacks a new root-caused or reaction-caused
// event, assigning it a content-addressed id from the call's flow token
// and the match's logical clock.
func (a *Actor) pushEvent(eventType string, payload ir.IRObject, causedByID string) (registry.Handle, error) {
	a.seq++
	id, err := ir.EventID(a.flowToken, eventType, payload, a.seq)
	if err != nil {
		return 0, matcherr.WrapInternal(err, "computing event id for %s", eventType)
	}
	ev := &registry.Event{Type: eventType, Payload: payload, ID: id, CausedBy: causedByID, Seq: a.seq}
	h := a.eventReg.Register(ev)
	a.stk.Push(stack.Item{Kind: stack.ItemEvent, Ref: int64(h)})
	return h, nil
}

// pushReversed pushes a batch of emitted events so the first one
// produced is the first one resolved (spec.md §4.1/§4.5: "push them in
// reverse").
func (a *Actor) pushReversed(emitted []rules.Emitted, causedByID string) error {
	for i := len(emitted) - 1; i >= 0; i-- {
		if _, err := a.pushEvent(emitted[i].Type, emitted[i].Payload, causedByID); err != nil {
			return err
		}
	}
	return nil
}

func (a *Actor) pushReactionCandidate(cand bus.Candidate, eventID string) (registry.Handle, error) {
	a.seq++
	bindings := ir.IRObject{"caused_by": ir.IRInt(cand.CausedBy)}
	rid, err := ir.ReactionID(eventID, cand.TriggerID, bindings, a.seq)
	if err != nil {
		return 0, matcherr.WrapInternal(err, "computing reaction id for trigger %s", cand.TriggerID)
	}
	rx := &registry.Reaction{
		ID:         rid,
		TriggerID:  cand.TriggerID,
		EventID:    eventID,
		CausedByID: cand.CausedBy,
		Effects:    cand.Effects,
		Pre:        cand.Pre,
		Seq:        a.seq,
	}
	h := a.reactionReg.Register(rx)
	a.stk.Push(stack.Item{Kind: stack.ItemReaction, Ref: int64(h)})
	return h, nil
}

// resolveStack drains the stack to quiescence per spec.md §4.1's
// resolve_stack algorithm: peek-before-pop pre-reaction discovery,
// apply-then-post-reaction-discovery on pop, and a watcher
// check-to-quiescence round once the stack empties.
func (a *Actor) resolveStack() error {
	depth := 0
	checkIter := 0
	for {
		if a.ended {
			return nil
		}
		for !a.stk.Empty() {
			depth++
			if depth > a.maxRecursionDepth {
				return matcherr.NewResolutionOverflow("stack resolution exceeded %d steps", a.maxRecursionDepth)
			}
			top, _ := a.stk.Peek()
			if top.Kind == stack.ItemEvent && !top.Activated {
				ev, ok := a.eventReg.Get(registry.Handle(top.Ref))
				if !ok {
					a.stk.Pop()
					continue
				}
				pre, err := a.discoverReactions(ev, true)
				if err != nil {
					return err
				}
				for i := len(pre) - 1; i >= 0; i-- {
					if _, err := a.pushReactionCandidate(pre[i], ev.ID); err != nil {
						return err
					}
				}
				a.stk.MarkTopActivated()
				continue
			}

			item, _ := a.stk.Pop()
			switch item.Kind {
			case stack.ItemEvent:
				if err := a.resolveEventPop(registry.Handle(item.Ref)); err != nil {
					return err
				}
			case stack.ItemReaction:
				if err := a.resolveReactionPop(registry.Handle(item.Ref)); err != nil {
					return err
				}
			}
			a.st.MarkDirty()
		}

		fired, err := a.watch.CheckWatchers(a.st)
		if err != nil {
			return matcherr.WrapInternal(err, "checking state watchers")
		}
		if len(fired) == 0 {
			return nil
		}
		checkIter++
		if checkIter > watcher.MaxCheckIterations {
			return matcherr.NewResolutionOverflow("state-watcher checks exceeded %d iterations", watcher.MaxCheckIterations)
		}
		a.log.Debug("state watchers fired", "count", len(fired))
		for _, f := range fired {
			owner, ok := a.st.Components.Get(f.ComponentID)
			if !ok {
				continue
			}
			ctx := expr.NewContext(a.st.Components, owner)
			emitted, err := a.ruleInterp.ExecuteEffects(f.Effects, ctx, 0)
			if err != nil {
				return err
			}
			if err := a.pushReversed(emitted, ""); err != nil {
				return err
			}
		}
	}
}

func (a *Actor) discoverReactions(ev *registry.Event, pre bool) ([]bus.Candidate, error) {
	cands, err := a.evtBus.Dispatch(ev.Type, ev.Payload, a.st)
	if err != nil {
		return nil, matcherr.WrapInternal(err, "dispatching reactions for %s", ev.Type)
	}
	out := cands[:0]
	for _, c := range cands {
		if c.Pre == pre {
			out = append(out, c)
		}
	}
	return out, nil
}

func (a *Actor) resolveEventPop(h registry.Handle) error {
	ev, ok := a.eventReg.Get(h)
	if !ok {
		return nil
	}
	if err := a.applyEvent(ev); err != nil {
		a.eventReg.Unregister(h)
		if matcherr.Is(err, matcherr.UnknownReference) {
			a.log.Warn("dropping event with unresolved reference", "type", ev.Type, "err", err)
			return nil
		}
		return err
	}
	post, err := a.discoverReactions(ev, false)
	if err != nil {
		a.eventReg.Unregister(h)
		return err
	}
	for i := len(post) - 1; i >= 0; i-- {
		if _, err := a.pushReactionCandidate(post[i], ev.ID); err != nil {
			a.eventReg.Unregister(h)
			return err
		}
	}
	a.eventReg.Unregister(h)
	return nil
}

func (a *Actor) resolveReactionPop(h registry.Handle) error {
	rx, ok := a.reactionReg.Get(h)
	// Reactions reclaim registry storage whether they resolve cleanly or
	// fail (see DESIGN.md, Open Question: event/reaction cleanup).
	defer a.reactionReg.Unregister(h)
	if !ok {
		return nil
	}
	err := a.applyReaction(rx)
	if err != nil && matcherr.Is(err, matcherr.UnknownReference) {
		a.log.Warn("dropping reaction with unresolved reference", "trigger", rx.TriggerID, "err", err)
		return nil
	}
	return err
}

func (a *Actor) applyReaction(rx *registry.Reaction) error {
	owner, ok := a.st.Components.Get(rx.CausedByID)
	if !ok {
		return matcherr.NewUnknownReference("reaction %s: component %d no longer exists", rx.TriggerID, rx.CausedByID)
	}
	ctx := expr.NewContext(a.st.Components, owner)
	emitted, err := a.ruleInterp.ExecuteEffects(rx.Effects, ctx, 0)
	if err != nil {
		return err
	}
	return a.pushReversed(emitted, rx.ID)
}

// applyEvent records the event to the log/store and mutates state or
// drives workflow/action machinery per spec.md §4.1's "Applying an
// event".
func (a *Actor) applyEvent(ev *registry.Event) error {
	entry := ir.Event{ID: ev.ID, Type: ev.Type, Payload: ev.Payload, Seq: ev.Seq, CausedBy: ev.CausedBy, FlowToken: a.flowToken}
	a.eventLog = append(a.eventLog, entry)
	if a.store != nil {
		if err := a.store.AppendEvent(entry); err != nil {
			return matcherr.WrapInternal(err, "persisting event %s", ev.ID)
		}
	}

	switch ev.Type {
	case "ExecuteAction":
		return a.applyExecuteAction(ev)
	case "NextPhase", "PhaseEndRequested", "NextTurn", "TurnEndRequested":
		return a.advancePhase()
	case "EndGame":
		a.ended = true
		a.stk = stack.New()
		return nil
	default:
		return a.st.ApplyEvent(ev.Type, ev.Payload)
	}
}

func (a *Actor) applyExecuteAction(ev *registry.Event) error {
	actionID, _ := ev.Payload["action_id"].(ir.IRString)
	player, _ := ev.Payload["player"].(ir.IRString)
	action, ok := a.actInterp.Action(string(actionID))
	if !ok {
		return matcherr.NewUnknownReference("action %q not found", actionID)
	}
	actor := a.playerComponent(string(player))
	if actor == nil {
		return matcherr.NewUnknownReference("no component controlled by player %q", player)
	}
	ctx := expr.NewContext(a.st.Components, actor)
	var produced []rules.Emitted
	for _, ruleID := range action.ExecuteRuleIDs {
		out, err := a.ruleInterp.ExecuteRule(ruleID, ctx, 0)
		if err != nil {
			return err
		}
		produced = append(produced, out...)
	}
	return a.pushReversed(produced, ev.ID)
}

// advancePhase steps the root workflow graph one transition and emits
// the corresponding Phase/Turn lifecycle events.
func (a *Actor) advancePhase() error {
	self := a.gameContextComponent()
	ctx := expr.NewContext(a.st.Components, self)
	from := a.workflowState.CurrentNodeID
	next, result, err := workflow.StepWorkflow(a.workflowGraph, a.workflowState, ctx)
	if err != nil {
		return matcherr.WrapInternal(err, "stepping turn workflow")
	}
	a.workflowState = next
	switch result {
	case workflow.Blocked:
		return nil
	case workflow.Ended:
		a.log.Info("workflow reached end node")
		_, err := a.pushEvent("EndGame", ir.IRObject{}, "")
		return err
	case workflow.Advanced:
		return a.onPhaseAdvanced(from, next.CurrentNodeID)
	default:
		return fmt.Errorf("match: unknown workflow step result %v", result)
	}
}

// onPhaseAdvanced emits PhaseEnded for the departed phase (unless it was
// the start node), TurnEnded/TurnStarted if the cycle wrapped back to the
// first phase, then PhaseChanged (which state.ApplyEvent consumes) and
// PhaseStarted for the arriving phase — pushed in reverse so they resolve
// in this declared order. The initial Start transition never counts as a
// wrap: BeginGame emits turn 1's TurnStarted itself, before there is any
// phase to depart.
func (a *Actor) onPhaseAdvanced(from, to string) error {
	var seq []rules.Emitted
	if from != ir.StartNodeID {
		seq = append(seq, rules.Emitted{Type: "PhaseEnded", Payload: ir.IRObject{"phase_id": ir.IRString(from)}})
	}
	if from != ir.StartNodeID && a.turnWrapped(to) {
		seq = append(seq, rules.Emitted{Type: "TurnEnded", Payload: ir.IRObject{"turn_number": ir.IRInt(int64(a.st.TurnNumber))}})
		if ended, err := a.checkTurnLimit(); err != nil {
			return err
		} else if ended {
			seq = append(seq, rules.Emitted{Type: "EndGame", Payload: ir.IRObject{}})
			return a.pushReversed(seq, "")
		}
		nextPlayer := a.st.Opponent(a.st.ActivePlayer)
		seq = append(seq, rules.Emitted{Type: "TurnStarted", Payload: ir.IRObject{"active_player": ir.IRString(nextPlayer)}})
	}
	seq = append(seq, rules.Emitted{Type: "PhaseChanged", Payload: ir.IRObject{"phase_id": ir.IRString(to)}})
	seq = append(seq, rules.Emitted{Type: "PhaseStarted", Payload: ir.IRObject{"phase_id": ir.IRString(to)}})
	return a.pushReversed(seq, "")
}

func (a *Actor) turnWrapped(toNodeID string) bool {
	return len(a.phaseOrder) > 0 && toNodeID == a.phaseOrder[0]
}

func (a *Actor) checkTurnLimit() (bool, error) {
	max := a.ruleset.TurnStructure.MaxTurnsPerPlayer
	if max <= 0 {
		return false, nil
	}
	prospective := a.st.TurnNumber + 1
	limit := max * len(a.st.Players)
	return prospective > limit, nil
}

// runUntilBlocked repeatedly advances the turn structure until the
// active player has a real decision to make: either the phase can't
// auto-exit (legal actions remain) or a workflow Input edge is the only
// way forward, per spec.md §4.1/§4.4 and the phase-exit Open Question
// ("no legal actions AND workflow may exit").
func (a *Actor) runUntilBlocked() (Outcome, error) {
	for {
		if a.ended {
			return GameEnded, nil
		}
		self := a.gameContextComponent()
		ctx := expr.NewContext(a.st.Components, self)

		avail, err := a.actInterp.GetAvailableActions(a.st, a.st.ActivePlayer)
		if err != nil {
			return 0, err
		}
		if len(avail) > 0 {
			return WaitingForInput, nil
		}
		canExit, err := workflow.CanExitWorkflow(a.workflowGraph, a.workflowState, ctx)
		if err != nil {
			return 0, err
		}
		if !canExit {
			valid, err := workflow.ValidTransitions(a.workflowGraph, a.workflowState, ctx)
			if err != nil {
				return 0, err
			}
			for _, e := range valid {
				if e.Kind == ir.EdgeInput {
					a.pending = &PendingInput{ID: a.nextInputID(), ActionID: e.ActionID}
					break
				}
			}
			return WaitingForInput, nil
		}

		if _, err := a.pushEvent("NextPhase", ir.IRObject{}, ""); err != nil {
			return 0, err
		}
		if err := a.resolveStack(); err != nil {
			return 0, err
		}
	}
}
