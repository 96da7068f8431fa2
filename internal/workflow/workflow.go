// Package workflow implements the stateless workflow executor
// (spec.md §4.4): stepping a component instance through its
// WorkflowGraph one transition at a time, honoring edge kinds (Simple,
// Condition, Input) and priority ordering.
//
// Grounded on WorkflowExecutor.py's StepResult/get_valid_transitions/
// transition_to_node/step_workflow/can_exit_workflow. The executor
// itself carries no state — every function takes the graph and the
// instance's current ir.WorkflowState and returns the next one — so the
// match actor owns the only mutable copy, per spec.md §4.4's "stateless"
// characterization.
package workflow

import (
	"fmt"
	"sort"

	"github.com/teapot-games/matchcore/internal/expr"
	"github.com/teapot-games/matchcore/internal/ir"
)

// StepResult is the outcome of one StepWorkflow call.
type StepResult int

const (
	// Advanced means state changed and the caller should continue.
	Advanced StepResult = iota
	// Blocked means no enabled non-Input edge exists; a player must
	// activate one of the node's Input edges to proceed.
	Blocked
	// Ended means the workflow transitioned to the reserved end node.
	Ended
)

func (r StepResult) String() string {
	switch r {
	case Advanced:
		return "Advanced"
	case Blocked:
		return "Blocked"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// EnterWorkflow returns a fresh WorkflowState positioned at the
// reserved start node. It emits no events itself — TurnStarted/
// PhaseStarted are the match actor's responsibility.
func EnterWorkflow() ir.WorkflowState {
	return ir.WorkflowState{CurrentNodeID: ir.StartNodeID}
}

// ValidTransitions returns every outgoing edge from the current node
// whose condition (if any) evaluates true, ordered by priority
// descending then by declaration order (spec.md §4.4).
func ValidTransitions(graph ir.WorkflowGraph, st ir.WorkflowState, ctx *expr.Context) ([]ir.WorkflowEdge, error) {
	var candidates []indexedEdge
	for i, e := range graph.Edges {
		if e.From != st.CurrentNodeID {
			continue
		}
		if e.When != nil {
			ok, err := expr.EvalPredicate(ctx, *e.When)
			if err != nil {
				return nil, fmt.Errorf("workflow: evaluating edge condition %s->%s: %w", e.From, e.To, err)
			}
			if !ok {
				continue
			}
		}
		candidates = append(candidates, indexedEdge{edge: e, idx: i})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].edge.Priority > candidates[j].edge.Priority
	})
	out := make([]ir.WorkflowEdge, len(candidates))
	for i, c := range candidates {
		out[i] = c.edge
	}
	return out, nil
}

type indexedEdge struct {
	edge ir.WorkflowEdge
	idx  int
}

// TransitionToNode moves st to targetID if an enabled outgoing edge from
// the current node points there; it is an error otherwise.
func TransitionToNode(graph ir.WorkflowGraph, st ir.WorkflowState, targetID string, ctx *expr.Context) (ir.WorkflowState, error) {
	valid, err := ValidTransitions(graph, st, ctx)
	if err != nil {
		return st, err
	}
	for _, e := range valid {
		if e.To == targetID {
			return advance(st, targetID), nil
		}
	}
	return st, fmt.Errorf("workflow: no enabled edge from %s to %s", st.CurrentNodeID, targetID)
}

// TakeInput transitions st along the Input edge bound to actionID, if
// one is currently enabled from the current node. Input edges are never
// auto-taken by StepWorkflow — this is how a player action satisfies one.
func TakeInput(graph ir.WorkflowGraph, st ir.WorkflowState, actionID string, ctx *expr.Context) (ir.WorkflowState, bool, error) {
	valid, err := ValidTransitions(graph, st, ctx)
	if err != nil {
		return st, false, err
	}
	for _, e := range valid {
		if e.Kind == ir.EdgeInput && e.ActionID == actionID {
			return advance(st, e.To), true, nil
		}
	}
	return st, false, nil
}

func advance(st ir.WorkflowState, target string) ir.WorkflowState {
	st.History = append(append([]string(nil), st.History...), st.CurrentNodeID)
	st.CurrentNodeID = target
	return st
}

// StepWorkflow picks the highest-priority enabled non-Input transition
// and takes it, reporting Advanced/Blocked/Ended per spec.md §4.4.
func StepWorkflow(graph ir.WorkflowGraph, st ir.WorkflowState, ctx *expr.Context) (ir.WorkflowState, StepResult, error) {
	if st.CurrentNodeID == ir.EndNodeID {
		return st, Ended, nil
	}
	valid, err := ValidTransitions(graph, st, ctx)
	if err != nil {
		return st, Advanced, err
	}
	for _, e := range valid {
		if e.Kind == ir.EdgeInput {
			continue
		}
		next := advance(st, e.To)
		if e.To == ir.EndNodeID {
			return next, Ended, nil
		}
		return next, Advanced, nil
	}
	return st, Blocked, nil
}

// CanExitWorkflow reports whether the current node has a valid one-step
// path to the end node, or no end node is reachable from anywhere in
// the graph (spec.md §4.4: "or no exit node is declared").
func CanExitWorkflow(graph ir.WorkflowGraph, st ir.WorkflowState, ctx *expr.Context) (bool, error) {
	if st.CurrentNodeID == ir.EndNodeID {
		return true, nil
	}
	if !hasEndTarget(graph) {
		return true, nil
	}
	valid, err := ValidTransitions(graph, st, ctx)
	if err != nil {
		return false, err
	}
	for _, e := range valid {
		if e.To == ir.EndNodeID {
			return true, nil
		}
	}
	return false, nil
}

func hasEndTarget(graph ir.WorkflowGraph) bool {
	for _, e := range graph.Edges {
		if e.To == ir.EndNodeID {
			return true
		}
	}
	return false
}

// Reachable reports whether every node in the graph has a path to the
// end node or has at least one unconditionally-enabled outgoing edge,
// the structural invariant spec.md's testable property 7 requires.
// Unlike ValidTransitions this is a static, condition-free check over
// the declared edge set — used by the ruleset validator, not at match
// runtime.
func Reachable(graph ir.WorkflowGraph) []string {
	reachesEnd := computeReachesEnd(graph)
	nodeIDs := allNodeIDs(graph)
	var bad []string
	for _, id := range nodeIDs {
		if reachesEnd[id] {
			continue
		}
		if hasAnyOutgoing(graph, id) {
			continue
		}
		bad = append(bad, id)
	}
	return bad
}

func allNodeIDs(graph ir.WorkflowGraph) []string {
	seen := map[string]bool{ir.StartNodeID: true, ir.EndNodeID: true}
	var out []string
	for id := range seen {
		out = append(out, id)
	}
	for _, n := range graph.Nodes {
		if !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, n.ID)
		}
	}
	for _, e := range graph.Edges {
		for _, id := range []string{e.From, e.To} {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func hasAnyOutgoing(graph ir.WorkflowGraph, id string) bool {
	for _, e := range graph.Edges {
		if e.From == id {
			return true
		}
	}
	return false
}

func computeReachesEnd(graph ir.WorkflowGraph) map[string]bool {
	reverse := make(map[string][]string)
	for _, e := range graph.Edges {
		reverse[e.To] = append(reverse[e.To], e.From)
	}
	reaches := map[string]bool{ir.EndNodeID: true}
	queue := []string{ir.EndNodeID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, pred := range reverse[cur] {
			if !reaches[pred] {
				reaches[pred] = true
				queue = append(queue, pred)
			}
		}
	}
	return reaches
}
