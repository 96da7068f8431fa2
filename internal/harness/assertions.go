package harness

import (
	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/match"
)

const (
	AssertEventOccurs   = "event_occurs"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalPhase    = "final_phase"
	AssertEndedState    = "ended"
	AssertFinalResource = "final_resource"
	AssertFinalZone     = "final_zone"
)

func evaluateAssertions(result *Result, scenario *Scenario, actor *match.Actor, binds map[string]component.ID) {
	for _, a := range scenario.Assertions {
		switch a.Type {
		case AssertEventOccurs:
			if !eventOccurs(result.Trace, a.EventType) {
				result.addError("assertion %s: expected an event of type %q, none found", a.Type, a.EventType)
			}
		case AssertEventCount:
			got := eventCount(result.Trace, a.EventType)
			if got != a.Count {
				result.addError("assertion %s: expected %d events of type %q, got %d", a.Type, a.Count, a.EventType, got)
			}
		case AssertEventOrder:
			if !eventOrderHolds(result.Trace, a.Order) {
				result.addError("assertion %s: event types %v did not occur in that relative order", a.Type, a.Order)
			}
		case AssertFinalPhase:
			if result.FinalPhase != a.Phase {
				result.addError("assertion %s: expected final phase %q, got %q", a.Type, a.Phase, result.FinalPhase)
			}
		case AssertEndedState:
			if a.Ended != nil && result.Ended != *a.Ended {
				result.addError("assertion %s: expected ended=%v, got %v", a.Type, *a.Ended, result.Ended)
			}
		case AssertFinalResource:
			checkFinalResource(result, actor, binds, a)
		case AssertFinalZone:
			checkFinalZone(result, actor, binds, a)
		default:
			result.addError("assertion: unknown type %q", a.Type)
		}
	}
}

func eventOccurs(trace []TraceEvent, eventType string) bool {
	for _, ev := range trace {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

func eventCount(trace []TraceEvent, eventType string) int {
	n := 0
	for _, ev := range trace {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

// eventOrderHolds reports whether order's event types appear in the
// trace as a (not necessarily contiguous) subsequence.
func eventOrderHolds(trace []TraceEvent, order []string) bool {
	idx := 0
	for _, ev := range trace {
		if idx >= len(order) {
			break
		}
		if ev.Type == order[idx] {
			idx++
		}
	}
	return idx == len(order)
}

func checkFinalResource(result *Result, actor *match.Actor, binds map[string]component.ID, a Assertion) {
	id, ok := binds[a.Bind]
	if !ok {
		result.addError("assertion %s: no component bound to %q", a.Type, a.Bind)
		return
	}
	c, ok := actor.GetCurrentState().Components.Get(id)
	if !ok {
		result.addError("assertion %s: bound component %q no longer exists", a.Type, a.Bind)
		return
	}
	instances := c.ResourceInstances(a.Resource)
	if len(instances) == 0 {
		result.addError("assertion %s: component %q has no resource %q", a.Type, a.Bind, a.Resource)
		return
	}
	r, _ := c.Resource(instances[0])
	if r.CurrentAmount != a.Amount {
		result.addError("assertion %s: expected %s.%s == %d, got %d", a.Type, a.Bind, a.Resource, a.Amount, r.CurrentAmount)
	}
}

func checkFinalZone(result *Result, actor *match.Actor, binds map[string]component.ID, a Assertion) {
	id, ok := binds[a.Bind]
	if !ok {
		result.addError("assertion %s: no component bound to %q", a.Type, a.Bind)
		return
	}
	c, ok := actor.GetCurrentState().Components.Get(id)
	if !ok {
		result.addError("assertion %s: bound component %q no longer exists", a.Type, a.Bind)
		return
	}
	if c.Zone != a.Zone {
		result.addError("assertion %s: expected %s to be in zone %q, got %q", a.Type, a.Bind, a.Zone, c.Zone)
	}
}
