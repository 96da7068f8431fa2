// Package state holds the mutable game state a match actor operates on:
// components (via internal/component), zone contents, turn/phase
// counters, and the dirty flag the state-watcher engine polls.
//
// Grounded on state.py's apply_event dispatch-by-type pattern, adapted
// to the richer component-based model MatchActor.py actually drives
// (state.py's original GameState was a simpler prototype that predates
// the component/workflow system).
package state

import (
	"fmt"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/ir"
)

// ZoneContents tracks ordered membership for zones where order matters
// (decks, the stack itself); unordered zones just use the component
// manager's zone index.
type ZoneContents struct {
	order map[string][]component.ID
}

func newZoneContents() *ZoneContents {
	return &ZoneContents{order: make(map[string][]component.ID)}
}

// Push appends a component to the ordered tail of a zone.
func (z *ZoneContents) Push(zoneID string, id component.ID) {
	z.order[zoneID] = append(z.order[zoneID], id)
}

// Remove deletes a component from a zone's order, if present.
func (z *ZoneContents) Remove(zoneID string, id component.ID) {
	out := z.order[zoneID][:0]
	for _, existing := range z.order[zoneID] {
		if existing != id {
			out = append(out, existing)
		}
	}
	z.order[zoneID] = out
}

// Ordered returns a zone's contents in order.
func (z *ZoneContents) Ordered(zoneID string) []component.ID {
	return append([]component.ID(nil), z.order[zoneID]...)
}

// State is the full mutable state of one match.
type State struct {
	Components *component.Manager
	Zones      *ZoneContents

	CurrentPhaseID string
	TurnNumber     int
	ActivePlayer   string

	Players []string

	dirty bool
}

// New creates a fresh state for a match between the given players.
// TurnNumber starts at 0: no turn has begun until the first TurnStarted
// event is applied, which BeginGame emits explicitly.
func New(players []string, initialPhaseID string) *State {
	return &State{
		Components:     component.NewManager(),
		Zones:          newZoneContents(),
		CurrentPhaseID: initialPhaseID,
		TurnNumber:     0,
		Players:        players,
		ActivePlayer:   firstOrEmpty(players),
	}
}

func firstOrEmpty(xs []string) string {
	if len(xs) == 0 {
		return ""
	}
	return xs[0]
}

// MarkDirty flags that state has changed since the watcher engine last
// checked, so the next CheckWatchers call does real work instead of
// short-circuiting.
func (s *State) MarkDirty() {
	s.dirty = true
}

// Dirty reports whether state has changed since the last ClearDirty.
func (s *State) Dirty() bool {
	return s.dirty
}

// ClearDirty resets the dirty flag after watchers have been evaluated.
func (s *State) ClearDirty() {
	s.dirty = false
}

// Opponent returns the other player in a two-player match.
func (s *State) Opponent(player string) string {
	for _, p := range s.Players {
		if p != player {
			return p
		}
	}
	return ""
}

// ApplyEvent mutates state for the state-change event types the rule
// executor emits (CardMoved, ResourceChanged, DamageDealt, PhaseChanged,
// TurnStarted). Unknown event types are a no-op - not every event in
// the log changes persisted state, some are purely informational
// (triggers fire off of them without state to mutate).
func (s *State) ApplyEvent(eventType string, payload ir.IRObject) error {
	switch eventType {
	case "CardMoved":
		return s.applyCardMoved(payload)
	case "ResourceChanged":
		return s.applyResourceChanged(payload)
	case "PhaseChanged":
		return s.applyPhaseChanged(payload)
	case "TurnStarted":
		return s.applyTurnStarted(payload)
	default:
		return nil
	}
}

func (s *State) applyCardMoved(payload ir.IRObject) error {
	idVal, ok := payload["component_id"].(ir.IRInt)
	if !ok {
		return fmt.Errorf("CardMoved: missing component_id")
	}
	toZone, ok := payload["to_zone"].(ir.IRString)
	if !ok {
		return fmt.Errorf("CardMoved: missing to_zone")
	}
	controller := ""
	if c, ok := payload["controller_id"].(ir.IRString); ok {
		controller = string(c)
	}
	id := component.ID(idVal)
	c, found := s.Components.Get(id)
	if !found {
		return fmt.Errorf("CardMoved: unknown component %d", id)
	}
	s.Zones.Remove(c.Zone, id)
	s.Components.Move(id, string(toZone), controller)
	s.Zones.Push(string(toZone), id)
	s.MarkDirty()
	return nil
}

func (s *State) applyResourceChanged(payload ir.IRObject) error {
	idVal, ok := payload["component_id"].(ir.IRInt)
	if !ok {
		return fmt.Errorf("ResourceChanged: missing component_id")
	}
	instVal, ok := payload["instance_id"].(ir.IRInt)
	if !ok {
		return fmt.Errorf("ResourceChanged: missing instance_id")
	}
	delta, ok := payload["delta"].(ir.IRInt)
	if !ok {
		return fmt.Errorf("ResourceChanged: missing delta")
	}
	c, found := s.Components.Get(component.ID(idVal))
	if !found {
		return fmt.Errorf("ResourceChanged: unknown component %d", idVal)
	}
	r, found := c.Resource(component.ResourceInstanceID(instVal))
	if !found {
		return fmt.Errorf("ResourceChanged: unknown resource instance %d", instVal)
	}
	if delta < 0 {
		r.Spend(-int64(delta))
	} else {
		r.Gain(int64(delta))
	}
	s.MarkDirty()
	return nil
}

func (s *State) applyPhaseChanged(payload ir.IRObject) error {
	phaseID, ok := payload["phase_id"].(ir.IRString)
	if !ok {
		return fmt.Errorf("PhaseChanged: missing phase_id")
	}
	s.CurrentPhaseID = string(phaseID)
	s.MarkDirty()
	return nil
}

func (s *State) applyTurnStarted(payload ir.IRObject) error {
	s.TurnNumber++
	if player, ok := payload["active_player"].(ir.IRString); ok {
		s.ActivePlayer = string(player)
	}
	s.resetTurnResources()
	s.MarkDirty()
	return nil
}

func (s *State) resetTurnResources() {
	for _, c := range s.Components.All() {
		for _, r := range c.AllResourceInstances() {
			r.ResetTurn()
		}
	}
}
