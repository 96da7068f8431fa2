// Package registry assigns and tracks the lifecycle of events and
// reactions within a single match.
//
// Grounded on registry.py's EventRegistry/ReactionRegistry: a monotonic
// counter assigns a match-local handle on register, lookups are by that
// handle, and unregister/clear reclaim storage. The handle is distinct
// from ir.Event.ID / ir.Reaction.ID (content-addressed hashes used for
// persistence and replay) - the registry's handle only needs to be
// unique within the lifetime of one match actor.
package registry

import (
	"sync"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/ir"
)

// Handle is a match-local, monotonically assigned reference to a
// registered event or reaction.
type Handle int64

// EventRegistry owns the lifecycle of in-flight events.
type EventRegistry struct {
	mu       sync.Mutex
	counter  Handle
	byHandle map[Handle]*Event
}

// Event is the runtime record tracked by EventRegistry: the compiled
// event payload plus bookkeeping the stack and bus need during
// resolution.
type Event struct {
	Handle   Handle
	ID       string // content-addressed id, assigned once on push
	Type     string
	Payload  ir.IRObject
	CausedBy string // id of the reaction/action that produced this; empty if root/engine-caused
	Seq      int64  // logical clock value this event was pushed at
}

// NewEventRegistry creates an empty registry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{byHandle: make(map[Handle]*Event)}
}

// Register assigns a handle to ev, stores it, and returns the handle.
func (r *EventRegistry) Register(ev *Event) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	ev.Handle = r.counter
	r.byHandle[ev.Handle] = ev
	return ev.Handle
}

// Get retrieves an event by handle. The second return is false if the
// handle is unknown or has been unregistered.
func (r *EventRegistry) Get(h Handle) (*Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.byHandle[h]
	return ev, ok
}

// Unregister removes an event from the registry after it resolves.
func (r *EventRegistry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHandle, h)
}

// Clear removes all events.
func (r *EventRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHandle = make(map[Handle]*Event)
}

// Size returns the number of currently registered events.
func (r *EventRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHandle)
}

// Reaction is the runtime record tracked by ReactionRegistry: a single
// trigger's discovered response to an event, queued for resolution.
type Reaction struct {
	Handle     Handle
	ID         string // content-addressed id, assigned once on push
	TriggerID  string
	EventID    string // content-addressed id of the event that produced this reaction
	CausedByID component.ID
	Effects    []ir.EffectDef
	Pre        bool
	Seq        int64 // logical clock value this reaction was pushed at
}

// ReactionRegistry owns the lifecycle of in-flight reactions.
type ReactionRegistry struct {
	mu       sync.Mutex
	counter  Handle
	byHandle map[Handle]*Reaction
}

// NewReactionRegistry creates an empty registry.
func NewReactionRegistry() *ReactionRegistry {
	return &ReactionRegistry{byHandle: make(map[Handle]*Reaction)}
}

// Register assigns a handle to rx, stores it, and returns the handle.
func (r *ReactionRegistry) Register(rx *Reaction) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	rx.Handle = r.counter
	r.byHandle[rx.Handle] = rx
	return rx.Handle
}

// Get retrieves a reaction by handle.
func (r *ReactionRegistry) Get(h Handle) (*Reaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rx, ok := r.byHandle[h]
	return rx, ok
}

// Unregister removes a reaction after it resolves successfully. Failed
// resolutions are unregistered too (see DESIGN.md: event/reaction
// cleanup is scope-guarded so failures still reclaim registry storage
// rather than leaking handles across the rest of the match).
func (r *ReactionRegistry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHandle, h)
}

// Clear removes all reactions.
func (r *ReactionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHandle = make(map[Handle]*Reaction)
}

// Size returns the number of currently registered reactions.
func (r *ReactionRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHandle)
}
