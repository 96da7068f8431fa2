package ir

// NOTE: These are store-internal types, not part of the canonical IR.
// They use auto-increment IDs for FK references (the one place matchcore
// departs from content-addressed identity).

// ReactionFiring records one trigger firing in response to an event
// (store-layer). Unique on (event_id, trigger_id, binding_hash) so
// replaying the same event log never double-fires a reaction.
type ReactionFiring struct {
	ID          int64  `json:"id"`
	EventID     string `json:"event_id"`
	TriggerID   string `json:"trigger_id"`
	BindingHash string `json:"binding_hash"`
	Seq         int64  `json:"seq"`
}

// ProvenanceEdge links a reaction firing to an event it caused to be
// pushed onto the stack (store-layer).
type ProvenanceEdge struct {
	ID               int64  `json:"id"`
	ReactionFiringID int64  `json:"reaction_firing_id"`
	CausedEventID    string `json:"caused_event_id"`
}
