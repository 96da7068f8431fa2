package ir

// Event is a content-addressed record of something that happened in a
// match: an action execution, a state change, or a system event like
// TurnStarted. Events are what the stack resolves and the bus dispatches.
type Event struct {
	ID        string   `json:"id"` // content-addressed hash
	Type      string   `json:"type"`
	Payload   IRObject `json:"payload"`
	Seq       int64    `json:"seq"` // logical clock
	CausedBy  string    `json:"caused_by,omitempty"` // id of the reaction/action that emitted this event
	FlowToken string    `json:"flow_token"`
}

// Reaction is a content-addressed record of a trigger firing against an
// event: the ordered effect pipeline a single trigger produced once
// discovered and activated.
type Reaction struct {
	ID        string      `json:"id"` // content-addressed hash
	TriggerID string      `json:"trigger_id"`
	EventID   string      `json:"event_id"`
	Bindings  IRObject    `json:"bindings"`
	Pre       bool        `json:"pre"` // true if this fires before the event resolves
	Seq       int64       `json:"seq"`
}
