package ir

// StartNodeID and EndNodeID are implicit, reserved node ids every
// workflow graph has even when not listed in Nodes.
const (
	StartNodeID = "__start__"
	EndNodeID   = "__end__"
)

// WorkflowNode is one state of a workflow graph. A node may link to a
// child component definition, letting a Game workflow embed a Turn
// workflow, which in turn embeds a Phase workflow.
type WorkflowNode struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ChildComponent string `json:"child_component,omitempty"`
}

// EdgeKind is the closed tagged-union discriminator for workflow edges.
type EdgeKind string

const (
	EdgeSimple    EdgeKind = "simple"
	EdgeCondition EdgeKind = "condition"
	EdgeInput     EdgeKind = "input"
)

// WorkflowEdge is a transition between two nodes. Input edges are never
// auto-taken by a workflow step; they are only satisfied by a matching
// player action, which is what produces a pending input yield point.
type WorkflowEdge struct {
	Kind     EdgeKind   `json:"kind"`
	From     string     `json:"from"`
	To       string     `json:"to"`
	Priority int        `json:"priority"`

	// condition
	When *Predicate `json:"when,omitempty"`

	// input
	ActionID string `json:"action_id,omitempty"`
}

// WorkflowGraph is the static, compiled transition graph for one component
// definition's lifecycle.
type WorkflowGraph struct {
	ComponentName string         `json:"component_name"`
	Nodes         []WorkflowNode `json:"nodes"`
	Edges         []WorkflowEdge `json:"edges"`
}

// WorkflowState is the runtime cursor through a WorkflowGraph instance.
type WorkflowState struct {
	CurrentNodeID string            `json:"current_node_id"`
	History       []string          `json:"history"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}
