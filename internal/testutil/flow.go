package testutil

// FixedFlowGenerator generates the same flow token every time, for
// handwritten golden fixtures that want a literal, readable flow token
// (e.g. "fixture-001") instead of match.sequentialFlowGen's "flow/1",
// "flow/2", ... Pass one to match.WithFlowTokenGenerator.
//
// Thread-safe: stateless.
type FixedFlowGenerator struct {
	token string
}

// NewFixedFlowGenerator creates a new fixed flow token generator.
//
// The token is typically set in the scenario YAML:
//
//	flow_token: "test-flow-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-flow-default".
func NewFixedFlowGenerator(token string) *FixedFlowGenerator {
	if token == "" {
		token = "test-flow-default"
	}
	return &FixedFlowGenerator{token: token}
}

// Generate returns the fixed flow token. Implements match.FlowTokenGenerator.
func (g *FixedFlowGenerator) Generate() string {
	return g.token
}
