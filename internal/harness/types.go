package harness

import (
	"fmt"

	"github.com/teapot-games/matchcore/internal/ir"
)

// TraceEvent is one applied event in a scenario run's log, in apply
// order. Mirrors ir.Event but drops the content-addressed id: it is
// deterministic given a fixed flow-token generator (internal/match's
// default, or internal/testutil.FixedFlowGenerator in tests), but adds
// nothing a golden diff needs beyond Type/Payload/CausedBy/Seq.
type TraceEvent struct {
	Type     string       `json:"type"`
	Payload  ir.IRObject  `json:"payload,omitempty"`
	CausedBy string       `json:"caused_by,omitempty"`
	Seq      int64        `json:"seq"`
}

// Result is the outcome of running a scenario to completion.
type Result struct {
	// Pass indicates every assertion held.
	Pass bool `json:"pass"`

	// Trace is the full applied event log, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed assertion. Empty if Pass.
	Errors []string `json:"errors,omitempty"`

	// Ended reports whether the match reached a terminal outcome by
	// the end of the flow.
	Ended bool `json:"ended"`

	// FinalPhase is the match's CurrentPhaseID at the end of the run.
	FinalPhase string `json:"final_phase,omitempty"`
}

func newResult() *Result {
	return &Result{Pass: true}
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
