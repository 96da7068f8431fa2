package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/teapot-games/matchcore/internal/ir"
)

// TraceSnapshot captures a scenario run's event trace for deterministic
// golden-file comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"type": ev.Type,
			"seq":  ev.Seq,
		}
		if ev.Payload != nil {
			m["payload"] = ev.Payload
		}
		if ev.CausedBy != "" {
			m["caused_by"] = ev.CausedBy
		}
		traceList[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// RunWithGolden runs scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden. Regenerate fixtures with
// `go test ./internal/harness -update`.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-computed result's trace against a
// golden file, without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	traceJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
