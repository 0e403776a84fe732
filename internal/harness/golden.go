package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-comparable part of a result: everything that
// stays the same between runs against the same backend state.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Agent    string       `json:"agent"`
	Pass     bool         `json:"pass"`
	Kind     Kind         `json:"kind,omitempty"`
	Trace    []TraceEvent `json:"trace"`
}

// Snapshot returns the golden-comparable part of r.
func (r *Result) Snapshot() TraceSnapshot {
	return TraceSnapshot{
		Scenario: r.Scenario,
		Agent:    r.Agent,
		Pass:     r.Pass,
		Kind:     r.Kind,
		Trace:    r.Trace,
	}
}

// AssertGolden compares the result's trace against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := json.MarshalIndent(result.Snapshot(), "", "  ")
	if err != nil {
		t.Fatalf("marshal trace snapshot: %v", err)
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
