package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden-file form of a scenario outcome.
type Snapshot struct {
	Scenario   string              `json:"scenario"`
	Rows       []RowSnapshot       `json:"rows"`
	Allocation *AllocationSnapshot `json:"allocation,omitempty"`
}

// MarshalSnapshot renders the golden form of a result: two-space indented
// JSON with a trailing newline.
func MarshalSnapshot(name string, r *Result) ([]byte, error) {
	data, err := json.MarshalIndent(Snapshot{
		Scenario:   name,
		Rows:       r.Rows,
		Allocation: r.Allocation,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
