package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/prometheusresearch/htsql-sub004/internal/product"
)

// Snapshot renders the outcome of a scenario for golden comparison: per
// query and dialect, the error kind or the number of statements, followed
// by the product as JSON when the query was executed.
//
// Statement text is left out so that the snapshot survives changes to the
// SQL layout; the sql expectations of a scenario check it where it
// matters.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", scenario.Name)
	step := -1
	for _, event := range result.Trace {
		if event.Step != step {
			fmt.Fprintf(&buf, "\n## %s\n", event.Query)
			step = event.Step
		}
		if event.Failed() {
			fmt.Fprintf(&buf, "-- %s: %s\n", event.Dialect, event.Error)
			continue
		}
		fmt.Fprintf(&buf, "-- %s: %d statement(s)\n", event.Dialect, len(event.SQL))
		if event.Product != nil {
			if err := product.WriteJSON(&buf, event.Product); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario, result)
}

// AssertGolden compares the snapshot of an executed scenario against its
// golden file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
