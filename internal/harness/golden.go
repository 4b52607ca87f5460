package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/pan-ssds/ptest/internal/ptest"
)

// RunWithGolden runs a scenario against targets and compares the report
// with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The runner should use a fixed run ID generator so reports are stable.
func RunWithGolden(t *testing.T, runner *ptest.Runner, scenario *Scenario, targets []ptest.Target) (*ptest.Result, error) {
	t.Helper()

	res, err := runner.Run(context.Background(), NewCase(scenario), targets)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, res); err != nil {
		return nil, err
	}
	return res, nil
}

// AssertGolden compares a result's report against a golden file without
// re-running the case.
func AssertGolden(t *testing.T, name string, res *ptest.Result) error {
	t.Helper()

	var buf bytes.Buffer
	if err := ptest.WriteReport(&buf, res); err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
	return nil
}
