package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/pan-ssds/ptest/internal/cases"
	"github.com/pan-ssds/ptest/internal/ptest"
)

// alwaysFails records one failed assertion after one cycle.
type alwaysFails struct{}

func (alwaysFails) Name() string { return "always_fails" }

func (alwaysFails) SetupSingleSat(*ptest.T) error { return nil }

func (alwaysFails) RunSingleSat(t *ptest.T) error {
	t.Cycle()
	t.SoftAssert(false, "never true")
	t.Finish()
	return nil
}

// testCatalog is the built-in catalog plus always_fails.
func testCatalog() *cases.Catalog {
	c := cases.Default()
	c.MustRegister(func() ptest.Case { return alwaysFails{} })
	return c
}

// execute runs cmd with args and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
