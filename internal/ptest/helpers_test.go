package ptest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type singleCase struct {
	name  string
	setup func(t *T) error
	run   func(t *T) error
}

func (c *singleCase) Name() string { return c.name }

func (c *singleCase) SetupSingleSat(t *T) error {
	if c.setup == nil {
		return nil
	}
	return c.setup(t)
}

func (c *singleCase) RunSingleSat(t *T) error {
	if c.run == nil {
		return nil
	}
	return c.run(t)
}

type multiCase struct {
	name  string
	setup func(ts []*T) error
	run   func(ts []*T) error
}

func (c *multiCase) Name() string { return c.name }

func (c *multiCase) SetupMultiSat(ts []*T) error {
	if c.setup == nil {
		return nil
	}
	return c.setup(ts)
}

func (c *multiCase) RunMultiSat(ts []*T) error {
	if c.run == nil {
		return nil
	}
	return c.run(ts)
}

type pairCase struct {
	multiCase
}

func (pairCase) Satellites() int { return 2 }

func newRunner(opts ...RunnerOption) *Runner {
	base := []RunnerOption{
		WithLogger(testLogger()),
		WithIDGenerator(testutil.NewFixedIDGenerator("run-golden")),
	}
	return NewRunner(append(base, opts...)...)
}

func startSim(t *testing.T, name string) *sim.Controller {
	t.Helper()
	ctrl, err := sim.NewController(sim.WithName(name), sim.WithLogger(testLogger()))
	require.NoError(t, err)
	stop := ctrl.Start(context.Background())
	t.Cleanup(stop)
	return ctrl
}

func target(name string, ctrl sim.FlightController) []Target {
	return []Target{{Name: name, Controller: ctrl}}
}

func mustRun(t *testing.T, r *Runner, c Case, targets []Target) *Result {
	t.Helper()
	res, err := r.Run(context.Background(), c, targets)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}
