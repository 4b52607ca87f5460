package ptest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-ssds/ptest/internal/enums"
	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/state"
	"github.com/pan-ssds/ptest/internal/testutil"
)

func TestRun_SingleSatCardinality(t *testing.T) {
	for _, n := range []int{0, 2, 3} {
		t.Run(fmt.Sprintf("%d targets", n), func(t *testing.T) {
			setupCalled := false
			c := &singleCase{
				name:  "single",
				setup: func(*T) error { setupCalled = true; return nil },
			}

			targets := make([]Target, n)
			for i := range targets {
				targets[i] = Target{Name: fmt.Sprintf("sat%d", i), Controller: testutil.NewFakeController(nil)}
			}

			res := mustRun(t, newRunner(), c, targets)

			assert.False(t, setupCalled, "setup must not run")
			assert.Equal(t, StateErrored, res.State)
			assert.Equal(t, VerdictError, res.Verdict)
			assert.True(t, IsWrongTargetCardinality(res.Err))
			assert.Equal(t, []State{StateCreated, StateErrored}, res.Transitions)
			assert.Empty(t, res.Records)
		})
	}
}

func TestRun_MultiSatCardinality(t *testing.T) {
	fake := func() sim.FlightController { return testutil.NewFakeController(nil) }

	pair := &pairCase{multiCase{name: "pair"}}
	res := mustRun(t, newRunner(), pair, []Target{{Name: "a", Controller: fake()}})
	assert.True(t, IsWrongTargetCardinality(res.Err))
	assert.Contains(t, res.Err.Message, "exactly 2 satellites")

	open := &multiCase{name: "open"}
	res = mustRun(t, newRunner(), open, nil)
	assert.True(t, IsWrongTargetCardinality(res.Err))

	open.run = func(ts []*T) error { ts[0].Finish(); return nil }
	res = mustRun(t, newRunner(), open, []Target{
		{Name: "a", Controller: fake()},
		{Name: "b", Controller: fake()},
		{Name: "c", Controller: fake()},
	})
	assert.Equal(t, StateFinished, res.State)
	assert.Equal(t, []string{"a", "b", "c"}, res.Satellites)
}

func TestRun_InvalidCaseType(t *testing.T) {
	_, err := newRunner().Run(context.Background(), neither{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of")
}

type neither struct{}

func (neither) Name() string { return "neither" }

func TestRun_SoftFailureDoesNotAbort(t *testing.T) {
	reachedEnd := false
	c := &singleCase{
		name: "soft",
		run: func(t *T) error {
			t.Cycle()
			t.SoftAssert(false, "speed out of range: 10%")
			t.Cycle()
			t.SoftAssert(true, "second check")
			reachedEnd = true
			t.Finish()
			return nil
		},
	}

	res := mustRun(t, newRunner(), c, target("leader", testutil.NewFakeController(nil)))

	assert.True(t, reachedEnd)
	assert.Equal(t, StateFinished, res.State)
	assert.Equal(t, VerdictFail, res.Verdict)
	assert.Nil(t, res.Err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, Record{Condition: false, Message: "speed out of range: 10%", Cycle: 1, Satellite: "leader"}, res.Records[0])
	assert.Equal(t, Record{Condition: true, Message: "second check", Cycle: 2, Satellite: "leader"}, res.Records[1])
	assert.Equal(t, 1, res.Failed())
}

func TestRun_AllTrueIsPass(t *testing.T) {
	c := &singleCase{
		name: "pass",
		run: func(t *T) error {
			for i := 0; i < 3; i++ {
				t.Cycle()
				t.SoftAssert(true, "reading %d", i)
			}
			t.Finish()
			return nil
		},
	}

	res := mustRun(t, newRunner(), c, target("leader", testutil.NewFakeController(nil)))

	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Equal(t, []State{StateCreated, StateSetup, StateRunning, StateFinished}, res.Transitions)
	assert.Equal(t, "reading 2", res.Records[2].Message)
	assert.Equal(t, "run-golden", res.RunID)
}

func TestRun_NoAssertionsIsPass(t *testing.T) {
	c := &singleCase{name: "empty", run: func(t *T) error { t.Finish(); return nil }}

	res := mustRun(t, newRunner(), c, target("leader", testutil.NewFakeController(nil)))
	assert.Equal(t, VerdictPass, res.Verdict)
}

func TestRun_MissingFinish(t *testing.T) {
	c := &singleCase{
		name:  "unfinished",
		setup: func(t *T) error { t.Finish(); return nil },
		run: func(t *T) error {
			t.Cycle()
			t.SoftAssert(true, "ok")
			return nil
		},
	}

	res := mustRun(t, newRunner(), c, target("leader", testutil.NewFakeController(nil)))

	assert.Equal(t, StateErrored, res.State)
	assert.Equal(t, VerdictError, res.Verdict)
	require.True(t, IsMissingFinish(res.Err))
	assert.Equal(t, int64(1), res.Err.Cycle)
	assert.Equal(t, "leader", res.Err.Satellite)
	assert.Len(t, res.Records, 1)
}

func TestRun_CaseFailureBeforeAnyAssertion(t *testing.T) {
	c := &singleCase{
		name: "abort",
		run: func(t *T) error {
			t.Fail("piksi reports %s", "dead")
			t.SoftAssert(true, "unreachable")
			t.Finish()
			return nil
		},
	}

	res := mustRun(t, newRunner(), c, target("leader", testutil.NewFakeController(nil)))

	assert.Equal(t, VerdictError, res.Verdict)
	assert.Empty(t, res.Records)
	require.True(t, IsCaseFailure(res.Err))
	assert.Equal(t, "piksi reports dead", res.Err.Message)
	assert.Equal(t, []State{StateCreated, StateSetup, StateRunning, StateErrored}, res.Transitions)
}

func TestRun_FatalErrorsInSetup(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *T) error
		check func(error) bool
	}{
		{"unknown field write", func(t *T) error { t.WS("pan.nonexistent", 1); return nil }, IsFieldNotFound},
		{"unknown field read", func(t *T) error { t.RS("pan.nonexistent"); return nil }, IsFieldNotFound},
		{"unknown enumerant", func(t *T) error { t.WriteEnum("adcs_cmd.rwa_mode", enums.RWAModes, "RWA_WARP"); return nil }, IsUnknownEnumerant},
		{"unknown ordinal", func(t *T) error { t.EnumName(enums.PiksiModes, 42); return nil }, IsUnknownEnumerant},
		{"read only", func(t *T) error { t.WS("piksi.pos", []float64{1, 2, 3}); return nil }, func(err error) bool { return KindOf(err) == KindFieldError }},
		{"unconvertible value", func(t *T) error { t.WS("pan.state", "manual"); return nil }, func(err error) bool { return KindOf(err) == KindFieldError }},
		{"wrong kind read", func(t *T) error { t.RSVector("pan.state"); return nil }, func(err error) bool { return KindOf(err) == KindFieldError }},
		{"returned error", func(t *T) error { return errors.New("no ground link") }, IsCaseFailure},
		{"panic", func(t *T) error { panic("nil map") }, IsPanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &singleCase{
				name:  "fatal",
				setup: tt.setup,
				run:   func(t *T) error { t.Finish(); return nil },
			}

			res := mustRun(t, newRunner(), c, target("leader", startSim(t, "leader")))

			assert.Equal(t, []State{StateCreated, StateSetup, StateErrored}, res.Transitions)
			assert.Equal(t, VerdictError, res.Verdict)
			require.NotNil(t, res.Err)
			assert.True(t, tt.check(res.Err), "got %v", res.Err)
			assert.Equal(t, "leader", res.Err.Satellite)
		})
	}
}

func TestRun_SimulationStall(t *testing.T) {
	t.Run("counter skips", func(t *testing.T) {
		fake := testutil.NewFakeController(nil)
		fake.StepAdvance = 2
		c := &singleCase{name: "stall", run: func(t *T) error { t.Cycle(); t.Finish(); return nil }}

		res := mustRun(t, newRunner(), c, target("leader", fake))

		require.True(t, IsSimulationStall(res.Err))
		assert.Contains(t, res.Err.Message, "from 0 to 2")
		assert.Equal(t, "leader", res.Err.Satellite)
	})

	t.Run("step fails", func(t *testing.T) {
		fake := testutil.NewFakeController(nil)
		fake.StepErr = errors.New("watchdog reset")
		c := &singleCase{name: "stall", run: func(t *T) error { t.Cycle(); t.Finish(); return nil }}

		res := mustRun(t, newRunner(), c, target("leader", fake))

		require.True(t, IsSimulationStall(res.Err))
		assert.Contains(t, res.Err.Message, "watchdog reset")
		assert.Equal(t, int64(0), res.Err.Cycle)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		c := &singleCase{name: "stall", run: func(t *T) error {
			cancel()
			t.Cycle()
			t.Finish()
			return nil
		}}

		res, err := newRunner().Run(ctx, c, target("leader", testutil.NewFakeController(nil)))
		require.NoError(t, err)
		require.True(t, IsSimulationStall(res.Err))
		assert.ErrorIs(t, res.Err, context.Canceled)
	})
}

func TestRun_SpinMotorsAdvancesCounterByOne(t *testing.T) {
	var before, after int64
	c := &singleCase{
		name: "spin_motors",
		setup: func(t *T) error {
			t.WS("dcdc.ADCSMotor_cmd", true)
			t.WS("adcs_cmd.rwa_speed_cmd", []float64{10, 10, 10})
			t.WriteEnum("adcs_cmd.rwa_mode", enums.RWAModes, "RWA_SPEED_CTRL")
			return nil
		},
		run: func(t *T) error {
			before = t.RSInt(sim.CycleField)
			t.Cycle()
			after = t.RSInt(sim.CycleField)
			t.SoftAssert(after == before+1, "cycle advanced")
			t.SoftAssert(t.RSBool("dcdc.ADCSMotor_cmd"), "motors powered")
			t.SoftAssert(t.RSEnum("adcs_cmd.rwa_mode", enums.RWAModes) == "RWA_SPEED_CTRL", "speed control")
			t.Finish()
			return nil
		},
	}

	res := mustRun(t, newRunner(), c, target("leader", startSim(t, "leader")))

	assert.Equal(t, VerdictPass, res.Verdict, "records: %+v", res.Records)
	assert.Equal(t, before+1, after)
}

func TestRun_TenPiksiReadingsOneOutOfRange(t *testing.T) {
	fake := testutil.NewFakeController(map[string]state.Value{
		"piksi.pos": state.Vec(0, 0, 0),
	})
	fake.OnStep = func(f *testutil.FakeController, cycle int64) {
		pos := state.Vec(6.7e6, float64(cycle), 0)
		if cycle == 7 {
			pos = state.Vec(2e8, 0, 0)
		}
		f.Set("piksi.pos", pos)
	}

	c := &singleCase{
		name: "piksi",
		run: func(t *T) error {
			for i := 0; i < 10; i++ {
				t.Cycle()
				mag := MagOf(t.RSVector("piksi.pos"))
				t.SoftAssert(0 < mag && mag < 1e8, "position magnitude %.0f in bounds", mag)
			}
			t.Finish()
			return nil
		},
	}

	res := mustRun(t, newRunner(), c, target("leader", fake))

	assert.Equal(t, VerdictFail, res.Verdict)
	require.Len(t, res.Records, 10)
	assert.Equal(t, 1, res.Failed())
	assert.False(t, res.Records[6].Condition)
	assert.Equal(t, int64(7), res.Records[6].Cycle)
	assert.Equal(t, "10 soft-assertions recorded, 1 failed", res.Summary())
}

func TestRun_MultiSatRecordsCarrySatellite(t *testing.T) {
	c := &pairCase{multiCase{
		name: "pair",
		run: func(ts []*T) error {
			for _, t := range ts {
				t.Cycle()
			}
			ts[0].SoftAssert(true, "leader ok")
			ts[1].SoftAssert(false, "follower off")
			ts[1].Finish()
			return nil
		},
	}}

	res := mustRun(t, newRunner(), c, []Target{
		{Name: "leader", Controller: testutil.NewFakeController(nil)},
		{Name: "follower", Controller: testutil.NewFakeController(nil)},
	})

	assert.Equal(t, VerdictFail, res.Verdict)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "leader", res.Records[0].Satellite)
	assert.Equal(t, "follower", res.Records[1].Satellite)
}

func TestRun_MultiSatReturnedErrorHasNoSatellite(t *testing.T) {
	c := &pairCase{multiCase{
		name: "pair",
		run: func(ts []*T) error {
			ts[0].Cycle()
			ts[0].Cycle()
			ts[1].Cycle()
			return errors.New("separation lost")
		},
	}}

	res := mustRun(t, newRunner(), c, []Target{
		{Name: "leader", Controller: testutil.NewFakeController(nil)},
		{Name: "follower", Controller: testutil.NewFakeController(nil)},
	})

	require.True(t, IsCaseFailure(res.Err))
	assert.Empty(t, res.Err.Satellite)
	assert.Equal(t, int64(2), res.Err.Cycle)
}

type recordingObserver struct {
	cycles  []string
	results []*Result
}

func (o *recordingObserver) CycleAdvanced(caseName, satellite string, cycle int64) {
	o.cycles = append(o.cycles, fmt.Sprintf("%s/%s/%d", caseName, satellite, cycle))
}

func (o *recordingObserver) CaseFinished(res *Result) {
	o.results = append(o.results, res)
}

func TestRun_NotifiesObservers(t *testing.T) {
	obs := &recordingObserver{}
	c := &singleCase{name: "observed", run: func(t *T) error { t.CycleN(2); t.Finish(); return nil }}

	res := mustRun(t, newRunner(WithObserver(obs)), c, target("leader", testutil.NewFakeController(nil)))

	assert.Equal(t, []string{"observed/leader/1", "observed/leader/2"}, obs.cycles)
	require.Len(t, obs.results, 1)
	assert.Same(t, res, obs.results[0])

	mustRun(t, newRunner(WithObserver(obs)), c, nil)
	require.Len(t, obs.results, 2)
	assert.Equal(t, VerdictError, obs.results[1].Verdict)
}

func TestRun_StartsFromControllerCycle(t *testing.T) {
	fake := testutil.NewFakeController(nil)
	fake.Set(sim.CycleField, state.Int(0))
	require.NoError(t, fake.Step(context.Background()))

	c := &singleCase{name: "resume", run: func(t *T) error {
		t.SoftAssert(t.CurrentCycle() == 1, "resumed at 1")
		t.Finish()
		return nil
	}}

	res := mustRun(t, newRunner(), c, target("leader", fake))
	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Equal(t, int64(1), res.Records[0].Cycle)
}
