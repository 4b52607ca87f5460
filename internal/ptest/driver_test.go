package ptest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/state"
	"github.com/pan-ssds/ptest/internal/testutil"
)

func TestAdvanceCycle_Monotonic(t *testing.T) {
	driver := NewCycleDriver(startSim(t, "leader"))
	ctx := context.Background()

	prev, err := driver.Current()
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		got, err := driver.AdvanceCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, prev+1, got)
		prev = got
	}
}

func TestAdvanceCycle_Stalls(t *testing.T) {
	tests := []struct {
		name   string
		script func(f *testutil.FakeController)
		want   string
	}{
		{"frozen counter", func(f *testutil.FakeController) { f.StepAdvance = 0; f.OnStep = func(f *testutil.FakeController, _ int64) { f.Set(sim.CycleField, state.Int(0)) } }, "from 0 to 0"},
		{"counter jumps", func(f *testutil.FakeController) { f.StepAdvance = 5 }, "from 0 to 5"},
		{"counter goes back", func(f *testutil.FakeController) { f.StepAdvance = -1 }, "from 0 to -1"},
		{"step error", func(f *testutil.FakeController) { f.StepErr = errors.New("link down") }, "step: link down"},
		{"counter not int", func(f *testutil.FakeController) { f.Set(sim.CycleField, state.Bool(true)) }, "want int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeController(nil)
			tt.script(fake)

			_, err := NewCycleDriver(fake).AdvanceCycle(context.Background())
			require.Error(t, err)
			assert.True(t, IsSimulationStall(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAdvanceCycle_MissingCounter(t *testing.T) {
	fake := testutil.NewFakeController(nil)
	driver := NewCycleDriver(&withoutCounter{fake})

	_, err := driver.AdvanceCycle(context.Background())
	require.True(t, IsSimulationStall(err))
	assert.True(t, sim.IsFieldNotFound(err))
	assert.Equal(t, 0, fake.Steps())
}

type withoutCounter struct {
	*testutil.FakeController
}

func (w *withoutCounter) ReadState(path string) (state.Value, error) {
	if path == sim.CycleField {
		return nil, &sim.FieldError{Code: sim.ErrCodeFieldNotFound, Field: path}
	}
	return w.FakeController.ReadState(path)
}

func TestStateStore_Forwards(t *testing.T) {
	fake := testutil.NewFakeController(map[string]state.Value{"pan.state": state.Int(0)})
	store := NewStateStore(fake)

	require.NoError(t, store.WriteField("pan.state", state.Int(11)))
	require.NoError(t, fake.Step(context.Background()))

	v, err := store.ReadField("pan.state")
	require.NoError(t, err)
	assert.Equal(t, state.Int(11), v)

	_, err = store.ReadField("pan.nonexistent")
	assert.True(t, sim.IsFieldNotFound(err))
	assert.Contains(t, err.Error(), "read pan.nonexistent")

	err = store.WriteField("pan.nonexistent", state.Int(1))
	assert.True(t, sim.IsFieldNotFound(err))
}
