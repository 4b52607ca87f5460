package ptest

import (
	"context"
	"fmt"

	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/state"
)

// CycleDriver advances a controller one control cycle at a time.
type CycleDriver struct {
	ctrl sim.FlightController
}

// NewCycleDriver wraps a controller.
func NewCycleDriver(ctrl sim.FlightController) *CycleDriver {
	return &CycleDriver{ctrl: ctrl}
}

// Current reads the controller's cycle counter.
func (d *CycleDriver) Current() (int64, error) {
	v, err := d.ctrl.ReadState(sim.CycleField)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", sim.CycleField, err)
	}
	n, ok := state.AsInt(v)
	if !ok {
		return 0, fmt.Errorf("%s holds %s, want int", sim.CycleField, v.Kind())
	}
	return n, nil
}

// AdvanceCycle steps the controller once and returns the new counter.
//
// It blocks until the step completes. A failed or cancelled step, or a
// counter that did not move by exactly one, is a SIMULATION_STALL error.
// Stalls are not retried.
func (d *CycleDriver) AdvanceCycle(ctx context.Context) (int64, error) {
	before, err := d.Current()
	if err != nil {
		return 0, stall(before, "read counter before step", err)
	}

	if err := d.ctrl.Step(ctx); err != nil {
		return before, stall(before, "step", err)
	}

	after, err := d.Current()
	if err != nil {
		return before, stall(before, "read counter after step", err)
	}
	if after != before+1 {
		return after, &CaseError{
			Kind:    KindSimulationStall,
			Message: fmt.Sprintf("cycle counter moved from %d to %d", before, after),
			Cycle:   after,
		}
	}
	return after, nil
}

func stall(cycle int64, op string, err error) *CaseError {
	return &CaseError{
		Kind:    KindSimulationStall,
		Message: fmt.Sprintf("%s: %v", op, err),
		Cycle:   cycle,
		Err:     err,
	}
}
