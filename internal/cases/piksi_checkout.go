package cases

import (
	"fmt"

	"github.com/pan-ssds/ptest/internal/enums"
	"github.com/pan-ssds/ptest/internal/ptest"
	"github.com/pan-ssds/ptest/internal/state"
)

// Piksi position magnitude bounds, in metres.
//
// TODO(piksi): replace with the receiver's documented operating envelope
// once the checkout requirement specifies one.
const (
	PiksiPositionMin = 0.0
	PiksiPositionMax = 1e8
)

// PiksiReadings is how many cycles each checkout phase spans.
const PiksiReadings = 10

// PiksiCheckout checks the GPS receiver: it reports a mode, its position
// magnitude stays in bounds, and the position changes between readings.
type PiksiCheckout struct{}

func (PiksiCheckout) Name() string { return "piksi_checkout" }

func (PiksiCheckout) Description() string {
	return "Check Piksi receiver mode, position bounds and position variation"
}

func (PiksiCheckout) SetupSingleSat(t *ptest.T) error {
	t.PrintHeader("Begin Piksi Checkout Case")

	// The receiver task publishes nothing until it has run once.
	t.Cycle()
	t.WriteEnum("pan.state", enums.MissionStates, "manual")
	return nil
}

func (c PiksiCheckout) RunSingleSat(t *ptest.T) error {
	t.PrintRS("piksi.state")

	for i := 0; i < PiksiReadings; i++ {
		t.Cycle()
		c.printState(t)
	}

	readings := make([]state.Vector, 0, PiksiReadings)
	for i := 0; i < PiksiReadings; i++ {
		t.Cycle()
		pos := t.RSVector("piksi.pos")
		mag := ptest.MagOf(pos)
		readings = append(readings, pos)

		t.SoftAssert(PiksiPositionMin < mag && mag < PiksiPositionMax,
			"Piksi position reading out of expected bounds.")
	}

	t.SoftAssert(ptest.SumOfDifferentials(readings) > 0,
		"Piksi position readings did not vary across readings.")

	for i := 0; i < PiksiReadings; i++ {
		t.Cycle()
		c.printState(t)
		t.PrintRS("piksi.pos")
	}

	t.PrintHeader("PIKSI CHECKOUT COMPLETE")
	t.Finish()
	return nil
}

func (PiksiCheckout) printState(t *ptest.T) {
	t.Log("Piksi state is: %s", t.RSEnum("piksi.state", enums.PiksiModes))
}

func havtReset(dev int) string {
	return fmt.Sprintf("adcs_cmd.havt_reset%d", dev)
}
