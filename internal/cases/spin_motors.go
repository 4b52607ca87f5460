package cases

import (
	"github.com/pan-ssds/ptest/internal/enums"
	"github.com/pan-ssds/ptest/internal/ptest"
	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/state"
)

// SpinMotors gets a satellite ready to spin its reaction wheels: motor bus
// on, wheels in speed control, mission and ADCS in manual.
type SpinMotors struct {
	// Speed is the commanded wheel speed on every axis.
	Speed float64
}

// NewSpinMotors returns the case with the standard 10 rad/s command.
func NewSpinMotors() *SpinMotors {
	return &SpinMotors{Speed: 10}
}

func (c *SpinMotors) Name() string { return "spin_motors" }

func (c *SpinMotors) Description() string {
	return "Power the motor bus and command reaction wheels in speed control"
}

func (c *SpinMotors) SetupSingleSat(t *ptest.T) error {
	t.WS("cycle.auto", true)
	t.Log("battery: %s mV", t.RS("gomspace.vbatt"))

	for _, dev := range []int{7, 8, 9} {
		t.WS(havtReset(dev), true)
	}

	t.WS("dcdc.ADCSMotor_cmd", true)
	t.WS("adcs_cmd.rwa_speed_cmd", state.Vec(c.Speed, c.Speed, c.Speed))
	t.WriteEnum("adcs_cmd.rwa_mode", enums.RWAModes, "RWA_SPEED_CTRL")
	t.WriteEnum("pan.state", enums.MissionStates, "manual")
	t.WriteEnum("adcs.state", enums.ADCSStates, "point_manual")

	t.PrintRS("gomspace.vbatt", sim.CycleField)
	return nil
}

func (c *SpinMotors) RunSingleSat(t *ptest.T) error {
	before := t.RSInt(sim.CycleField)
	after := t.Cycle()
	t.SoftAssert(after == before+1, "cycle counter advanced from %d to %d", before, after)

	t.SoftAssert(t.RSBool("dcdc.ADCSMotor_cmd"), "motor bus powered")
	t.SoftAssert(t.RSEnum("adcs_cmd.rwa_mode", enums.RWAModes) == "RWA_SPEED_CTRL", "wheels in speed control")
	t.SoftAssert(t.RSEnum("pan.state", enums.MissionStates) == "manual", "mission state manual")
	t.SoftAssert(t.RSEnum("adcs.state", enums.ADCSStates) == "point_manual", "ADCS state point_manual")

	havt := t.HAVTRead()
	for _, dev := range []int{7, 8, 9} {
		t.SoftAssert(havt[dev], "HAVT device %d available after reset", dev)
	}

	first := ptest.MagOf(t.RSVector("adcs_monitor.rwa_speed_rd"))
	t.Cycle()
	second := ptest.MagOf(t.RSVector("adcs_monitor.rwa_speed_rd"))
	t.SoftAssert(second > first, "wheel speed rising: %.3f then %.3f", first, second)

	t.Finish()
	return nil
}
