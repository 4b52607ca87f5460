// Package sim provides flight controllers for ptest cases to drive.
//
// FlightController is the contract: named field reads and writes plus a
// blocking one-cycle Step. Two implementations live here:
//
//   - Controller, an in-process simulated PAN flight computer with a typed
//     field registry and a handful of toy control tasks (mode checking,
//     reaction wheel speed tracking, HAVT resets, an SGP4-driven Piksi
//     receiver)
//   - Console, a client for the flight computer's JSON-lines debug console,
//     usable against real hardware or against Serve
//
// Writes take effect on the next Step in both. The cycle counter is
// published at CycleField and advances by exactly one per Step.
//
// Example:
//
//	ctrl, err := sim.NewController(sim.WithName("leader"))
//	if err != nil {
//		return err
//	}
//	stop := ctrl.Start(ctx)
//	defer stop()
//
//	_ = ctrl.WriteState("dcdc.ADCSMotor_cmd", state.Bool(true))
//	_ = ctrl.Step(ctx)
package sim
