// Package ptest runs hardware-in-the-loop test cases against flight
// controllers.
//
// A case drives one or more satellites forward in discrete control cycles
// through a T: it reads and writes named fields (WS, RS), steps the
// controller (Cycle), and records soft assertions (SoftAssert) that decide
// the verdict without stopping the case. Fatal problems such as an unknown
// field, an enumeration miss, a stalled controller or an explicit Fail abort
// the case at once and are reported with their Kind.
//
// A run moves through CREATED, SETUP, RUNNING and FINISHED. ERRORED is
// absorbing. The verdict is PASS or FAIL for a finished run, derived from the
// soft assertions, and ERROR otherwise.
//
// Example:
//
//	type spin struct{}
//
//	func (spin) Name() string { return "spin" }
//
//	func (spin) SetupSingleSat(t *ptest.T) error {
//		t.WS("dcdc.ADCSMotor_cmd", true)
//		return nil
//	}
//
//	func (spin) RunSingleSat(t *ptest.T) error {
//		t.Cycle()
//		t.SoftAssert(t.RSBool("dcdc.ADCSMotor_cmd"), "motors powered")
//		t.Finish()
//		return nil
//	}
//
//	res, err := ptest.NewRunner().Run(ctx, spin{}, []ptest.Target{{Name: "leader", Controller: ctrl}})
package ptest
