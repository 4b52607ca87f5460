// Package harness runs declarative test cases written in YAML.
//
// # Scenario Format
//
//	name: spin_motors_yaml
//	description: Spin reaction wheels in speed control
//	setup:
//	  - write: dcdc.ADCSMotor_cmd
//	    value: true
//	  - write: adcs_cmd.rwa_mode
//	    enum: {domain: rwa_modes, name: RWA_SPEED_CTRL}
//	run:
//	  - cycle: 1
//	  - expect: {field: pan.cycle_no, op: eq, value: 1}
//	  - require: {field: adcs_cmd.rwa_mode, op: eq, enum: {domain: rwa_modes, name: RWA_SPEED_CTRL}}
//	  - print: [adcs_monitor.rwa_speed_rd]
//	  - log: done
//
// Each step sets exactly one of write, cycle, expect, require, log and
// print. expect records a soft assertion; require aborts the case with
// CASE_FAILURE when its check fails. Operators are eq, ne, lt, le, gt and
// ge; ordering a vector compares its magnitude.
//
// Decoding is strict: unknown keys are errors, and validation errors name
// the offending step (for example "run[2]: unknown op").
//
// # Usage
//
//	c, err := harness.LoadCase("testdata/scenarios/spin_motors.yaml")
//	if err != nil {
//	    return err
//	}
//	res, err := runner.Run(ctx, c, targets)
package harness
