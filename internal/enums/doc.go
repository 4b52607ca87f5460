// Package enums provides the name/ordinal tables for symbolic controller
// states and modes.
//
// Tables are declared in tables.cue, one list per domain, and compiled once
// per process with the CUE SDK. A name's ordinal is its index in the list.
// After construction a Registry is never mutated, so it is safe to share
// between goroutines without locking.
//
// Usage:
//
//	reg := enums.Default()
//	mode, err := reg.GetByName(enums.RWAModes, "RWA_SPEED_CTRL") // 1
//	name, err := reg.GetByNum(enums.PiksiModes, 3)               // "no_fix"
//
// A miss is an *UnknownEnumerantError. Callers treat it as a programming
// error in a case or table, not as a condition to recover from.
package enums
