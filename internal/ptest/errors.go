package ptest

import (
	"errors"
	"fmt"

	"github.com/pan-ssds/ptest/internal/enums"
	"github.com/pan-ssds/ptest/internal/sim"
)

// Kind categorizes fatal case errors.
type Kind string

const (
	// KindFieldNotFound indicates a read or write of a path the controller
	// does not know.
	KindFieldNotFound Kind = "FIELD_NOT_FOUND"

	// KindFieldError indicates any other controller-rejected field access
	// (read-only field, wrong value shape) or a value of an unexpected kind.
	KindFieldError Kind = "FIELD_ERROR"

	// KindUnknownEnumerant indicates an enumeration lookup miss.
	KindUnknownEnumerant Kind = "UNKNOWN_ENUMERANT"

	// KindWrongTargetCardinality indicates the satellite target set does not
	// fit the case. No hook has run.
	KindWrongTargetCardinality Kind = "WRONG_TARGET_CARDINALITY"

	// KindSimulationStall indicates a cycle step failed or the counter did
	// not advance by exactly one.
	KindSimulationStall Kind = "SIMULATION_STALL"

	// KindCaseFailure indicates the case aborted itself through Fail, or a
	// hook returned an error.
	KindCaseFailure Kind = "CASE_FAILURE"

	// KindMissingFinish indicates the run hook returned without Finish.
	KindMissingFinish Kind = "MISSING_FINISH"

	// KindPanic indicates a hook panicked.
	KindPanic Kind = "PANIC"
)

// CaseError is the fatal error that moved a case to ERRORED.
type CaseError struct {
	Kind    Kind
	Message string

	// Cycle is the last cycle counter the case observed.
	Cycle int64

	// Satellite is the target the failing operation addressed. Empty for
	// errors not tied to one target.
	Satellite string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *CaseError) Error() string {
	if e.Satellite != "" {
		return fmt.Sprintf("%s: %s (satellite=%s, cycle=%d)", e.Kind, e.Message, e.Satellite, e.Cycle)
	}
	return fmt.Sprintf("%s: %s (cycle=%d)", e.Kind, e.Message, e.Cycle)
}

// Unwrap returns the underlying cause.
func (e *CaseError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a CaseError in err's chain, or "" if there is
// none.
func KindOf(err error) Kind {
	var ce *CaseError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsFieldNotFound reports whether err is a FIELD_NOT_FOUND case error.
// Uses errors.As to handle wrapped errors.
func IsFieldNotFound(err error) bool {
	return KindOf(err) == KindFieldNotFound
}

// IsUnknownEnumerant reports whether err is an UNKNOWN_ENUMERANT case error.
func IsUnknownEnumerant(err error) bool {
	return KindOf(err) == KindUnknownEnumerant
}

// IsWrongTargetCardinality reports whether err is a WRONG_TARGET_CARDINALITY
// case error.
func IsWrongTargetCardinality(err error) bool {
	return KindOf(err) == KindWrongTargetCardinality
}

// IsSimulationStall reports whether err is a SIMULATION_STALL case error.
func IsSimulationStall(err error) bool {
	return KindOf(err) == KindSimulationStall
}

// IsCaseFailure reports whether err is a CASE_FAILURE case error.
func IsCaseFailure(err error) bool {
	return KindOf(err) == KindCaseFailure
}

// IsMissingFinish reports whether err is a MISSING_FINISH case error.
func IsMissingFinish(err error) bool {
	return KindOf(err) == KindMissingFinish
}

// IsPanic reports whether err is a PANIC case error.
func IsPanic(err error) bool {
	return KindOf(err) == KindPanic
}

// classify wraps err into a CaseError. Errors that already carry a kind keep
// it (gaining the satellite if they had none); controller and enumeration errors get theirs; anything else is a
// CASE_FAILURE.
func classify(err error, satellite string, cycle int64) *CaseError {
	var ce *CaseError
	if errors.As(err, &ce) {
		if ce.Satellite == "" {
			ce.Satellite = satellite
		}
		return ce
	}

	kind := KindCaseFailure
	switch {
	case sim.IsFieldNotFound(err):
		kind = KindFieldNotFound
	case sim.IsFieldError(err):
		kind = KindFieldError
	case enums.IsUnknownEnumerant(err):
		kind = KindUnknownEnumerant
	}
	return &CaseError{
		Kind:      kind,
		Message:   err.Error(),
		Cycle:     cycle,
		Satellite: satellite,
		Err:       err,
	}
}
