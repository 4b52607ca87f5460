package ptest

import (
	"context"
	"fmt"
	"math"

	"github.com/pan-ssds/ptest/internal/enums"
	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/state"
)

// Case is a named test case. A runnable case also implements exactly one
// of SingleSatCase and MultiSatCase.
type Case interface {
	Name() string
}

// SingleSatCase runs against exactly one satellite.
type SingleSatCase interface {
	Case
	SetupSingleSat(t *T) error
	RunSingleSat(t *T) error
}

// MultiSatCase runs against a set of satellites, one T per target in
// target order.
type MultiSatCase interface {
	Case
	SetupMultiSat(ts []*T) error
	RunMultiSat(ts []*T) error
}

// FixedCardinality is implemented by multi-satellite cases that need an
// exact number of targets.
type FixedCardinality interface {
	Satellites() int
}

// Describer is implemented by cases with a one-line description.
type Describer interface {
	Description() string
}

// caseRun is the state shared by the Ts of one run.
type caseRun struct {
	name      string
	acc       *Accumulator
	finished  bool
	enums     *enums.Registry
	observers []Observer
}

// fatal carries a CaseError from a T helper up to the runner.
type fatal struct {
	err *CaseError
}

// T is a case's handle on one satellite: field access, cycling, soft
// assertions and diagnostics.
//
// Fatal helpers (Fail, and any field, enumeration or cycle error) stop the
// hook immediately, the way testing.T.FailNow does. Like FailNow they must
// be called from the goroutine running the hook.
type T struct {
	ctx       context.Context
	satellite string
	run       *caseRun
	store     *StateStore
	driver    *CycleDriver
	sink      Sink
	cycle     int64
}

// Context returns the run's context.
func (t *T) Context() context.Context { return t.ctx }

// Satellite returns the target name.
func (t *T) Satellite() string { return t.satellite }

// CurrentCycle returns the last cycle counter this T observed.
func (t *T) CurrentCycle() int64 { return t.cycle }

// Store returns the field facade for this satellite.
func (t *T) Store() *StateStore { return t.store }

func (t *T) fatal(err *CaseError) {
	panic(fatal{err: err})
}

func (t *T) fatalErr(err error) {
	t.fatal(classify(err, t.satellite, t.cycle))
}

// WS writes a field. v may be a state.Value or a plain Go bool, integer,
// float or numeric slice. The write takes effect on the next cycle.
func (t *T) WS(path string, v any) {
	val, err := state.FromAny(v)
	if err != nil {
		t.fatal(&CaseError{
			Kind:      KindFieldError,
			Message:   fmt.Sprintf("write %s: %v", path, err),
			Cycle:     t.cycle,
			Satellite: t.satellite,
			Err:       err,
		})
	}
	if err := t.store.WriteField(path, val); err != nil {
		t.fatalErr(err)
	}
}

// WriteEnum writes the ordinal of name in domain to an enum-backed field.
func (t *T) WriteEnum(path, domain, name string) {
	t.WS(path, state.Int(t.Enum(domain, name)))
}

// RS reads a field.
func (t *T) RS(path string) state.Value {
	v, err := t.store.ReadField(path)
	if err != nil {
		t.fatalErr(err)
	}
	return v
}

func (t *T) wrongKind(path string, want state.Kind, got state.Value) {
	t.fatal(&CaseError{
		Kind:      KindFieldError,
		Message:   fmt.Sprintf("read %s: want %s, got %s", path, want, got.Kind()),
		Cycle:     t.cycle,
		Satellite: t.satellite,
	})
}

// RSBool reads a boolean field.
func (t *T) RSBool(path string) bool {
	v := t.RS(path)
	b, ok := v.(state.Bool)
	if !ok {
		t.wrongKind(path, state.KindBool, v)
	}
	return bool(b)
}

// RSInt reads an integer field.
func (t *T) RSInt(path string) int64 {
	v := t.RS(path)
	n, ok := state.AsInt(v)
	if !ok {
		t.wrongKind(path, state.KindInt, v)
	}
	return n
}

// RSFloat reads a numeric field as a float.
func (t *T) RSFloat(path string) float64 {
	v := t.RS(path)
	f, ok := state.AsFloat(v)
	if !ok {
		t.wrongKind(path, state.KindFloat, v)
	}
	return f
}

// RSVector reads a vector field.
func (t *T) RSVector(path string) state.Vector {
	v := t.RS(path)
	vec, ok := v.(state.Vector)
	if !ok {
		t.wrongKind(path, state.KindVector, v)
	}
	return vec
}

// RSEnum reads an enum-backed field and returns the enumerant name.
func (t *T) RSEnum(path, domain string) string {
	return t.EnumName(domain, t.RSInt(path))
}

// Enum returns the ordinal of name in domain.
func (t *T) Enum(domain, name string) int64 {
	n, err := t.run.enums.GetByName(domain, name)
	if err != nil {
		t.fatalErr(err)
	}
	return n
}

// EnumName returns the name of ordinal n in domain.
func (t *T) EnumName(domain string, n int64) string {
	name, err := t.run.enums.GetByNum(domain, n)
	if err != nil {
		t.fatalErr(err)
	}
	return name
}

// Cycle advances the satellite one control cycle and returns the new
// counter.
func (t *T) Cycle() int64 {
	n, err := t.driver.AdvanceCycle(t.ctx)
	if err != nil {
		t.fatalErr(err)
	}
	t.cycle = n
	for _, o := range t.run.observers {
		o.CycleAdvanced(t.run.name, t.satellite, n)
	}
	return n
}

// CycleN advances n cycles and returns the final counter.
func (t *T) CycleN(n int) int64 {
	for i := 0; i < n; i++ {
		t.Cycle()
	}
	return t.cycle
}

// SoftAssert records cond with a message and returns it. A false condition
// fails the case at the end but does not stop it.
func (t *T) SoftAssert(cond bool, format string, args ...any) bool {
	return t.run.acc.Record(cond, sprintf(format, args), t.cycle, t.satellite)
}

// Fail aborts the case with CASE_FAILURE. It does not return.
func (t *T) Fail(format string, args ...any) {
	t.fatal(&CaseError{
		Kind:      KindCaseFailure,
		Message:   sprintf(format, args),
		Cycle:     t.cycle,
		Satellite: t.satellite,
	})
}

// Finish marks the run hook complete. A run hook that returns without
// calling Finish errors the case.
func (t *T) Finish() {
	t.run.finished = true
}

// Log sends a diagnostic line to the run's sink.
func (t *T) Log(format string, args ...any) {
	t.sink.Put(sprintf(format, args))
}

// PrintHeader logs a section header.
func (t *T) PrintHeader(title string) {
	t.sink.Put("==== " + title + " ====")
}

// PrintRS reads each field and logs its current value.
func (t *T) PrintRS(paths ...string) {
	for _, p := range paths {
		t.sink.Put(p + ": " + t.RS(p).String())
	}
}

// HAVTRead returns the availability of every device in the hardware
// availability table, in device order.
func (t *T) HAVTRead() []bool {
	out := make([]bool, sim.HAVTLength)
	for i := range out {
		out[i] = t.RSBool(fmt.Sprintf("adcs_monitor.havt_device%d", i))
	}
	return out
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// MagOf returns the Euclidean norm of v.
func MagOf(v state.Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// SumOfDifferentials returns the summed magnitude of the differences
// between consecutive vectors. A series that never changes sums to 0.
// Vectors of mismatched length are compared over their common prefix.
func SumOfDifferentials(vs []state.Vector) float64 {
	var sum float64
	for i := 1; i < len(vs); i++ {
		prev, cur := vs[i-1], vs[i]
		n := min(len(prev), len(cur))
		diff := make(state.Vector, n)
		for j := 0; j < n; j++ {
			diff[j] = cur[j] - prev[j]
		}
		sum += MagOf(diff)
	}
	return sum
}
