package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/pan-ssds/ptest/internal/sim"
	"github.com/pan-ssds/ptest/internal/state"
)

// FakeController is a scriptable sim.FlightController with no control
// tasks. Fields are untyped; any declared field is readable and writable.
// Writes are applied on the next Step, like a real controller.
type FakeController struct {
	mu      sync.Mutex
	fields  map[string]state.Value
	pending []write
	clock   *DeterministicClock
	steps   int

	// StepAdvance is how far the counter moves per step. Zero means 1.
	StepAdvance int64

	// StepErr, if set, is returned by every Step.
	StepErr error

	// OnStep runs after each step's writes are applied, with the new
	// counter. It may call Set.
	OnStep func(f *FakeController, cycle int64)
}

type write struct {
	path  string
	value state.Value
}

// NewFakeController declares fields with initial values. The cycle
// counter field is added automatically.
func NewFakeController(fields map[string]state.Value) *FakeController {
	f := &FakeController{
		fields: make(map[string]state.Value, len(fields)+1),
		clock:  NewDeterministicClock(),
	}
	for k, v := range fields {
		f.fields[k] = v
	}
	f.fields[sim.CycleField] = state.Int(0)
	return f
}

// ReadState implements sim.FlightController.
func (f *FakeController) ReadState(path string) (state.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.fields[path]
	if !ok {
		return nil, &sim.FieldError{Code: sim.ErrCodeFieldNotFound, Field: path}
	}
	return v, nil
}

// WriteState implements sim.FlightController.
func (f *FakeController) WriteState(path string, v state.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.fields[path]; !ok {
		return &sim.FieldError{Code: sim.ErrCodeFieldNotFound, Field: path}
	}
	f.pending = append(f.pending, write{path: path, value: v})
	return nil
}

// Step implements sim.FlightController.
func (f *FakeController) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.StepErr != nil {
		return f.StepErr
	}

	f.mu.Lock()
	for _, w := range f.pending {
		f.fields[w.path] = w.value
	}
	f.pending = nil
	advance := f.StepAdvance
	if advance == 0 {
		advance = 1
	}
	cycle := f.clock.Advance(advance)
	f.fields[sim.CycleField] = state.Int(cycle)
	f.steps++
	hook := f.OnStep
	f.mu.Unlock()

	if hook != nil {
		hook(f, cycle)
	}
	return nil
}

// Set overwrites a field immediately, declaring it if needed.
func (f *FakeController) Set(path string, v state.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[path] = v
}

// Steps returns how many steps completed.
func (f *FakeController) Steps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps
}

// Fields returns the declared field names, sorted.
func (f *FakeController) Fields() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.fields))
	for k := range f.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
