package ptest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/pan-ssds/ptest/internal/enums"
	"github.com/pan-ssds/ptest/internal/sim"
)

// State is a case lifecycle state.
type State string

const (
	StateCreated  State = "CREATED"
	StateSetup    State = "SETUP"
	StateRunning  State = "RUNNING"
	StateFinished State = "FINISHED"
	StateErrored  State = "ERRORED"
)

// Target is one satellite a case runs against.
type Target struct {
	Name       string
	Controller sim.FlightController
}

// Observer is notified of run progress. Observers must not block.
type Observer interface {
	CycleAdvanced(caseName, satellite string, cycle int64)
	CaseFinished(res *Result)
}

// Result is the outcome of one case run.
type Result struct {
	RunID      string   `json:"run_id"`
	Case       string   `json:"case"`
	Satellites []string `json:"satellites"`
	State      State    `json:"state"`
	Verdict    Verdict  `json:"verdict"`
	Records    []Record `json:"records"`

	// Err is set when State is ERRORED.
	Err *CaseError `json:"-"`

	// Transitions lists every state the run passed through, in order.
	Transitions []State `json:"transitions"`
}

// Failed returns the number of failed soft assertions.
func (r *Result) Failed() int {
	n := 0
	for _, rec := range r.Records {
		if !rec.Condition {
			n++
		}
	}
	return n
}

func (r *Result) transition(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Runner executes cases through the lifecycle
//
//	CREATED -> SETUP -> RUNNING -> FINISHED
//
// with ERRORED reachable from SETUP and RUNNING, and from CREATED when the
// target set does not fit the case. One case runs at a time per Runner.
type Runner struct {
	enums     *enums.Registry
	sink      Sink
	logger    *slog.Logger
	ids       IDGenerator
	observers []Observer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithEnums sets the enumeration tables cases look names up in.
func WithEnums(reg *enums.Registry) RunnerOption {
	return func(r *Runner) { r.enums = reg }
}

// WithSink sets the diagnostics sink. A ScopedSink is scoped per satellite.
func WithSink(s Sink) RunnerOption {
	return func(r *Runner) { r.sink = s }
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithIDGenerator sets the run ID generator.
func WithIDGenerator(g IDGenerator) RunnerOption {
	return func(r *Runner) { r.ids = g }
}

// WithObserver adds a progress observer.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// NewRunner creates a runner. Defaults: the built-in enumeration tables,
// a discarding sink and logger, UUIDv7 run IDs.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.enums == nil {
		r.enums = enums.Default()
	}
	if r.sink == nil {
		r.sink = discardSink{}
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.ids == nil {
		r.ids = UUIDv7Generator{}
	}
	return r
}

// Run executes c against targets and returns its result.
//
// Failures of the case itself (including a target set of the wrong size)
// are reported in the Result, never as an error. The error return is
// reserved for cases that implement neither or both of SingleSatCase and
// MultiSatCase.
func (r *Runner) Run(ctx context.Context, c Case, targets []Target) (*Result, error) {
	single, isSingle := c.(SingleSatCase)
	multi, isMulti := c.(MultiSatCase)
	if isSingle == isMulti {
		return nil, fmt.Errorf("case %q must implement exactly one of SingleSatCase and MultiSatCase", c.Name())
	}

	res := &Result{
		RunID:       r.ids.Generate(),
		Case:        c.Name(),
		Satellites:  make([]string, len(targets)),
		State:       StateCreated,
		Transitions: []State{StateCreated},
		Records:     []Record{},
	}
	for i, tg := range targets {
		res.Satellites[i] = tg.Name
	}
	logger := r.logger.With("case", res.Case, "run_id", res.RunID)
	defer r.finish(res, logger)

	if err := checkCardinality(c, isSingle, len(targets)); err != nil {
		r.errored(res, err)
		return res, nil
	}

	res.transition(StateSetup)
	run := &caseRun{
		name:      c.Name(),
		acc:       &Accumulator{},
		enums:     r.enums,
		observers: r.observers,
	}
	ts := make([]*T, len(targets))
	for i, tg := range targets {
		t, err := r.newT(ctx, run, tg)
		if err != nil {
			r.errored(res, err)
			return res, nil
		}
		ts[i] = t
	}
	defer func() { res.Records = run.acc.Records() }()

	var hookErr *CaseError
	if isSingle {
		hookErr = r.invoke(logger, ts, func() error { return single.SetupSingleSat(ts[0]) })
	} else {
		hookErr = r.invoke(logger, ts, func() error { return multi.SetupMultiSat(ts) })
	}
	if hookErr != nil {
		r.errored(res, hookErr)
		return res, nil
	}

	res.transition(StateRunning)
	run.finished = false
	if isSingle {
		hookErr = r.invoke(logger, ts, func() error { return single.RunSingleSat(ts[0]) })
	} else {
		hookErr = r.invoke(logger, ts, func() error { return multi.RunMultiSat(ts) })
	}
	if hookErr != nil {
		r.errored(res, hookErr)
		return res, nil
	}
	if !run.finished {
		sat, cycle := lastSeen(ts)
		r.errored(res, &CaseError{
			Kind:      KindMissingFinish,
			Message:   "run hook returned without calling Finish",
			Cycle:     cycle,
			Satellite: sat,
		})
		return res, nil
	}

	res.transition(StateFinished)
	res.Verdict = run.acc.Verdict()
	return res, nil
}

func (r *Runner) newT(ctx context.Context, run *caseRun, tg Target) (*T, *CaseError) {
	driver := NewCycleDriver(tg.Controller)
	cycle, err := driver.Current()
	if err != nil {
		return nil, classify(err, tg.Name, 0)
	}

	t := &T{
		ctx:       ctx,
		satellite: tg.Name,
		run:       run,
		store:     NewStateStore(tg.Controller),
		driver:    driver,
		sink:      r.sink,
		cycle:     cycle,
	}
	if scoped, ok := r.sink.(ScopedSink); ok {
		t.sink = scoped.Scope(run.name, tg.Name, t.CurrentCycle)
	}
	return t, nil
}

// invoke runs a hook, converting fatal helper aborts, returned errors and
// panics into a CaseError.
func (r *Runner) invoke(logger *slog.Logger, ts []*T, hook func() error) (ce *CaseError) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if f, ok := rec.(fatal); ok {
			ce = f.err
			return
		}
		sat, cycle := lastSeen(ts)
		logger.Error("case panicked", "panic", rec, "stack", string(debug.Stack()))
		ce = &CaseError{
			Kind:      KindPanic,
			Message:   fmt.Sprint(rec),
			Cycle:     cycle,
			Satellite: sat,
		}
		if err, ok := rec.(error); ok {
			ce.Err = err
		}
	}()

	if err := hook(); err != nil {
		sat, cycle := lastSeen(ts)
		return classify(err, sat, cycle)
	}
	return nil
}

func (r *Runner) errored(res *Result, err *CaseError) {
	res.transition(StateErrored)
	res.Verdict = VerdictError
	res.Err = err
}

func (r *Runner) finish(res *Result, logger *slog.Logger) {
	if res.Err != nil {
		logger.Warn("case errored", "kind", res.Err.Kind, "cycle", res.Err.Cycle, "error", res.Err.Message)
	} else {
		logger.Info("case finished", "verdict", res.Verdict, "assertions", len(res.Records), "failed", res.Failed())
	}
	for _, o := range r.observers {
		o.CaseFinished(res)
	}
}

// lastSeen returns the satellite and cycle an error not raised by a
// specific T is attributed to. With several targets the satellite is left
// blank and the cycle is the highest observed.
func lastSeen(ts []*T) (string, int64) {
	if len(ts) == 0 {
		return "", 0
	}
	if len(ts) == 1 {
		return ts[0].satellite, ts[0].cycle
	}
	var cycle int64
	for _, t := range ts {
		cycle = max(cycle, t.cycle)
	}
	return "", cycle
}

func checkCardinality(c Case, isSingle bool, n int) *CaseError {
	var want string
	switch {
	case isSingle:
		if n == 1 {
			return nil
		}
		want = "exactly 1 satellite"
	default:
		if fc, ok := c.(FixedCardinality); ok {
			if n == fc.Satellites() {
				return nil
			}
			want = fmt.Sprintf("exactly %d satellites", fc.Satellites())
		} else {
			if n >= 1 {
				return nil
			}
			want = "at least 1 satellite"
		}
	}
	return &CaseError{
		Kind:    KindWrongTargetCardinality,
		Message: fmt.Sprintf("case %s needs %s, got %d", c.Name(), want, n),
	}
}
