package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pan-ssds/ptest/internal/state"
)

// FlightController is the surface a test case drives: named field reads
// and writes plus a blocking one-cycle step.
//
// Implementations own the cycle counter and expose it at CycleField.
// Writes take effect on the next Step.
type FlightController interface {
	ReadState(path string) (state.Value, error)
	WriteState(path string, v state.Value) error
	Step(ctx context.Context) error
}

// DefaultCyclePeriod is the simulated duration of one control cycle.
const DefaultCyclePeriod = 120 * time.Millisecond

// DefaultEpoch is the simulated time of cycle 0.
var DefaultEpoch = time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)

type pendingWrite struct {
	path  string
	value state.Value
}

type stepRequest struct {
	done chan error
}

// Controller is an in-process simulated flight computer.
//
// Field reads and writes are served directly under a lock and never wait
// for a step. Steps are executed by a single-writer loop (Run); Step hands
// the loop a request and blocks until that cycle has completed, so a read
// issued after Step returns observes the post-step state.
//
// Each cycle:
//  1. applies writes queued since the previous cycle, in order
//  2. advances the cycle counter by one
//  3. runs the control tasks in registration order
type Controller struct {
	name   string
	period time.Duration
	epoch  time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	fields  *Registry
	pending []pendingWrite
	tasks   []Task
	clock   *Clock

	steps   chan stepRequest
	stopped chan struct{}
	runOnce sync.Once
}

// Option configures a Controller.
type Option func(*controllerConfig)

type controllerConfig struct {
	name   string
	fields []Field
	tasks  []Task
	period time.Duration
	epoch  time.Time
	start  int64
	logger *slog.Logger
}

// WithName labels the controller in logs (usually the satellite name).
func WithName(name string) Option {
	return func(c *controllerConfig) { c.name = name }
}

// WithFields replaces the default PAN field schema.
func WithFields(fields []Field) Option {
	return func(c *controllerConfig) { c.fields = fields }
}

// WithTasks replaces the default control tasks.
func WithTasks(tasks ...Task) Option {
	return func(c *controllerConfig) { c.tasks = tasks }
}

// WithCyclePeriod sets the simulated duration of one cycle.
func WithCyclePeriod(d time.Duration) Option {
	return func(c *controllerConfig) { c.period = d }
}

// WithEpoch sets the simulated time of cycle 0.
func WithEpoch(t time.Time) Option {
	return func(c *controllerConfig) { c.epoch = t }
}

// WithStartCycle resumes the cycle counter from a known value.
func WithStartCycle(n int64) Option {
	return func(c *controllerConfig) { c.start = n }
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *controllerConfig) { c.logger = l }
}

// NewController builds a simulated controller. Without options it exposes
// PANFields and runs DefaultTasks.
func NewController(opts ...Option) (*Controller, error) {
	cfg := &controllerConfig{
		name:   "sim",
		period: DefaultCyclePeriod,
		epoch:  DefaultEpoch,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.fields == nil {
		cfg.fields = PANFields()
	}
	if cfg.tasks == nil {
		tasks, err := DefaultTasks()
		if err != nil {
			return nil, err
		}
		cfg.tasks = tasks
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.period <= 0 {
		return nil, fmt.Errorf("cycle period must be positive, got %s", cfg.period)
	}

	fields, err := NewRegistry(cfg.fields)
	if err != nil {
		return nil, fmt.Errorf("build field registry: %w", err)
	}
	if f, ok := fields.Lookup(CycleField); !ok || f.Kind != state.KindInt {
		return nil, fmt.Errorf("field registry must declare %s as int", CycleField)
	}

	c := &Controller{
		name:    cfg.name,
		period:  cfg.period,
		epoch:   cfg.epoch,
		logger:  cfg.logger.With("controller", cfg.name),
		fields:  fields,
		tasks:   append([]Task(nil), cfg.tasks...),
		clock:   NewClockAt(cfg.start),
		steps:   make(chan stepRequest),
		stopped: make(chan struct{}),
	}
	if err := c.fields.set(CycleField, state.Int(cfg.start)); err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns the controller's label.
func (c *Controller) Name() string { return c.name }

// Fields returns the controller's field registry.
func (c *Controller) Fields() *Registry { return c.fields }

// ReadState returns the current committed value of a field.
func (c *Controller) ReadState(path string) (state.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fields.get(path)
}

// WriteState queues a write for the next cycle. Unknown, read-only and
// mis-shaped writes are rejected immediately.
func (c *Controller) WriteState(path string, v state.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.fields.slots[path]
	if !ok {
		return fieldNotFound(path)
	}
	if !s.Writable {
		return &FieldError{Code: ErrCodeFieldNotWritable, Field: path}
	}
	conformed, err := conform(s.Field, v)
	if err != nil {
		return err
	}

	c.pending = append(c.pending, pendingWrite{path: path, value: conformed})
	return nil
}

// Cycle returns the current cycle counter.
func (c *Controller) Cycle() int64 {
	return c.clock.Current()
}

// Step asks the loop to run one cycle and waits for it to finish.
//
// Step blocks until the cycle completes, ctx is done, or the loop has
// exited (ErrStopped). If Run was never started Step waits on ctx.
func (c *Controller) Step(ctx context.Context) error {
	req := stepRequest{done: make(chan error, 1)}

	select {
	case c.steps <- req:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("step not accepted: %w", ctx.Err())
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("step did not complete: %w", ctx.Err())
	}
}

// Run is the single-writer step loop. It blocks until ctx is cancelled and
// must be called from exactly one goroutine; later calls return at once.
func (c *Controller) Run(ctx context.Context) error {
	first := false
	c.runOnce.Do(func() { first = true })
	if !first {
		return fmt.Errorf("controller %s: Run already called", c.name)
	}
	defer close(c.stopped)

	c.logger.Debug("step loop starting", "cycle", c.clock.Current())
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("step loop stopped", "cycle", c.clock.Current())
			return ctx.Err()
		case req := <-c.steps:
			req.done <- c.step()
		}
	}
}

// Start runs the step loop in a new goroutine and returns a function that
// stops it and waits for it to exit.
func (c *Controller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (c *Controller) step() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range c.pending {
		if err := c.fields.set(w.path, w.value); err != nil {
			c.pending = nil
			return fmt.Errorf("apply write %s: %w", w.path, err)
		}
	}
	c.pending = nil

	cycle := c.clock.Next()
	if err := c.fields.set(CycleField, state.Int(cycle)); err != nil {
		return err
	}

	env := &Env{
		Cycle:  cycle,
		Time:   c.epoch.Add(time.Duration(cycle) * c.period),
		fields: c.fields,
	}
	for _, task := range c.tasks {
		if err := task.Execute(env); err != nil {
			return fmt.Errorf("cycle %d: task %s: %w", cycle, task.Name(), err)
		}
	}

	c.logger.Debug("cycle complete", "cycle", cycle)
	return nil
}
