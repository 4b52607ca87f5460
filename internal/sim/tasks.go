package sim

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/pan-ssds/ptest/internal/enums"
	"github.com/pan-ssds/ptest/internal/state"
)

// Task is one control task run by the controller every cycle, after
// pending writes are applied.
type Task interface {
	Name() string
	Execute(env *Env) error
}

// Env is the view of controller state a task gets for one cycle.
type Env struct {
	Cycle int64
	Time  time.Time

	fields *Registry
}

// Get returns a field's current value.
func (e *Env) Get(path string) (state.Value, error) {
	return e.fields.get(path)
}

// Set overwrites a field, bypassing the writable check.
func (e *Env) Set(path string, v state.Value) error {
	return e.fields.set(path, v)
}

func (e *Env) getInt(path string) (int64, error) {
	v, err := e.Get(path)
	if err != nil {
		return 0, err
	}
	n, ok := state.AsInt(v)
	if !ok {
		return 0, fmt.Errorf("%s: want int, got %s", path, v.Kind())
	}
	return n, nil
}

func (e *Env) getBool(path string) (bool, error) {
	v, err := e.Get(path)
	if err != nil {
		return false, err
	}
	b, ok := v.(state.Bool)
	if !ok {
		return false, fmt.Errorf("%s: want bool, got %s", path, v.Kind())
	}
	return bool(b), nil
}

func (e *Env) getVector(path string) (state.Vector, error) {
	v, err := e.Get(path)
	if err != nil {
		return nil, err
	}
	vec, ok := v.(state.Vector)
	if !ok {
		return nil, fmt.Errorf("%s: want vector, got %s", path, v.Kind())
	}
	return vec, nil
}

// DefaultTasks returns the control tasks of the simulated PAN flight
// computer in execution order.
func DefaultTasks() ([]Task, error) {
	piksi, err := NewPiksiTask(ISSLine1, ISSLine2)
	if err != nil {
		return nil, err
	}
	return []Task{
		NewModeTask(enums.Default()),
		&RWATask{},
		&HAVTTask{},
		piksi,
	}, nil
}

// ModeTask keeps the mission and ADCS state fields inside their enumerations.
// A commanded ordinal outside the domain is reverted to the last valid one.
type ModeTask struct {
	enums *enums.Registry
	last  map[string]int64
}

// NewModeTask creates a mode task checking against reg.
func NewModeTask(reg *enums.Registry) *ModeTask {
	return &ModeTask{enums: reg, last: make(map[string]int64)}
}

// Name implements Task.
func (t *ModeTask) Name() string { return "mode" }

// Execute implements Task.
func (t *ModeTask) Execute(env *Env) error {
	for _, m := range []struct{ field, domain string }{
		{"pan.state", enums.MissionStates},
		{"adcs.state", enums.ADCSStates},
	} {
		n, err := env.getInt(m.field)
		if err != nil {
			return err
		}
		if _, err := t.enums.GetByNum(m.domain, n); err != nil {
			if err := env.Set(m.field, state.Int(t.last[m.field])); err != nil {
				return err
			}
			continue
		}
		t.last[m.field] = n
	}
	return nil
}

// RWASpeedGain is the fraction of the speed error a wheel closes per cycle.
const RWASpeedGain = 0.5

// RWATask models reaction wheel speed tracking. With the motor bus powered
// and the wheels in speed control the measured speeds converge on the
// command; otherwise they spin down.
type RWATask struct{}

// Name implements Task.
func (t *RWATask) Name() string { return "rwa" }

// Execute implements Task.
func (t *RWATask) Execute(env *Env) error {
	powered, err := env.getBool("dcdc.ADCSMotor_cmd")
	if err != nil {
		return err
	}
	mode, err := env.getInt("adcs_cmd.rwa_mode")
	if err != nil {
		return err
	}
	cmd, err := env.getVector("adcs_cmd.rwa_speed_cmd")
	if err != nil {
		return err
	}
	rd, err := env.getVector("adcs_monitor.rwa_speed_rd")
	if err != nil {
		return err
	}

	target := make(state.Vector, len(rd))
	if powered && mode == enums.Default().MustGetByName(enums.RWAModes, "RWA_SPEED_CTRL") {
		copy(target, cmd)
	}
	for i := range rd {
		rd[i] += RWASpeedGain * (target[i] - rd[i])
	}
	return env.Set("adcs_monitor.rwa_speed_rd", rd)
}

// HAVTTask services the hardware availability table: a set reset flag
// marks its device available again and clears itself.
type HAVTTask struct{}

// Name implements Task.
func (t *HAVTTask) Name() string { return "havt" }

// Execute implements Task.
func (t *HAVTTask) Execute(env *Env) error {
	for i := 0; i < HAVTLength; i++ {
		reset := fmt.Sprintf("adcs_cmd.havt_reset%d", i)
		on, err := env.getBool(reset)
		if err != nil {
			return err
		}
		if !on {
			continue
		}
		if err := env.Set(fmt.Sprintf("adcs_monitor.havt_device%d", i), state.Bool(true)); err != nil {
			return err
		}
		if err := env.Set(reset, state.Bool(false)); err != nil {
			return err
		}
	}
	return nil
}

// ISS two-line element set used as the default simulated orbit.
const (
	ISSLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	ISSLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

const kmToM = 1000.0

// PiksiOption configures a PiksiTask.
type PiksiOption func(*PiksiTask)

// WithDropout makes the receiver lose its fix on cycles where drop returns
// true.
func WithDropout(drop func(cycle int64) bool) PiksiOption {
	return func(t *PiksiTask) { t.dropout = drop }
}

// PiksiTask publishes GPS receiver output: an SGP4-propagated ECI position
// and velocity in metres, and the receiver mode.
type PiksiTask struct {
	sat     satellite.Satellite
	dropout func(cycle int64) bool

	fixed int64
	noFix int64
}

// NewPiksiTask creates a receiver following the orbit in the given TLE.
func NewPiksiTask(line1, line2 string, opts ...PiksiOption) (t *PiksiTask, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse TLE: %v", r)
		}
	}()

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("parse TLE: %s", sat.ErrorStr)
	}

	reg := enums.Default()
	t = &PiksiTask{
		sat:   sat,
		fixed: reg.MustGetByName(enums.PiksiModes, "fixed_rtk"),
		noFix: reg.MustGetByName(enums.PiksiModes, "no_fix"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name implements Task.
func (t *PiksiTask) Name() string { return "piksi" }

// Execute implements Task.
func (t *PiksiTask) Execute(env *Env) error {
	if t.dropout != nil && t.dropout(env.Cycle) {
		if err := env.Set("piksi.state", state.Int(t.noFix)); err != nil {
			return err
		}
		if err := env.Set("piksi.pos", state.Vec(0, 0, 0)); err != nil {
			return err
		}
		return env.Set("piksi.vel", state.Vec(0, 0, 0))
	}

	pos, vel, err := t.propagate(env.Time)
	if err != nil {
		return err
	}
	if err := env.Set("piksi.state", state.Int(t.fixed)); err != nil {
		return err
	}
	if err := env.Set("piksi.pos", pos); err != nil {
		return err
	}
	return env.Set("piksi.vel", vel)
}

// propagate runs SGP4 at whole-second resolution and extrapolates the
// sub-second remainder along the velocity.
func (t *PiksiTask) propagate(at time.Time) (state.Vector, state.Vector, error) {
	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()
	frac := float64(at.Nanosecond()) / float64(time.Second)

	p, v := satellite.Propagate(t.sat, year, int(month), day, hour, min, sec)
	pos := state.Vec(
		(p.X+v.X*frac)*kmToM,
		(p.Y+v.Y*frac)*kmToM,
		(p.Z+v.Z*frac)*kmToM,
	)
	vel := state.Vec(v.X*kmToM, v.Y*kmToM, v.Z*kmToM)

	for _, x := range pos {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, nil, fmt.Errorf("propagation diverged at %s", at.Format(time.RFC3339))
		}
	}
	return pos, vel, nil
}
