package sim

import (
	"fmt"
	"sort"

	"github.com/pan-ssds/ptest/internal/state"
)

// CycleField is the reserved path holding the controller's cycle counter.
const CycleField = "pan.cycle_no"

// HAVTLength is the number of devices in the hardware availability table.
const HAVTLength = 16

// Field declares one state field in a controller's registry.
type Field struct {
	Name     string
	Kind     state.Kind
	Len      int  // vector length, ignored for scalars
	Writable bool // ground/test may write it; otherwise telemetry only
	Default  state.Value
}

type slot struct {
	Field
	value state.Value
}

// Registry is the set of fields a controller exposes, keyed by name.
// A name can be registered once.
type Registry struct {
	slots map[string]*slot
}

// NewRegistry builds a registry from field declarations.
func NewRegistry(fields []Field) (*Registry, error) {
	r := &Registry{slots: make(map[string]*slot, len(fields))}
	for _, f := range fields {
		if err := r.Add(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a field. It fails if the name is taken or the default does
// not fit the declared kind.
func (r *Registry) Add(f Field) error {
	if f.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if _, exists := r.slots[f.Name]; exists {
		return fmt.Errorf("field %q already registered", f.Name)
	}
	if f.Kind == state.KindVector && f.Len <= 0 {
		return fmt.Errorf("field %q: vector length must be positive", f.Name)
	}

	initial := f.Default
	if initial == nil {
		initial = state.Zero(f.Kind, f.Len)
	}
	v, err := conform(f, initial)
	if err != nil {
		return fmt.Errorf("field %q default: %w", f.Name, err)
	}
	r.slots[f.Name] = &slot{Field: f, value: v}
	return nil
}

// Lookup returns the declaration of a field.
func (r *Registry) Lookup(name string) (Field, bool) {
	s, ok := r.slots[name]
	if !ok {
		return Field{}, false
	}
	return s.Field, true
}

// Names returns all registered field names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.slots))
	for name := range r.slots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) get(name string) (state.Value, error) {
	s, ok := r.slots[name]
	if !ok {
		return nil, fieldNotFound(name)
	}
	return clone(s.value), nil
}

func (r *Registry) set(name string, v state.Value) error {
	s, ok := r.slots[name]
	if !ok {
		return fieldNotFound(name)
	}
	c, err := conform(s.Field, v)
	if err != nil {
		return err
	}
	s.value = c
	return nil
}

// conform checks v against the field's kind and length, applying lossless
// numeric coercion.
func conform(f Field, v state.Value) (state.Value, error) {
	if v == nil {
		return nil, &FieldError{Code: ErrCodeFieldType, Field: f.Name, Message: "nil value"}
	}
	c, ok := state.Coerce(v, f.Kind)
	if !ok {
		return nil, &FieldError{
			Code:    ErrCodeFieldType,
			Field:   f.Name,
			Message: fmt.Sprintf("want %s, got %s", f.Kind, v.Kind()),
		}
	}
	if vec, isVec := c.(state.Vector); isVec && len(vec) != f.Len {
		return nil, &FieldError{
			Code:    ErrCodeFieldType,
			Field:   f.Name,
			Message: fmt.Sprintf("want vector of length %d, got %d", f.Len, len(vec)),
		}
	}
	return clone(c), nil
}

func clone(v state.Value) state.Value {
	if vec, ok := v.(state.Vector); ok {
		out := make(state.Vector, len(vec))
		copy(out, vec)
		return out
	}
	return v
}

// PANFields returns the field schema of the simulated flight computer.
func PANFields() []Field {
	fields := []Field{
		{Name: CycleField, Kind: state.KindInt},
		{Name: "cycle.auto", Kind: state.KindBool, Writable: true},
		{Name: "cycle.start", Kind: state.KindBool, Writable: true},

		{Name: "pan.state", Kind: state.KindInt, Writable: true},
		{Name: "adcs.state", Kind: state.KindInt, Writable: true},

		{Name: "dcdc.ADCSMotor_cmd", Kind: state.KindBool, Writable: true},
		{Name: "adcs_cmd.rwa_mode", Kind: state.KindInt, Writable: true},
		{Name: "adcs_cmd.rwa_speed_cmd", Kind: state.KindVector, Len: 3, Writable: true},
		{Name: "adcs_cmd.rwa_torque_cmd", Kind: state.KindVector, Len: 3, Writable: true},
		{Name: "adcs_monitor.rwa_speed_rd", Kind: state.KindVector, Len: 3},

		{Name: "gomspace.vbatt", Kind: state.KindInt, Default: state.Int(8000)},

		{Name: "piksi.state", Kind: state.KindInt},
		{Name: "piksi.pos", Kind: state.KindVector, Len: 3},
		{Name: "piksi.vel", Kind: state.KindVector, Len: 3},
	}

	for i := 0; i < HAVTLength; i++ {
		fields = append(fields,
			Field{Name: fmt.Sprintf("adcs_cmd.havt_reset%d", i), Kind: state.KindBool, Writable: true},
			Field{Name: fmt.Sprintf("adcs_monitor.havt_device%d", i), Kind: state.KindBool, Default: state.Bool(true)},
		)
	}
	return fields
}
