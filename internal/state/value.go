package state

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInt
	KindFloat
	KindVector
)

// String returns the lower-case kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindVector:
		return "vector"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a sealed interface over the field value variants a flight
// controller exposes. Only Bool, Int, Float and Vector implement it.
//
// Enum-backed fields are carried as Int ordinals; the enums package maps
// them to names.
type Value interface {
	Kind() Kind
	String() string

	stateValue() // Sealed
}

// Bool is a boolean field value (flags, device enables).
type Bool bool

func (Bool) stateValue() {}
func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

// Int is an integer field value. Counters and enum ordinals use Int.
type Int int64

func (Int) stateValue() {}
func (Int) Kind() Kind { return KindInt }
func (i Int) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// Float is a scalar floating point field value.
type Float float64

func (Float) stateValue() {}
func (Float) Kind() Kind { return KindFloat }
func (f Float) String() string {
	return formatFloat(float64(f))
}

// Vector is a fixed-length numeric field value such as a position or a
// wheel speed command. The length is fixed by the controller's schema, not
// by this type.
type Vector []float64

func (Vector) stateValue() {}
func (Vector) Kind() Kind { return KindVector }
func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = formatFloat(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Vec builds a Vector from its components.
func Vec(xs ...float64) Vector {
	return Vector(xs)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Zero returns the zero value for a kind. length is only used for vectors.
func Zero(k Kind, length int) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindVector:
		return make(Vector, length)
	default:
		return nil
	}
}

// FromAny converts a loosely typed Go value (as produced by YAML or JSON
// decoding) into a Value.
//
// Integral numbers become Int, other numbers Float, and lists of numbers
// Vector. Null and nested maps are rejected.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a field value")
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", x)
		}
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case []float64:
		out := make(Vector, len(x))
		copy(out, x)
		return out, nil
	case []int:
		out := make(Vector, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	case []any:
		out := make(Vector, len(x))
		for i, elem := range x {
			f, err := numberFromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("vector[%d]: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported field value type %T", v)
	}
}

func numberFromAny(v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("vector elements must be numbers, got %T", v)
	}
}

// Coerce converts v to kind k where the conversion is lossless: Int to
// Float, integral Float to Int. Any other mismatch reports false.
func Coerce(v Value, k Kind) (Value, bool) {
	if v == nil {
		return nil, false
	}
	if v.Kind() == k {
		return v, true
	}
	switch x := v.(type) {
	case Int:
		if k == KindFloat {
			return Float(float64(x)), true
		}
	case Float:
		if k == KindInt && float64(x) == math.Trunc(float64(x)) && !math.IsInf(float64(x), 0) {
			return Int(int64(x)), true
		}
	}
	return nil, false
}

// Equal reports whether two values hold the same variant and contents.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Vector:
		y := b.(Vector)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// AsFloat returns the numeric value of an Int or Float.
func AsFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	default:
		return 0, false
	}
}

// AsInt returns the integer held by an Int, or by a Float with an
// integral value.
func AsInt(v Value) (int64, bool) {
	c, ok := Coerce(v, KindInt)
	if !ok {
		return 0, false
	}
	return int64(c.(Int)), true
}
