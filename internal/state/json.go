package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MarshalJSON keeps a Float distinguishable from an Int on the wire by
// always emitting a fraction or exponent.
func (f Float) MarshalJSON() ([]byte, error) {
	x := float64(f)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("float %v has no JSON encoding", x)
	}
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// Decode parses a JSON scalar or array into a Value.
//
// Numbers written with a fraction or exponent decode as Float, other
// numbers as Int, arrays as Vector.
func Decode(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case 'n':
		return nil, fmt.Errorf("null is not a field value")
	case '[':
		var xs []float64
		if err := json.Unmarshal(data, &xs); err != nil {
			return nil, fmt.Errorf("decode vector: %w", err)
		}
		if xs == nil {
			xs = []float64{}
		}
		return Vector(xs), nil
	case '"', '{':
		return nil, fmt.Errorf("unsupported JSON value %s", string(data))
	default:
		s := string(data)
		if strings.ContainsAny(s, ".eE") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("decode float: %w", err)
			}
			return Float(f), nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode int: %w", err)
		}
		return Int(n), nil
	}
}

// Encode renders a Value as JSON.
func Encode(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot encode nil value")
	}
	return json.Marshal(v)
}
