package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"bool", true, Bool(true)},
		{"int", 11, Int(11)},
		{"int64", int64(-3), Int(-3)},
		{"float", 0.5, Float(0.5)},
		{"yaml list", []any{10, 10, 10}, Vec(10, 10, 10)},
		{"mixed list", []any{1, 2.5}, Vec(1, 2.5)},
		{"int slice", []int{1, 2, 3}, Vec(1, 2, 3)},
		{"passthrough", Int(7), Int(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestFromAny_Rejects(t *testing.T) {
	_, err := FromAny(nil)
	assert.Error(t, err)

	_, err = FromAny("manual")
	assert.Error(t, err)

	_, err = FromAny([]any{1, "x"})
	assert.ErrorContains(t, err, "vector[1]")
}

func TestCoerce(t *testing.T) {
	v, ok := Coerce(Int(3), KindFloat)
	require.True(t, ok)
	assert.Equal(t, Float(3), v)

	v, ok = Coerce(Float(4), KindInt)
	require.True(t, ok)
	assert.Equal(t, Int(4), v)

	_, ok = Coerce(Float(4.5), KindInt)
	assert.False(t, ok)

	_, ok = Coerce(Bool(true), KindInt)
	assert.False(t, ok)

	_, ok = Coerce(Vec(1, 2), KindFloat)
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Vec(1, 2, 3), Vec(1, 2, 3)))
	assert.False(t, Equal(Vec(1, 2, 3), Vec(1, 2)))
	assert.False(t, Equal(Int(1), Float(1)))
	assert.False(t, Equal(Int(1), nil))
	assert.True(t, Equal(nil, nil))
}

func TestString(t *testing.T) {
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "11", Int(11).String())
	assert.Equal(t, "0.25", Float(0.25).String())
	assert.Equal(t, "[10, 10, 10]", Vec(10, 10, 10).String())
	assert.Equal(t, "[]", Vector{}.String())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"42", Int(42)},
		{"-1", Int(-1)},
		{"42.0", Float(42)},
		{"1e8", Float(1e8)},
		{"[10, 10, 10]", Vec(10, 10, 10)},
		{"[]", Vector{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %v, got %v", tt.want, got)
		})
	}

	for _, bad := range []string{"", "null", `"manual"`, `{"a":1}`, "[1, true]"} {
		_, err := Decode([]byte(bad))
		assert.Error(t, err, "input %q", bad)
	}
}

func TestEncode_KeepsFloatKind(t *testing.T) {
	data, err := Encode(Float(10))
	require.NoError(t, err)
	assert.Equal(t, "10.0", string(data))

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindFloat, back.Kind())

	data, err = Encode(Int(10))
	require.NoError(t, err)
	assert.Equal(t, "10", string(data))

	data, err = Encode(Vec(1, 2.5))
	require.NoError(t, err)
	assert.Equal(t, "[1,2.5]", string(data))
}
