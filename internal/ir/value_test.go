package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalValue(t *testing.T) {
	v, err := UnmarshalValue([]byte(`{"a":1,"b":1.5,"c":[true,null,"x"]}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, Int(1), obj["a"])
	assert.Equal(t, Real(1.5), obj["b"])
	assert.Equal(t, Array{Bool(true), Null{}, String("x")}, obj["c"])
}

func TestObjectJSONRoundTrip(t *testing.T) {
	in := NewObject(O("mode", String("science")), O("count", Int(3)), O("rate", Real(-0.25)))

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"count":3,"mode":"science","rate":-0.25}`, string(data))

	var out Object
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"int", 7, Int(7)},
		{"int64", int64(-2), Int(-2)},
		{"float", 2.5, Real(2.5)},
		{"string", "x", String("x")},
		{"bool", true, Bool(true)},
		{"slice", []any{1, "a"}, Array{Int(1), String("a")}},
		{"map", map[string]any{"k": false}, Object{"k": Bool(false)}},
		{"json int", json.Number("12"), Int(12)},
		{"json real", json.Number("1e3"), Real(1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FromAny(struct{}{})
	assert.Error(t, err)
}

func TestToAny(t *testing.T) {
	v := Object{"a": Array{Int(1), Real(0.5)}, "b": Null{}}
	assert.Equal(t, map[string]any{"a": []any{int64(1), 0.5}, "b": nil}, ToAny(v))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(2), Real(2)))
	assert.True(t, Equal(String("a"), String("a")))
	assert.True(t, Equal(Null{}, nil))
	assert.True(t, Equal(Object{"a": Array{Int(1)}}, Object{"a": Array{Real(1)}}))
	assert.False(t, Equal(String("1"), Int(1)))
	assert.False(t, Equal(Array{Int(1)}, Array{Int(1), Int(2)}))
	assert.False(t, Equal(Bool(true), Bool(false)))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Int(1), Normalize(Real(1)))
	assert.Equal(t, Int(-3), Normalize(Real(-3)))
	assert.Equal(t, Real(1.5), Normalize(Real(1.5)))
	assert.Equal(t, Real(1e19), Normalize(Real(1e19)))
	assert.Equal(t, Int(7), Normalize(Int(7)))
	assert.Equal(t, String("1"), Normalize(String("1")))
	assert.Nil(t, Normalize(nil))
	assert.True(t, Normalize(Real(4)) == Normalize(Int(4)))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "science", Format(String("science")))
	assert.Equal(t, "42", Format(Int(42)))
	assert.Equal(t, "0.5", Format(Real(0.5)))
	assert.Equal(t, `["a"]`, Format(Array{String("a")}))
}

func TestParamRef(t *testing.T) {
	name, ok := ParamRef(String("$duration"))
	assert.True(t, ok)
	assert.Equal(t, "duration", name)

	_, ok = ParamRef(String("$"))
	assert.False(t, ok)
	_, ok = ParamRef(Int(1))
	assert.False(t, ok)
	_, ok = ParamRefString("10s")
	assert.False(t, ok)
}
