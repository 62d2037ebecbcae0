package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"null", `null`},
		{"bool", `true`},
		{"number", `42.5`},
		{"integer", `7`},
		{"string", `"hello"`},
		{"array", `[1,"two",false,null]`},
		{"object", `{"a":1,"b":{"c":[true]}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tc.json), &v))

			out, err := json.Marshal(v)
			require.NoError(t, err)

			var back Value
			require.NoError(t, json.Unmarshal(out, &back))
			assert.True(t, v.Equal(back), "round trip changed value: %s -> %s", tc.json, out)
		})
	}
}

func TestValue_Kinds(t *testing.T) {
	assert.Equal(t, Null, NewNull().Kind())
	assert.Equal(t, Bool, NewBool(true).Kind())
	assert.Equal(t, Number, NewNumber(1).Kind())
	assert.Equal(t, String, NewString("x").Kind())
	assert.Equal(t, Array, NewArray(NewNumber(1)).Kind())
	assert.Equal(t, Object, NewObject(nil).Kind())

	// Zero value is null.
	var zero Value
	assert.Equal(t, Null, zero.Kind())
}

func TestValue_Equal(t *testing.T) {
	a := NewObject(map[string]Value{
		"n":    NewNumber(3),
		"list": NewArray(NewString("a"), NewNull()),
	})
	b := NewObject(map[string]Value{
		"n":    NewNumber(3),
		"list": NewArray(NewString("a"), NewNull()),
	})
	c := NewObject(map[string]Value{
		"n":    NewNumber(4),
		"list": NewArray(NewString("a"), NewNull()),
	})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, NewNumber(1).Equal(NewString("1")))
}

func TestValue_ObjectMarshalDeterministic(t *testing.T) {
	v := NewObject(map[string]Value{
		"b": NewNumber(2),
		"a": NewNumber(1),
		"c": NewNumber(3),
	})

	first, err := json.Marshal(v)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(first))
}
