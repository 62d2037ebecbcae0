// Package value provides a tagged structured-value type covering the
// JSON data model, used as the payload type for stored records.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a tagged union over the JSON data model. The zero value is null.
// Values are treated as immutable once constructed; callers must not mutate
// slices or maps obtained from accessors.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

func NewNull() Value             { return Value{kind: Null} }
func NewBool(b bool) Value       { return Value{kind: Bool, b: b} }
func NewNumber(n float64) Value  { return Value{kind: Number, n: n} }
func NewString(s string) Value   { return Value{kind: String, s: s} }
func NewArray(vs ...Value) Value { return Value{kind: Array, arr: vs} }

func NewObject(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: Object, obj: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool              { return v.b }
func (v Value) Number() float64         { return v.n }
func (v Value) Str() string             { return v.s }
func (v Value) Array() []Value          { return v.arr }
func (v Value) Object() map[string]Value { return v.obj }

// Equal reports deep structural equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == other.b
	case Number:
		return v.n == other.n
	case String:
		return v.s == other.s
	case Array:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, lv := range v.obj {
			rv, ok := other.obj[k]
			if !ok || !lv.Equal(rv) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the value in its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(v.b)
	case Number:
		return json.Marshal(v.n)
	case String:
		return json.Marshal(v.s)
	case Array:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case Object:
		// Deterministic key order keeps stored bytes stable.
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			out = append(out, kb...)
			out = append(out, ':')
			out = append(out, vb...)
		}
		return append(out, '}'), nil
	}
	return nil, fmt.Errorf("value: cannot marshal %s", v.kind)
}

// UnmarshalJSON parses arbitrary JSON into the tagged form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromInterface converts a decoded JSON value (as produced by
// encoding/json into any) to a Value.
func FromInterface(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(t), nil
	case float64:
		return NewNumber(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("value: bad number %q: %w", t.String(), err)
		}
		return NewNumber(f), nil
	case string:
		return NewString(t), nil
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = ev
		}
		return NewArray(arr...), nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			obj[k] = ev
		}
		return NewObject(obj), nil
	}
	return Value{}, fmt.Errorf("value: unsupported type %T", raw)
}
