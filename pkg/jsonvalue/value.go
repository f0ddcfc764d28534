// Package jsonvalue is a tagged union over JSON values. The zero Value is Undefined and stands in
// for "absent": a missing object key, a document that has not been loaded yet, or a key that a
// merge decided to delete. Values are treated as immutable; the With* helpers return copies.
package jsonvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	items  []Value
	fields map[string]Value
}

var Undefined = Value{}

func Null() Value {
	return Value{kind: KindNull}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func Number(n float64) Value {
	return Value{kind: KindNumber, n: n}
}

func String(s string) Value {
	return Value{kind: KindString, s: s}
}

func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, items: items}
}

func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, fields: fields}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsUndefined() bool {
	return v.kind == KindUndefined
}

// IsZero lets `omitzero` struct tags drop undefined values when encoding.
func (v Value) IsZero() bool {
	return v.kind == KindUndefined
}

func (v Value) AsBool() bool {
	return v.b
}

func (v Value) AsNumber() float64 {
	return v.n
}

func (v Value) AsString() string {
	return v.s
}

// Items returns the array elements. The slice must not be modified.
func (v Value) Items() []Value {
	return v.items
}

// Fields returns the object members. The map must not be modified.
func (v Value) Fields() map[string]Value {
	return v.fields
}

func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	case KindString:
		return len(v.s)
	default:
		return 0
	}
}

// Get returns the member named key, or Undefined when v is not an object or has no such key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Undefined, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Index returns the i-th array element or Undefined when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Undefined
	}
	return v.items[i]
}

// Keys returns the object member names in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of the object with key set to member. A non-object receiver is treated as
// an empty object. Setting Undefined removes the key.
func (v Value) With(key string, member Value) Value {
	fields := make(map[string]Value, len(v.fields)+1)
	if v.kind == KindObject {
		for k, f := range v.fields {
			fields[k] = f
		}
	}
	if member.IsUndefined() {
		delete(fields, key)
	} else {
		fields[key] = member
	}
	return Object(fields)
}

func (v Value) Without(key string) Value {
	return v.With(key, Undefined)
}

// Append returns a copy of the array with items added at the end.
func (v Value) Append(items ...Value) Value {
	out := make([]Value, 0, len(v.items)+len(items))
	if v.kind == KindArray {
		out = append(out, v.items...)
	}
	return Array(append(out, items...)...)
}

// Equal reports deep structural equality. Numbers compare by value, objects ignore member order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n || (math.IsNaN(a.n) && math.IsNaN(b.n))
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for k, af := range a.fields {
			bf, ok := b.fields[k]
			if !ok || !Equal(af, bf) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v into the shapes produced by encoding/json: nil, bool, float64, string,
// []interface{} and map[string]interface{}. Undefined converts to nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromInterface converts decoded JSON (or equivalent Go literals) into a Value.
func FromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Undefined, fmt.Errorf("failed to parse number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			iv, err := FromInterface(item)
			if err != nil {
				return Undefined, err
			}
			items[i] = iv
		}
		return Array(items...), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, f := range t {
			fv, err := FromInterface(f)
			if err != nil {
				return Undefined, err
			}
			fields[k] = fv
		}
		return Object(fields), nil
	default:
		return Undefined, fmt.Errorf("unsupported json type %T", raw)
	}
}

func Parse(data []byte) (Value, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Undefined, fmt.Errorf("failed to decode json: %w", err)
	}
	return FromInterface(raw)
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String returns the canonical JSON encoding (sorted keys) or "undefined".
func (v Value) String() string {
	if v.kind == KindUndefined {
		return "undefined"
	}
	buf, err := json.Marshal(v.Interface())
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(buf)
}
