// SPDX-License-Identifier: Apache-2.0

package suffixmerge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/goccy/go-yaml"
)

// Kind identifies which of the six JSON value kinds a [Value] holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
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
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a JSON-like document node.
//
// The set of implementations is closed: [Null], [Bool], [Number], [String],
// [Array] and [*Object]. A nil Value is treated as [Null].
type Value interface {
	Kind() Kind
	isValue()
}

// KindOf returns the kind of v, reporting [KindNull] for a nil Value.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// Null is the JSON null value.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number is a JSON number kept in its literal decimal form, so that integers
// too large for a float64 pass through a merge unchanged.
type Number string

// String is a JSON string.
type String string

// Array is an ordered sequence of values.
type Array []Value

func (Null) Kind() Kind    { return KindNull }
func (Bool) Kind() Kind    { return KindBool }
func (Number) Kind() Kind  { return KindNumber }
func (String) Kind() Kind  { return KindString }
func (Array) Kind() Kind   { return KindArray }
func (*Object) Kind() Kind { return KindObject }

func (Null) isValue()    {}
func (Bool) isValue()    {}
func (Number) isValue()  {}
func (String) isValue()  {}
func (Array) isValue()   {}
func (*Object) isValue() {}

// Int returns the [Number] for i.
func Int(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// Uint returns the [Number] for u.
func Uint(u uint64) Number {
	return Number(strconv.FormatUint(u, 10))
}

// Float returns the [Number] for f, which must be finite.
// Integral values keep a trailing ".0" so they decode as floats again.
func Float(f float64) Number {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return Number(s)
}

// String returns the literal text of n.
func (n Number) String() string {
	return string(n)
}

// Int64 returns n as an int64.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// Float64 returns n as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// native returns the narrowest Go numeric type that holds n exactly.
func (n Number) native() any {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i
	}
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return u
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return f
	}
	return string(n)
}

func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (Null) MarshalYAML() (any, error) {
	return nil, nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	if !json.Valid([]byte(n)) {
		return nil, fmt.Errorf("invalid number literal %q", string(n))
	}
	return []byte(n), nil
}

func (n Number) MarshalYAML() (any, error) {
	return n.native(), nil
}

func (a Array) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(a))
}

func (a Array) MarshalYAML() (any, error) {
	if a == nil {
		return []any{}, nil
	}
	return []Value(a), nil
}

// Object is a string-keyed mapping that remembers insertion order.
//
// Setting a key that is already present replaces its value in place;
// setting a new key appends it. The zero value is an empty object.
type Object struct {
	m *linkedhashmap.Map
}

// Member is a single key/value pair of an [Object].
type Member struct {
	Key   string
	Value Value
}

// NewObject returns an object holding members in the given order.
// A repeated key keeps its first position and its last value.
func NewObject(members ...Member) *Object {
	o := &Object{m: linkedhashmap.New()}
	for _, mem := range members {
		o.Set(mem.Key, mem.Value)
	}
	return o
}

func (o *Object) entries() *linkedhashmap.Map {
	if o.m == nil {
		o.m = linkedhashmap.New()
	}
	return o.m
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Size()
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return nil, false
	}
	v, ok := o.m.Get(key)
	if !ok {
		return nil, false
	}
	return v.(Value), true
}

// Set stores v under key. A nil v is stored as [Null].
func (o *Object) Set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	o.entries().Put(key, v)
}

// Delete removes key. Deleting an absent key does nothing.
func (o *Object) Delete(key string) {
	if o.m == nil {
		return
	}
	o.m.Remove(key)
}

// Keys returns the keys in order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	for k := range o.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates over the members in order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil || o.m == nil {
			return
		}
		it := o.m.Iterator()
		for it.Next() {
			if !yield(it.Key().(string), it.Value().(Value)) {
				return
			}
		}
	}
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for k, v := range o.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Object) MarshalYAML() (any, error) {
	ms := make(yaml.MapSlice, 0, o.Len())
	for k, v := range o.All() {
		ms = append(ms, yaml.MapItem{Key: k, Value: v})
	}
	return ms, nil
}

// Clone returns a deep copy of v that shares no mutable state with it.
func Clone(v Value) Value {
	switch v := v.(type) {
	case nil:
		return Null{}
	case *Object:
		out := NewObject()
		for k, child := range v.All() {
			out.Set(k, Clone(child))
		}
		return out
	case Array:
		if v == nil {
			return Array(nil)
		}
		out := make(Array, len(v))
		for i, child := range v {
			out[i] = Clone(child)
		}
		return out
	case Null, Bool, Number, String:
		return v
	default:
		panic(fmt.Sprintf("suffixmerge: unknown value type %T", v))
	}
}

// Equal reports whether a and b are the same JSON value.
// Object member order is not significant; numbers compare by value.
func Equal(a, b Value) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}
	switch a := a.(type) {
	case nil, Null:
		return true
	case Bool:
		return a == b.(Bool)
	case Number:
		return numbersEqual(a, b.(Number))
	case String:
		return a == b.(String)
	case Array:
		bb := b.(Array)
		if len(a) != len(bb) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bb[i]) {
				return false
			}
		}
		return true
	case *Object:
		bb := b.(*Object)
		if a.Len() != bb.Len() {
			return false
		}
		for k, av := range a.All() {
			bv, ok := bb.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numbersEqual(a, b Number) bool {
	if a == b {
		return true
	}
	ai, aerr := a.Int64()
	bi, berr := b.Int64()
	if aerr == nil && berr == nil {
		return ai == bi
	}
	af, aerr := a.Float64()
	bf, berr := b.Float64()
	return aerr == nil && berr == nil && af == bf
}
