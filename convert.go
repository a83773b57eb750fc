// SPDX-License-Identifier: Apache-2.0

package suffixmerge

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// UnsupportedTypeError is returned when a Go value has no JSON equivalent.
type UnsupportedTypeError struct {
	// Value is the offending Go value.
	Value any
	// Path is where in the document the value occurred.
	Path []string
	// DocIndex tells which document the error occurred in, or -1 outside a merge.
	DocIndex int
}

func (e *UnsupportedTypeError) Error() string {
	path := strings.Join(e.Path, ".")
	if path == "" {
		path = "(root)"
	}
	if e.DocIndex < 0 {
		return fmt.Sprintf("unsupported value %v (type %T) at path %s", e.Value, e.Value, path)
	}
	return fmt.Sprintf("unsupported value %v (type %T) at path %s in document %d",
		e.Value, e.Value, path, e.DocIndex)
}

// Is matches [ErrUnsupportedType]. An unsupported value that is itself a whole
// document in a merge also matches [ErrInvalidInputKind], since it is not an object.
func (e *UnsupportedTypeError) Is(target error) bool {
	switch target {
	case ErrUnsupportedType:
		return true
	case ErrInvalidInputKind:
		return e.DocIndex >= 0 && len(e.Path) == 0
	default:
		return false
	}
}

// FromAny converts the output of a generic unmarshaler into a [Value].
//
// Supported inputs are nil, booleans, strings, all integer and float types,
// [json.Number], [time.Time] (as an RFC 3339 string), map[string]any,
// map[any]any, []any, []map[string]any, goccy [yaml.MapSlice] and [Value] itself.
// Go maps carry no order, so their keys are sorted; [yaml.MapSlice] keeps its order.
func FromAny(v any) (Value, error) {
	var c converter
	return c.convert(v)
}

type converter struct {
	path []string
}

func (c *converter) fail(v any) error {
	return &UnsupportedTypeError{Value: v, Path: slices.Clone(c.path), DocIndex: -1}
}

func (c *converter) convert(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Null{}, nil
	case *Object:
		if v == nil {
			return Null{}, nil
		}
		return Clone(v), nil
	case Value:
		return Clone(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Uint(uint64(v)), nil
	case uint8:
		return Uint(uint64(v)), nil
	case uint16:
		return Uint(uint64(v)), nil
	case uint32:
		return Uint(uint64(v)), nil
	case uint64:
		return Uint(v), nil
	case float32:
		return c.float(float64(v), v)
	case float64:
		return c.float(v, v)
	case json.Number:
		if !json.Valid([]byte(v)) {
			return nil, c.fail(v)
		}
		return Number(v), nil
	case time.Time:
		return String(v.Format(time.RFC3339Nano)), nil
	case []any:
		out := make(Array, len(v))
		for i, item := range v {
			converted, err := c.child(strconv.Itoa(i), item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case []map[string]any:
		out := make(Array, len(v))
		for i, item := range v {
			converted, err := c.child(strconv.Itoa(i), item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case map[string]any:
		out := NewObject()
		for _, k := range sortedKeys(v) {
			converted, err := c.child(k, v[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, converted)
		}
		return out, nil
	case map[any]any:
		keyed := make(map[string]any, len(v))
		for k, item := range v {
			keyed[fmt.Sprint(k)] = item
		}
		return c.convert(keyed)
	case yaml.MapSlice:
		out := NewObject()
		for _, item := range v {
			k := fmt.Sprint(item.Key)
			converted, err := c.child(k, item.Value)
			if err != nil {
				return nil, err
			}
			out.Set(k, converted)
		}
		return out, nil
	default:
		return nil, c.fail(v)
	}
}

func (c *converter) child(key string, v any) (Value, error) {
	c.path = append(c.path, key)
	converted, err := c.convert(v)
	c.path = c.path[:len(c.path)-1]
	return converted, err
}

func (c *converter) float(f float64, orig any) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, c.fail(orig)
	}
	// json.Unmarshal decodes every number as a float64.
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f)), nil
	}
	return Float(f), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ToAny converts v into the generic form produced by standard unmarshalers:
// map[string]any, []any, string, bool, nil, and int64, uint64 or float64 for numbers.
func ToAny(v Value) any {
	switch v := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(v)
	case Number:
		return v.native()
	case String:
		return string(v)
	case Array:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ToAny(item)
		}
		return out
	case *Object:
		out := make(map[string]any, v.Len())
		for k, item := range v.All() {
			out[k] = ToAny(item)
		}
		return out
	default:
		panic(fmt.Sprintf("suffixmerge: unknown value type %T", v))
	}
}

// kindOfAny classifies a generic value without converting it.
func kindOfAny(v any) (Kind, bool) {
	switch v := v.(type) {
	case nil:
		return KindNull, true
	case Value:
		return KindOf(v), true
	case bool:
		return KindBool, true
	case string, time.Time:
		return KindString, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return KindNumber, true
	case []any, []map[string]any:
		return KindArray, true
	case map[string]any, map[any]any, yaml.MapSlice:
		return KindObject, true
	default:
		return 0, false
	}
}

// MergeAny merges documents in the generic form produced by standard unmarshalers.
// See [Merge] for the merge rules.
//
// A document that is not a map is reported as an [*InvalidInputKindError] carrying
// the kind it was observed to have. Values that cannot be converted at all are
// reported as an [*UnsupportedTypeError]; when such a value is a whole document
// (a map[string]string, say) the error also matches [ErrInvalidInputKind].
func MergeAny(docs ...any) (Value, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	values := make([]Value, len(docs))
	for i, doc := range docs {
		kind, ok := kindOfAny(doc)
		if !ok {
			return nil, &UnsupportedTypeError{Value: doc, DocIndex: i}
		}
		if kind != KindObject {
			return nil, &InvalidInputKindError{DocIndex: i, Kind: kind}
		}
		v, err := FromAny(doc)
		if err != nil {
			if ute, ok := err.(*UnsupportedTypeError); ok {
				ute.DocIndex = i
			}
			return nil, err
		}
		values[i] = v
	}
	return Merge(values...)
}

// MergeMarshal merges byte documents using provided unmarshal and marshal functions.
//
// Documents are unmarshaled into an any, merged left-to-right with [MergeAny], and the
// resulting [Value] is passed to marshal. [Value] implements json.Marshaler and goccy's
// yaml.InterfaceMarshaler, so key order is kept when marshaling with either; an
// unmarshal function that yields [yaml.MapSlice] keeps input key order as well.
//
// Example:
//
//	import "github.com/goccy/go-yaml"
//
//	base := []byte("log:\n  level: info\n")
//	overlay := []byte("log:\n  level!: debug\n")
//	result, _ := MergeMarshal(yaml.Unmarshal, yaml.Marshal, base, overlay)
func MergeMarshal(
	unmarshal func([]byte, any) error,
	marshal func(any) ([]byte, error),
	docs ...[]byte,
) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	parsedDocs := make([]any, len(docs))
	for i, doc := range docs {
		var current any
		if err := unmarshal(doc, &current); err != nil {
			return nil, &MarshalError{
				Err:      err,
				DocIndex: i,
			}
		}
		parsedDocs[i] = current
	}

	result, err := MergeAny(parsedDocs...)
	if err != nil {
		return nil, err
	}

	out, err := marshal(result)
	if err != nil {
		return nil, &MarshalError{Err: err, DocIndex: -1}
	}
	return out, nil
}
