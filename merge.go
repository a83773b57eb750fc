// SPDX-License-Identifier: Apache-2.0

// Package suffixmerge merges JSON-like documents using override rules encoded as key suffixes.
//
// Documents are deep-merged left-to-right, with later documents taking precedence. A key in a
// later document may carry a suffix that changes how it is applied:
//
//   - "key!" replaces the existing value wholesale instead of merging into it
//   - "key--" removes the existing value; the value given is ignored
//   - "key-history" appends the value to the existing one, building an array
//
// Arrays are never merged element-wise: a later array replaces an earlier one.
// Type conflicts are not errors; the later value wins.
package suffixmerge

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple error checking with [errors.Is].
// For detailed error information, use [errors.As] with the typed errors below.
var (
	// ErrInvalidInputKind indicates a document that is not an object.
	ErrInvalidInputKind = errors.New("invalid input kind")
	// ErrNoDocuments indicates a merge was requested with no documents.
	ErrNoDocuments = errors.New("no documents to merge")
	// ErrUnsupportedType indicates a Go value that has no JSON equivalent.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrMarshal indicates a marshaling or unmarshaling operation failed.
	ErrMarshal = errors.New("marshal error")
)

// InvalidInputKindError is returned when a document passed to [Merge] is not an object.
type InvalidInputKindError struct {
	// DocIndex is the position of the offending document.
	DocIndex int
	// Kind is the kind the document actually has.
	Kind Kind
}

func (e *InvalidInputKindError) Error() string {
	return fmt.Sprintf("document at position %d is %s, expected object", e.DocIndex, e.Kind)
}

func (e *InvalidInputKindError) Is(target error) bool {
	return target == ErrInvalidInputKind
}

// MarshalError is returned when unmarshaling or marshaling a document fails.
type MarshalError struct {
	// Err is the underlying error returned by a marshaling function.
	Err error
	// DocIndex tells which document the error occurred in, or -1 for the merged result.
	DocIndex int
}

func (e *MarshalError) Error() string {
	if e.DocIndex < 0 {
		return fmt.Sprintf("cannot marshal merged document: %v", e.Err)
	}
	return fmt.Sprintf("cannot marshal document at position %d: %v", e.DocIndex, e.Err)
}

func (e *MarshalError) Unwrap() error {
	return e.Err
}

func (e *MarshalError) Is(target error) bool {
	return target == ErrMarshal
}

// Merge merges documents left-to-right, with later documents taking precedence.
//
// Every document must be an [*Object]; otherwise an [*InvalidInputKindError] naming
// the first offending position is returned and nothing is merged. A single document
// is returned as a copy. The result never shares mutable state with the inputs.
//
// Example:
//
//	base := NewObject(Member{"level", String("info")}, Member{"tags", Array{String("a")}})
//	overlay := NewObject(Member{"tags-history", String("b")})
//	result, _ := Merge(base, overlay)
//	// Result: {"level": "info", "tags": ["a", "b"]}
func Merge(docs ...Value) (Value, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	for i, doc := range docs {
		if kind := KindOf(doc); kind != KindObject {
			return nil, &InvalidInputKindError{DocIndex: i, Kind: kind}
		}
	}

	result := Clone(docs[0])
	for _, doc := range docs[1:] {
		result = mergeOwned(result, doc)
	}
	return result, nil
}

// MergePair merges update into base and returns the result.
//
// When both are objects, update's keys are applied to a copy of base according to
// their suffixes. When both are arrays, or the kinds differ, or either is a scalar,
// the result is update. MergePair never fails and never modifies its arguments.
//
// An object taken from update without an existing counterpart, such as the value
// of a "key!" entry, has its own key suffixes applied against an empty object, so
// a "child--" inside it is dropped rather than copied into the result.
func MergePair(base, update Value) Value {
	return mergeOwned(Clone(base), update)
}

// mergeOwned merges update into base, which the caller owns and which may be
// modified in place. Nothing reachable from update is retained without a copy.
func mergeOwned(base, update Value) Value {
	switch b := base.(type) {
	case *Object:
		if u, ok := update.(*Object); ok {
			return mergeObjects(b, u)
		}
	case Array:
		// Arrays carry no keys, so a later array replaces an earlier one.
	case nil, Null, Bool, Number, String:
	}
	return adopt(update)
}

// adopt returns an owned copy of a value taken from an update document.
// Objects are resolved against an empty object; arrays are copied as they are.
func adopt(v Value) Value {
	if obj, ok := v.(*Object); ok {
		return mergeObjects(NewObject(), obj)
	}
	return Clone(v)
}

func mergeObjects(result, update *Object) *Object {
	for rawKey, value := range update.All() {
		key, mod := ResolveKey(rawKey)
		switch mod {
		case ModifierOmit:
			result.Delete(key)
		case ModifierReplace:
			result.Set(key, adopt(value))
		case ModifierAppendHistory:
			result.Set(key, appendHistory(result, key, value))
		case ModifierNone:
			if existing, ok := result.Get(key); ok {
				result.Set(key, mergeOwned(existing, value))
			} else {
				result.Set(key, adopt(value))
			}
		}
	}
	return result
}

// appendHistory returns the value stored under key once value has been recorded after it.
func appendHistory(result *Object, key string, value Value) Array {
	existing, ok := result.Get(key)
	if !ok {
		return Array{adopt(value)}
	}
	if history, ok := existing.(Array); ok {
		return append(history, adopt(value))
	}
	return Array{existing, adopt(value)}
}
