// SPDX-License-Identifier: Apache-2.0

package suffixmerge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrKeyCollision indicates an object holds several raw keys for one canonical key.
var ErrKeyCollision = errors.New("key collision")

// KeyCollision describes raw keys in one object that resolve to the same canonical key,
// such as "port" and "port!". Their effect depends on their order in the document.
type KeyCollision struct {
	// Path is the location of the object holding the keys.
	Path []string
	// Key is the shared canonical key.
	Key string
	// RawKeys are the colliding keys in document order.
	RawKeys []string
}

func (c KeyCollision) String() string {
	path := strings.Join(c.Path, ".")
	if path == "" {
		path = "(root)"
	}
	return fmt.Sprintf("keys %q at path %s all resolve to %q", c.RawKeys, path, c.Key)
}

// KeyCollisionError is returned when key collisions are treated as errors.
type KeyCollisionError struct {
	// DocIndex tells which document the collisions occurred in.
	DocIndex int
	// Collisions lists every collision found.
	Collisions []KeyCollision
}

func (e *KeyCollisionError) Error() string {
	msgs := make([]string, len(e.Collisions))
	for i, c := range e.Collisions {
		msgs[i] = c.String()
	}
	return fmt.Sprintf("document at position %d: %s", e.DocIndex, strings.Join(msgs, "; "))
}

func (e *KeyCollisionError) Is(target error) bool {
	return target == ErrKeyCollision
}

// FindKeyCollisions reports every object in v that contains more than one raw key
// resolving to the same canonical key. Collisions are listed depth-first in
// document order.
func FindKeyCollisions(v Value) []KeyCollision {
	var found []KeyCollision
	findCollisions(v, nil, &found)
	return found
}

func findCollisions(v Value, path []string, found *[]KeyCollision) {
	switch v := v.(type) {
	case *Object:
		var order []string
		byKey := make(map[string][]string, v.Len())
		for raw := range v.All() {
			key, _ := ResolveKey(raw)
			if _, seen := byKey[key]; !seen {
				order = append(order, key)
			}
			byKey[key] = append(byKey[key], raw)
		}
		for _, key := range order {
			if raws := byKey[key]; len(raws) > 1 {
				*found = append(*found, KeyCollision{
					Path:    append([]string(nil), path...),
					Key:     key,
					RawKeys: raws,
				})
			}
		}
		for raw, child := range v.All() {
			findCollisions(child, append(path, raw), found)
		}
	case Array:
		for i, child := range v {
			findCollisions(child, append(path, strconv.Itoa(i)), found)
		}
	case nil, Null, Bool, Number, String:
	}
}
