// SPDX-License-Identifier: Apache-2.0

package suffixmerge

import (
	"fmt"
	"strings"
)

// Modifier is the merge operation requested by an object key's suffix.
type Modifier int

const (
	// ModifierNone deep-merges the value into the existing entry.
	ModifierNone Modifier = iota
	// ModifierReplace ("key!") replaces the existing entry wholesale.
	ModifierReplace
	// ModifierOmit ("key--") removes the existing entry.
	ModifierOmit
	// ModifierAppendHistory ("key-history") appends the value to the existing entry.
	ModifierAppendHistory
)

// Key suffixes recognized by [ResolveKey].
const (
	SuffixReplace       = "!"
	SuffixOmit          = "--"
	SuffixAppendHistory = "-history"
)

func (m Modifier) String() string {
	switch m {
	case ModifierNone:
		return "None"
	case ModifierReplace:
		return "Replace"
	case ModifierOmit:
		return "Omit"
	case ModifierAppendHistory:
		return "AppendHistory"
	default:
		return fmt.Sprintf("Modifier(%d)", m)
	}
}

// Suffix returns the key suffix that selects m.
func (m Modifier) Suffix() string {
	switch m {
	case ModifierReplace:
		return SuffixReplace
	case ModifierOmit:
		return SuffixOmit
	case ModifierAppendHistory:
		return SuffixAppendHistory
	default:
		return ""
	}
}

// ResolveKey splits a raw object key into its canonical key and modifier.
//
// Suffixes are checked in the order "--", "!", "-history", and at most one
// is stripped: "a!--" resolves to ("a!", [ModifierOmit]).
func ResolveKey(raw string) (string, Modifier) {
	if key, ok := strings.CutSuffix(raw, SuffixOmit); ok {
		return key, ModifierOmit
	}
	if key, ok := strings.CutSuffix(raw, SuffixReplace); ok {
		return key, ModifierReplace
	}
	if key, ok := strings.CutSuffix(raw, SuffixAppendHistory); ok {
		return key, ModifierAppendHistory
	}
	return raw, ModifierNone
}
