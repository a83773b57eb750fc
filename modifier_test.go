// SPDX-License-Identifier: Apache-2.0

package suffixmerge_test

import (
	"testing"

	"github.com/sam-fredrickson/suffixmerge"
)

func TestResolveKey(t *testing.T) {
	tests := []struct {
		raw     string
		wantKey string
		wantMod suffixmerge.Modifier
	}{
		{"port", "port", suffixmerge.ModifierNone},
		{"port!", "port", suffixmerge.ModifierReplace},
		{"port--", "port", suffixmerge.ModifierOmit},
		{"port-history", "port", suffixmerge.ModifierAppendHistory},
		{"", "", suffixmerge.ModifierNone},
		{"!", "", suffixmerge.ModifierReplace},
		{"--", "", suffixmerge.ModifierOmit},
		{"-history", "", suffixmerge.ModifierAppendHistory},
		// Only the outermost suffix is stripped, "--" first.
		{"a!--", "a!", suffixmerge.ModifierOmit},
		{"a--!", "a--", suffixmerge.ModifierReplace},
		{"a-history!", "a-history", suffixmerge.ModifierReplace},
		{"a-history--", "a-history", suffixmerge.ModifierOmit},
		{"a!-history", "a!", suffixmerge.ModifierAppendHistory},
		// Suffixes are matched literally and only at the end.
		{"a-", "a-", suffixmerge.ModifierNone},
		{"history", "history", suffixmerge.ModifierNone},
		{"a-History", "a-History", suffixmerge.ModifierNone},
		{"!a", "!a", suffixmerge.ModifierNone},
		{"a--b", "a--b", suffixmerge.ModifierNone},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			key, mod := suffixmerge.ResolveKey(tt.raw)
			if key != tt.wantKey || mod != tt.wantMod {
				t.Fatalf("ResolveKey(%q) = (%q, %v), want (%q, %v)",
					tt.raw, key, mod, tt.wantKey, tt.wantMod)
			}
		})
	}
}

func TestModifierSuffixRoundTrip(t *testing.T) {
	mods := []suffixmerge.Modifier{
		suffixmerge.ModifierNone,
		suffixmerge.ModifierReplace,
		suffixmerge.ModifierOmit,
		suffixmerge.ModifierAppendHistory,
	}
	for _, mod := range mods {
		key, got := suffixmerge.ResolveKey("name" + mod.Suffix())
		if key != "name" || got != mod {
			t.Errorf("%v: ResolveKey(%q) = (%q, %v)", mod, "name"+mod.Suffix(), key, got)
		}
	}
}

func TestModifierString(t *testing.T) {
	if got := suffixmerge.ModifierAppendHistory.String(); got != "AppendHistory" {
		t.Errorf("got %q", got)
	}
	if got := suffixmerge.Modifier(42).String(); got != "Modifier(42)" {
		t.Errorf("got %q", got)
	}
}
