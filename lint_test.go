// SPDX-License-Identifier: Apache-2.0

package suffixmerge_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sam-fredrickson/suffixmerge"
)

func TestFindKeyCollisions(t *testing.T) {
	doc := parse(t, `{
		"port": 1,
		"port!": 2,
		"name": "x",
		"nested": {"a--": null, "a": 1, "a-history": 2, "b": 3},
		"list": [{"k": 1, "k!": 2}],
		"clean": {"x!": 1, "y--": 2}
	}`)

	got := suffixmerge.FindKeyCollisions(doc)
	want := []suffixmerge.KeyCollision{
		{Path: nil, Key: "port", RawKeys: []string{"port", "port!"}},
		{Path: []string{"nested"}, Key: "a", RawKeys: []string{"a--", "a", "a-history"}},
		{Path: []string{"list", "0"}, Key: "k", RawKeys: []string{"k", "k!"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFindKeyCollisionsNone(t *testing.T) {
	for _, doc := range []string{`{}`, `{"a": 1, "b!": {"c--": 1}}`, `[1, 2]`, `"s"`} {
		if got := suffixmerge.FindKeyCollisions(parse(t, doc)); len(got) != 0 {
			t.Errorf("%s: unexpected collisions %v", doc, got)
		}
	}
}

func TestKeyCollisionError(t *testing.T) {
	err := error(&suffixmerge.KeyCollisionError{
		DocIndex: 2,
		Collisions: []suffixmerge.KeyCollision{
			{Path: []string{"a", "b"}, Key: "k", RawKeys: []string{"k", "k!"}},
		},
	})
	if !errors.Is(err, suffixmerge.ErrKeyCollision) {
		t.Fatal("expected ErrKeyCollision")
	}
	want := `document at position 2: keys ["k" "k!"] at path a.b all resolve to "k"`
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}
