// SPDX-License-Identifier: Apache-2.0

package suffixmerge_test

import (
	"fmt"
	"log"

	"github.com/sam-fredrickson/suffixmerge"
	"github.com/sam-fredrickson/suffixmerge/codec"
)

// Example merging a base configuration with an environment overlay that uses
// key suffixes to replace, remove and append values.
func ExampleMerge() {
	base, err := codec.Decode(codec.YAML, []byte(`
database:
  host: db.internal
  pool: {min: 1, max: 10}
cache:
  ttl: 60
releases: [v1]
`))
	if err != nil {
		log.Fatal(err)
	}

	overlay, err := codec.Decode(codec.YAML, []byte(`
database:
  pool!: {max: 50}
cache--: ~
releases-history: v2
`))
	if err != nil {
		log.Fatal(err)
	}

	result, err := suffixmerge.Merge(base, overlay)
	if err != nil {
		log.Fatal(err)
	}

	out, err := codec.Encode(codec.JSON, result)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(string(out))

	// Output:
	// {
	//   "database": {
	//     "host": "db.internal",
	//     "pool": {
	//       "max": 50
	//     }
	//   },
	//   "releases": [
	//     "v1",
	//     "v2"
	//   ]
	// }
}

func ExampleResolveKey() {
	for _, raw := range []string{"port", "port!", "port--", "port-history"} {
		key, mod := suffixmerge.ResolveKey(raw)
		fmt.Printf("%-12s -> %s (%s)\n", raw, key, mod)
	}

	// Output:
	// port         -> port (None)
	// port!        -> port (Replace)
	// port--       -> port (Omit)
	// port-history -> port (AppendHistory)
}
