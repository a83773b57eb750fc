// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
)

func main() {
	// Read a ResourceList from stdin and write the merged list to stdout.
	if err := Run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "suffixmerge-krm:", err)
		os.Exit(1)
	}
}
