// Command hvac extracts HVAC equipment from a drawing set and writes the
// dataset, a test-data workbook and optionally a populated customer template.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
