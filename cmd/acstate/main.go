// acstate decodes and encodes Toshiba raw states offline.
//
// It runs the same codec as the bridge and is meant for protocol debugging:
// paste a raw state from a vendor event to see what it means, or build the
// raw state (or Core command) a capability change would produce.
package main

import (
	"fmt"
	"os"
)

// Version information - set at build time via ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
