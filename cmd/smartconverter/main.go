// Package main is the smartconverter command line tool. It runs the same
// PDF and image tools as the API on local files, with the daily limit kept
// in a SQLite file under the user's data directory.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
