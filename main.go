// Package main is the entry point of lxicapture, a LAN screen capture tool for
// Rigol DS2202E oscilloscopes.
package main

import (
	"fmt"
	"os"

	"github.com/arloliu/go-lxi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
