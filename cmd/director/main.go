// Command director runs the dynamic difficulty engine against a simulated world.
//
//	director run --config director.yaml
//	director console
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
