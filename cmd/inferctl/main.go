// Command inferctl is a small client for a running inferd.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inferctl:", err)
		os.Exit(1)
	}
}
