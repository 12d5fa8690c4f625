// Command pcbroute is the CLI front end for the autorouting pipelines in
// package solver: it loads a SimpleRouteJson board, runs one of the named
// pipelines to completion, and writes the resulting traces back out as
// JSON.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
