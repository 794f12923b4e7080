// Package main provides the entry point for the guidectl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/guidelinehq/guidectl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
