// Package main is the entry point for the leadscout CLI.
package main

import (
	"os"

	"github.com/leadscout/leadscout/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
