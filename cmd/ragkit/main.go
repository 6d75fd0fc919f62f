// Package main provides the entry point for the ragkit CLI.
package main

import (
	"os"

	"github.com/openkb/ragkit/cmd/ragkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
