// Package main is the entry point for the pokealert server.
package main

import (
	"os"

	"github.com/AbdullahP/pokealert/cmd/pokealert/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
