// Package main is the entry point for the pokectl CLI client.
package main

import "github.com/AbdullahP/pokealert/cmd/pokectl/cmd"

func main() {
	cmd.Execute()
}
