// Package main provides the entry point for brainctl.
//
// brainctl runs a bot brain persisted to MongoDB or an embedded Badger
// database, and inspects the persisted records.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/brainsync/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
