// Package main provides the entry point for the crosstab CLI.
package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/spektr-org/crosstab/cmd/crosstab/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
