// Package main provides the harvester CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kostadindraganov/amazon-extractor/cmd/harvester/commands"
)

func main() {
	// Best effort; the environment may carry everything already.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
