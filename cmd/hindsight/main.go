// Package main provides the entry point for the hindsight CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mfeldheim/hindsight/internal/cli"
)

func main() {
	// A missing .env is fine, environment variables still apply.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
