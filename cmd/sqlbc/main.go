// Package main is the entry point for the sqlbc binary.
package main

import (
	"os"

	"github.com/roach88/sqlbc/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
