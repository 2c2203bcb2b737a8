package main

import (
	"os"

	"github.com/dev101/coa/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
