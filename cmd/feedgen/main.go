package main

import (
	"os"

	"github.com/shorebird/feedgen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
