package main

import (
	"os"

	"github.com/cmdguard/cmdguard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
