package main

import (
	"os"

	"github.com/jant/site/internal/adapters/cli"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		cli.NewOutput().PrintError("%v", err)
		os.Exit(1)
	}
}
