package main

import (
	"os"

	"github.com/vzahanych/forecast-history/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
