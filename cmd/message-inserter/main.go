package main

import (
	"os"

	"github.com/message-inserter/message-inserter/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
