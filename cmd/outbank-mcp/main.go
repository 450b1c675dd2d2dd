package main

import (
	"os"

	"github.com/outbank-dev/outbank-mcp/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
