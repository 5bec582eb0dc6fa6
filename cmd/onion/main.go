package main

import (
	"os"

	"github.com/HannahMarsh/onion-circuit/cmd/onion/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
