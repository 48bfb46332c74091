package main

import (
	"aimatrix/cmd/aimatrix/commands"
	"os"
)

func main() {
	root := commands.NewRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
