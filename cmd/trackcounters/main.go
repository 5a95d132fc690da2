package main

import (
	"log"
	"os"

	"github.com/taskmaster/trackcounters/cmd/trackcounters/commands"
)

func main() {
	rootCmd := commands.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
