package main

import (
	"os"

	"github.com/rolledback/FinanceCsvAnalysis/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
