package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/commands"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/tail"
)

func main() {
	if err := commands.Execute(); err != nil {
		if errors.Is(err, tail.ErrSourceMissing) {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
