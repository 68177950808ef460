// Package main is the entry point of the plate alert service.
package main

import (
	"log/slog"
	"os"

	"github.com/WessleyAI/wessley-plates/cmd/platealert/commands"
)

func main() {
	a, err := commands.New()
	if err != nil {
		slog.Error("failed to create app", "err", err)
		os.Exit(1)
	}
	if err := a.Run(); err != nil {
		slog.Error(err.Error())
		if a.UsageError() {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
