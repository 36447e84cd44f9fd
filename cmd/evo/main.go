// Package main provides the entry point for the evo CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mrz1836/evo/internal/cli"
	"github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/signal"
)

// Set via ldflags.
//
//nolint:gochecknoglobals // build metadata
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	h := signal.NewHandler(context.Background())
	err := cli.Execute(h.Context(), cli.BuildInfo{Version: version, Commit: commit, Date: date})
	h.Stop()

	if err != nil {
		_, action := errors.Actionable(err)
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		if action != "" {
			_, _ = fmt.Fprintln(os.Stderr, "Try:", action)
		}
		os.Exit(cli.ExitCodeForError(err))
	}
}
