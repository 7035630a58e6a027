// Command patchlib indexes a synthesizer sound library, filters it and
// exports sounds into collections.
//
// Usage:
//
//	patchlib import library.yaml   # Load a fixture into the database
//	patchlib list --category Bass  # Filter and list sounds
//	patchlib export --to Live      # Allocate slots and export
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/patchlib/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
