package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skiffhq/skiff/internal/cmd"
)

// Populated at build time via -ldflags.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "skiff:", err)
		stop()
		os.Exit(cmd.ExitCode(err))
	}
}
