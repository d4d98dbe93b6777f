package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"

	"github.com/guiyumin/ytfetch/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()

	switch {
	case err == nil:
	case interrupted || errors.Is(err, context.Canceled):
		color.New(color.FgGreen).Fprintln(colorable.NewColorableStdout(), "\nDownload canceled. Exiting...")
	case errors.Is(err, cli.ErrFailed):
		os.Exit(1)
	default:
		color.New(color.FgRed).Fprintf(colorable.NewColorableStderr(), "Error: %v\n", err)
		os.Exit(1)
	}
}
