package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/doeshing/sgpt-go/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(cli.Options{Verbose: isVerbose()})
	if err := root.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			return cli.ExitInterrupted
		}
		cli.PrintError(os.Stderr, err)
		return cli.ExitCode(err)
	}
	if ctx.Err() != nil {
		return cli.ExitInterrupted
	}
	return cli.ExitOK
}

func isVerbose() bool {
	return strings.EqualFold(os.Getenv("SGPT_DEBUG"), "1") || strings.EqualFold(os.Getenv("SGPT_DEBUG"), "true")
}
