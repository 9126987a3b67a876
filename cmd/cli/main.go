package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/nfgenomeannotator/internal/app"
	"github.com/specialistvlad/nfgenomeannotator/internal/cli"
	"github.com/specialistvlad/nfgenomeannotator/internal/nextflow"
)

// main is the entrypoint for the nfgenomeannotator launcher.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error returned by run to the process exit status.
func exitCode(err error) int {
	var cliErr *cli.ExitError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	var engineErr *nextflow.ExitError
	if errors.As(err, &engineErr) && engineErr.Code > 0 {
		return engineErr.Code
	}
	return 1
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW, errW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The embedded parameter catalog panics if it is invalid; report that as
	// a startup error rather than a crash.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	launcherApp, err := app.NewApp(outW, errW, appConfig, app.Options{})
	if err != nil {
		return err
	}
	defer launcherApp.Close()

	return launcherApp.Run(ctx)
}
