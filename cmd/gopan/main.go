package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gopanpm/gopan/internal/app"
	"github.com/gopanpm/gopan/internal/cli"
	"github.com/gopanpm/gopan/internal/config"
	"github.com/gopanpm/gopan/internal/cpan"
	"github.com/gopanpm/gopan/internal/shell"
)

// main is the entrypoint for the gopan command.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitFailed)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Operation output goes to outW; logs and the shell prompt
// chatter go to errW.
func run(outW, errW io.Writer, args []string) error {
	inv, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if inv.ConfigPath != "" {
		// -j is setup for whatever operation follows, including -J.
		cfg, err = config.Load(inv.ConfigPath)
		if err != nil {
			return &cli.ExitError{Code: cli.ExitConfig, Message: err.Error()}
		}
	}

	logger := app.NewLogger(inv.LogLevel, inv.LogFormat, errW)
	client := cpan.NewClient(cfg, outW)
	a := app.New(outW, logger, cfg, client)

	if inv.Op == cli.OpShell {
		return shell.New(a, errW).Run(context.Background())
	}
	return a.Run(context.Background(), inv)
}
