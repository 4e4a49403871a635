package app

import (
	"io"
	"log/slog"

	"github.com/gopanpm/gopan/internal/config"
	"github.com/gopanpm/gopan/internal/cpan"
)

// Version is the tool's own version, printed by the version operation
// next to the index client's.
const Version = "1.2.0"

// App owns the output writer, logger, active configuration and the
// package-manager collaborator. One App executes exactly one operation
// per process; operation methods are also reused by the interactive shell.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *config.Config
	shell  cpan.Shell
}

// New is the constructor for the application.
func New(outW io.Writer, logger *slog.Logger, cfg *config.Config, shell cpan.Shell) *App {
	return &App{
		outW:   outW,
		logger: logger,
		cfg:    cfg,
		shell:  shell,
	}
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}
