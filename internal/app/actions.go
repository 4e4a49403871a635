package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gopanpm/gopan/internal/cli"
	"github.com/gopanpm/gopan/internal/cpan"
	"github.com/gopanpm/gopan/internal/ctxlog"
)

// ModuleAction runs one build action over each named module in turn. A
// failure for one module is reported and does not abort the remaining
// modules; the process still exits non-zero when any of them failed. An
// action the collaborator does not support is fatal immediately.
func (a *App) ModuleAction(ctx context.Context, act cpan.Action, force bool, modules []string) error {
	logger := ctxlog.FromContext(ctx)
	var failed int
	for _, name := range modules {
		logger.Info("Running action for module.", "action", act.String(), "module", name, "force", force)
		err := a.shell.Run(ctx, act, force, name)
		if errors.Is(err, cpan.ErrUnsupported) {
			return &cli.ExitError{Code: cli.ExitUnsupported, Message: err.Error()}
		}
		if err != nil {
			logger.Error("Action failed for module.", "action", act.String(), "module", name, "error", err)
			fmt.Fprintf(a.outW, "%s failed for %s: %v\n", act, name, err)
			failed++
			continue
		}
		fmt.Fprintf(a.outW, "%s done for %s\n", act, name)
	}
	if failed > 0 {
		return &cli.ExitError{
			Code:    cli.ExitFailed,
			Message: fmt.Sprintf("%s failed for %d of %d modules", act, failed, len(modules)),
		}
	}
	return nil
}
