package app

import (
	"context"
	"fmt"

	"github.com/gopanpm/gopan/internal/cli"
	"github.com/gopanpm/gopan/internal/cpan"
	"github.com/gopanpm/gopan/internal/ctxlog"
)

// Run executes the one operation the invocation resolved to. The
// interactive shell is the caller's business; everything else dispatches
// through the statically bound method for its operation.
func (a *App) Run(ctx context.Context, inv *cli.Invocation) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("Executing operation.", "operation", inv.Op.String(), "args", inv.Args, "force", inv.Force)

	switch inv.Op {
	case cli.OpHelp:
		return a.Help()
	case cli.OpVersion:
		return a.ShowVersion()
	case cli.OpLoadConfig:
		return a.ConfirmConfig(inv.ConfigPath)
	case cli.OpDumpConfig:
		return a.DumpConfig()
	case cli.OpShowChanges:
		return a.ShowChanges(ctx, inv.Args)
	case cli.OpShowAuthors:
		return a.ShowAuthors(ctx, inv.Args)
	case cli.OpShowDetails:
		return a.ShowDetails(ctx, inv.Args)
	case cli.OpShowOutOfDate:
		return a.ShowOutOfDate(ctx)
	case cli.OpListAllModules:
		return a.ListAllModules(ctx)
	case cli.OpShowAuthorMods:
		return a.ShowAuthorMods(ctx, inv.Args)
	case cli.OpAutobundle:
		return a.Autobundle(ctx)
	case cli.OpRecompile:
		return a.Recompile(ctx)
	case cli.OpClean, cli.OpInstall, cli.OpMake, cli.OpTest:
		return a.ModuleAction(ctx, actionFor(inv.Op), inv.Force, inv.Args)
	}
	return fmt.Errorf("operation %s cannot be executed here", inv.Op)
}

// actionFor maps the module-action operations onto the collaborator's
// action enumeration.
func actionFor(op cli.Operation) cpan.Action {
	switch op {
	case cli.OpClean:
		return cpan.ActionClean
	case cli.OpMake:
		return cpan.ActionMake
	case cli.OpTest:
		return cpan.ActionTest
	default:
		return cpan.ActionInstall
	}
}
