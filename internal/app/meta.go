package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gopanpm/gopan/internal/cli"
	"github.com/gopanpm/gopan/internal/cpan"
	"github.com/gopanpm/gopan/internal/ctxlog"
	"github.com/gopanpm/gopan/internal/scan"
)

// Help prints the switch reference.
func (a *App) Help() error {
	cli.Usage(a.outW)
	return nil
}

// ShowVersion prints the tool's own version and the index client's.
func (a *App) ShowVersion() error {
	fmt.Fprintf(a.outW, "gopan %s (index client %s)\n", Version, cpan.Version)
	return nil
}

// ConfirmConfig is the standalone -j operation: the file was already
// loaded and activated during startup, so all that is left to do is say so.
func (a *App) ConfirmConfig(path string) error {
	fmt.Fprintf(a.outW, "Loaded configuration from %s\n", path)
	return nil
}

// DumpConfig serializes the active configuration to the output stream in
// the same form -j reads back.
func (a *App) DumpConfig() error {
	if err := a.cfg.Dump(a.outW); err != nil {
		return &cli.ExitError{Code: cli.ExitConfig, Message: err.Error()}
	}
	return nil
}

// ShowChanges prints the change log of each named module. Modules that
// are not installed are skipped; per-module fetch failures produce no
// output for that module and do not stop the loop. Only a dead index, the
// loss of the whole fetch capability, is fatal.
func (a *App) ShowChanges(ctx context.Context, modules []string) error {
	logger := ctxlog.FromContext(ctx)
	for _, name := range modules {
		mod, err := a.shell.Expand(ctx, name)
		if err != nil {
			if isIndexDown(err) {
				return err
			}
			logger.Warn("Could not resolve module.", "module", name, "error", err)
			continue
		}
		if !mod.Installed() {
			logger.Info("Module is not installed, skipping.", "module", name)
			continue
		}
		text, err := a.shell.Changes(ctx, mod)
		if err != nil {
			logger.Warn("Could not fetch change log.", "module", name, "error", err)
			continue
		}
		fmt.Fprintf(a.outW, "Changes for %s (%s):\n\n%s\n", mod.Name, mod.Distribution, text)
	}
	return nil
}

// ShowAuthors prints the author identity of each named module.
func (a *App) ShowAuthors(ctx context.Context, modules []string) error {
	logger := ctxlog.FromContext(ctx)
	for _, name := range modules {
		mod, err := a.shell.Expand(ctx, name)
		if err != nil {
			if isIndexDown(err) {
				return err
			}
			logger.Warn("Could not resolve module.", "module", name, "error", err)
			continue
		}
		author, err := a.shell.Author(ctx, mod.AuthorID)
		if err != nil {
			logger.Warn("Could not resolve author.", "module", name, "author", mod.AuthorID, "error", err)
			continue
		}
		fmt.Fprintf(a.outW, "%-32s %-10s %-30s %s\n", mod.Name, author.ID, author.Email, author.FullName)
	}
	return nil
}

// ShowDetails prints the full metadata record of each named module.
func (a *App) ShowDetails(ctx context.Context, modules []string) error {
	logger := ctxlog.FromContext(ctx)
	for _, name := range modules {
		mod, err := a.shell.Expand(ctx, name)
		if err != nil {
			if isIndexDown(err) {
				return err
			}
			logger.Warn("Could not resolve module.", "module", name, "error", err)
			continue
		}

		authorLine := mod.AuthorID
		if author, err := a.shell.Author(ctx, mod.AuthorID); err == nil {
			authorLine = fmt.Sprintf("%s (%s <%s>)", author.ID, author.FullName, author.Email)
		}

		fmt.Fprintf(a.outW, "Module id = %s\n", mod.Name)
		fmt.Fprintf(a.outW, "    DESCRIPTION  %s\n", orDash(mod.Description))
		fmt.Fprintf(a.outW, "    CPAN_USERID  %s\n", orDash(authorLine))
		fmt.Fprintf(a.outW, "    CPAN_VERSION %s\n", orDash(mod.UpstreamVersion))
		fmt.Fprintf(a.outW, "    CPAN_FILE    %s\n", orDash(mod.Distribution))
		fmt.Fprintf(a.outW, "    INST_FILE    %s\n", orDash(mod.InstalledFile))
		fmt.Fprintf(a.outW, "    INST_VERSION %s\n", orDash(mod.InstalledVersion))
		fmt.Fprintf(a.outW, "    UPTODATE     %s\n", yesNo(mod.UpToDate()))
	}
	return nil
}

// ShowOutOfDate lists every installed module whose upstream version is
// newer than the installed one.
func (a *App) ShowOutOfDate(ctx context.Context) error {
	mods, err := a.shell.Modules(ctx)
	if err != nil {
		return err
	}
	header := false
	for _, mod := range mods {
		if !mod.Installed() || mod.UpToDate() {
			continue
		}
		if !header {
			fmt.Fprintf(a.outW, "%-32s %-12s %-12s\n", "Module", "Installed", "CPAN")
			header = true
		}
		fmt.Fprintf(a.outW, "%-32s %-12s %-12s\n", mod.Name, mod.InstalledVersion, mod.UpstreamVersion)
	}
	if !header {
		fmt.Fprintln(a.outW, "All installed modules are up to date.")
	}
	return nil
}

// ListAllModules walks the module search path and prints a name/version
// line for every module source file found there. This is a purely local
// operation; the package index is never consulted.
func (a *App) ListAllModules(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	entries, err := scan.Modules(a.cfg.IncPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		version, err := scan.ParseVersionFile(e.Path)
		if err != nil {
			logger.Warn("Could not read module file.", "path", e.Path, "error", err)
			continue
		}
		fmt.Fprintf(a.outW, "%s\t%s\n", e.Module, version)
	}
	return nil
}

// ShowAuthorMods lists the modules belonging to each of the given author
// ids. Matching is case-insensitive.
func (a *App) ShowAuthorMods(ctx context.Context, authors []string) error {
	want := make(map[string]bool, len(authors))
	for _, id := range authors {
		want[strings.ToLower(id)] = true
	}
	mods, err := a.shell.Modules(ctx)
	if err != nil {
		return err
	}
	for _, mod := range mods {
		if want[strings.ToLower(mod.AuthorID)] {
			fmt.Fprintf(a.outW, "%s %s\n", mod.AuthorID, mod.Name)
		}
	}
	return nil
}

// Autobundle delegates bundle creation to the collaborator.
func (a *App) Autobundle(ctx context.Context) error {
	path, err := a.shell.Autobundle(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Wrote bundle file\n    %s\n", path)
	return nil
}

// Recompile delegates to the collaborator with no argument processing.
func (a *App) Recompile(ctx context.Context) error {
	return a.shell.Recompile(ctx)
}

func isIndexDown(err error) bool {
	return errors.Is(err, cpan.ErrIndexUnavailable)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
