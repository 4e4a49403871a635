package shell

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/gopanpm/gopan/internal/app"
	"github.com/gopanpm/gopan/internal/cpan"
)

// Session is one interactive shell run.
type Session struct {
	app *app.App
	out io.Writer
}

// New builds a session around an App. Command output goes wherever the
// App writes; prompts and errors go to out.
func New(a *app.App, out io.Writer) *Session {
	return &Session{app: a, out: out}
}

// Run reads and dispatches commands until quit or end of input.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gopan> ",
		HistoryFile:     filepath.Join(s.app.Config().CpanHome, "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start interactive shell: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(s.out, "gopan shell -- package front end (%s)\nType 'h' for help, 'q' to quit.\n", app.Version)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := s.dispatch(ctx, line)
		if err != nil {
			fmt.Fprintln(s.out, err)
		}
		if quit {
			return nil
		}
	}
}

// dispatch runs one shell command line.
func (s *Session) dispatch(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	force := false
	if cmd == "force" {
		if len(args) == 0 {
			return false, fmt.Errorf("force needs a command, e.g. 'force install Foo::Bar'")
		}
		force = true
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		s.help()
		return false, nil
	case "v", "version":
		return false, s.app.ShowVersion()
	case "o", "conf":
		return false, s.app.DumpConfig()
	case "install", "i":
		return false, s.action(ctx, cpan.ActionInstall, force, args)
	case "make":
		return false, s.action(ctx, cpan.ActionMake, force, args)
	case "test", "t":
		return false, s.action(ctx, cpan.ActionTest, force, args)
	case "clean":
		return false, s.action(ctx, cpan.ActionClean, force, args)
	case "a", "author":
		return false, s.app.ShowAuthors(ctx, args)
	case "d", "details":
		return false, s.app.ShowDetails(ctx, args)
	case "changes":
		return false, s.app.ShowChanges(ctx, args)
	case "r", "outdated":
		return false, s.app.ShowOutOfDate(ctx)
	case "l", "list":
		return false, s.app.ListAllModules(ctx)
	case "ls":
		return false, s.app.ShowAuthorMods(ctx, args)
	case "autobundle":
		return false, s.app.Autobundle(ctx)
	case "recompile":
		return false, s.app.Recompile(ctx)
	}
	return false, fmt.Errorf("unknown command %q, type 'h' for help", cmd)
}

// action guards the per-module commands against an empty module list.
func (s *Session) action(ctx context.Context, act cpan.Action, force bool, modules []string) error {
	if len(modules) == 0 {
		return fmt.Errorf("Nothing to %s!", act)
	}
	return s.app.ModuleAction(ctx, act, force, modules)
}

func (s *Session) help() {
	fmt.Fprint(s.out, `Commands:
  install|make|test|clean MODULE...   run a build action per module
  force CMD MODULE...                 run CMD even if it previously failed
  a MODULE...                         show module authors
  d MODULE...                         show module details
  changes MODULE...                   show change logs of installed modules
  r                                   list installed-but-outdated modules
  l                                   list all modules on the search path
  ls AUTHOR...                        list modules by author id
  autobundle                          write a bundle snapshot
  recompile                           rebuild modules with compiled parts
  o                                   dump the active configuration
  v                                   show versions
  q                                   quit
`)
}
