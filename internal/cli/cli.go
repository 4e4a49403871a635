package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

// Exit codes, catalogued per error class. Per-module operation failures
// share ExitFailed because a partial failure must not abort the loop over
// the remaining modules.
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitUsage       = 2
	ExitConfig      = 4
	ExitUnsupported = 8
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Invocation is the fully resolved result of parsing argv: the one
// operation to run, its module (or author) arguments, and process-level
// settings that are not operations themselves.
type Invocation struct {
	Op    Operation
	Force bool
	Args  []string

	// ConfigPath is the file given with -j. It is applied as setup before
	// the operation runs, whatever that operation is.
	ConfigPath string

	LogLevel  string
	LogFormat string
}

// Parse processes command-line arguments and resolves them into exactly one
// operation. It returns an ExitError with ExitUsage for malformed input.
func Parse(args []string, output io.Writer) (*Invocation, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("gopan", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false
	flagSet.Usage = func() { Usage(output) }

	for _, e := range metaTable() {
		flagSet.BoolP(e.long, e.short, false, e.desc)
	}
	for _, e := range actionTable() {
		flagSet.BoolP(e.long, e.short, false, e.desc)
	}
	flagSet.BoolP("force", "f", false, "run the action even if it previously failed or already ran")
	configPath := flagSet.StringP("config", "j", "", "load configuration from this file before acting")
	logLevel := flagSet.String("log-level", "warn", "logging level: 'debug', 'info', 'warn' or 'error'")
	logFormat := flagSet.String("log-format", "text", "log output format: 'text' or 'json'")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return &Invocation{Op: OpHelp}, nil
		}
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	level := strings.ToLower(*logLevel)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	format := strings.ToLower(*logFormat)
	if format != "text" && format != "json" {
		return nil, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	inv := &Invocation{
		Force:      flagSet.Changed("force"),
		Args:       swallowInstallToken(flagSet.Args()),
		ConfigPath: *configPath,
		LogLevel:   level,
		LogFormat:  format,
	}

	op, err := resolve(flagSet, inv)
	if err != nil {
		return nil, err
	}
	inv.Op = op
	slog.Debug("CLI parser finished successfully.", "operation", op.String(), "args", inv.Args)
	return inv, nil
}

// resolve applies the priority rules: meta switches in their fixed order
// first, then module-action switches alphabetically, then the implicit
// defaults. Exactly one operation comes out.
func resolve(flagSet *pflag.FlagSet, inv *Invocation) (Operation, error) {
	for _, e := range metaTable() {
		if flagSet.Changed(e.long) {
			return e.op, nil
		}
	}

	for _, e := range actionTable() {
		if !flagSet.Changed(e.long) {
			continue
		}
		if len(inv.Args) == 0 {
			return 0, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("Nothing to %s!", e.op)}
		}
		return e.op, nil
	}

	// No switch at all. Arguments imply the historical default action,
	// install. The force switch alone does not count as an option, so it
	// falls through here too and still defaults to install.
	if len(inv.Args) > 0 {
		return OpInstall, nil
	}
	if inv.Force {
		return 0, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("Nothing to %s!", OpInstall)}
	}
	if inv.ConfigPath != "" {
		return OpLoadConfig, nil
	}
	return OpShell, nil
}

// swallowInstallToken discards a leading literal "install" token when more
// tokens follow. A compatibility affordance for users who type
// `gopan install Foo::Bar` out of habit.
func swallowInstallToken(args []string) []string {
	if len(args) > 1 && args[0] == "install" {
		return args[1:]
	}
	return args
}

// Usage writes the switch reference to w. The same text backs both the -h
// operation and parse-failure output.
func Usage(w io.Writer) {
	fmt.Fprint(w, `gopan - a command-line front end to the CPAN package index.

Usage:
  gopan [-j FILE] [switch] [module ...]
  gopan install module ...
  gopan                    (starts the interactive shell)

Meta switches (checked in this order; the first one present wins):
`)
	for _, e := range metaTable() {
		writeSwitch(w, e)
	}
	fmt.Fprint(w, `
Module actions (checked alphabetically; the default action is install):
`)
	for _, e := range actionTable() {
		writeSwitch(w, e)
	}
	fmt.Fprint(w, `  -f            modifier: run the action even if it previously failed

Other:
  -j FILE       load configuration from FILE before acting
  --log-level   'debug', 'info', 'warn' or 'error' (default 'warn')
  --log-format  'text' or 'json' (default 'text')
`)
}

func writeSwitch(w io.Writer, e entry) {
	operand := "          "
	if e.takesArgs {
		operand = " module.. "
	}
	fmt.Fprintf(w, "  -%s%s  %s\n", e.short, operand, e.desc)
}
