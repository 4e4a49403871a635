// Package cpan wraps the CPAN ecosystem: the package index, the author
// index, distribution archives on a mirror, and the external build chain.
// The Shell interface is the collaborator contract the rest of the tool
// dispatches against; Client is its index-backed implementation.
package cpan

import (
	"context"
	"errors"
	"fmt"
)

// Action enumerates the per-module build actions. Dispatch is by this
// enumeration, never by method-name strings.
type Action int

const (
	ActionClean Action = iota
	ActionInstall
	ActionMake
	ActionTest
)

// String returns the action's user-facing name.
func (a Action) String() string {
	switch a {
	case ActionClean:
		return "clean"
	case ActionInstall:
		return "install"
	case ActionMake:
		return "make"
	case ActionTest:
		return "test"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ErrUnsupported reports a requested operation the collaborator does not
// support. Callers treat it as fatal rather than a per-module failure.
var ErrUnsupported = errors.New("operation not supported by the package manager")

// ErrIndexUnavailable reports that no mirror could provide an index file.
// It marks the whole fetch capability as down, as opposed to a per-module
// failure.
var ErrIndexUnavailable = errors.New("index unavailable")

// Module is the metadata record for one module, merged from the package
// index (upstream side) and the local search path (installed side).
type Module struct {
	Name        string
	Description string

	// Distribution is the index-relative distribution path, e.g.
	// "A/AB/ABCDE/Foo-Bar-1.23.tar.gz".
	Distribution string

	// InstalledFile is the local source file, empty when not installed.
	InstalledFile string
	// InstalledVersion is the version scanned out of InstalledFile. It is
	// "undef" when the file declares none, and empty when not installed.
	InstalledVersion string

	UpstreamVersion string
	AuthorID        string
}

// Installed reports whether the module was found on the local search path.
func (m *Module) Installed() bool {
	return m.InstalledFile != ""
}

// UpToDate reports whether the installed version is at least the upstream
// one. Modules that are not installed are never up to date.
func (m *Module) UpToDate() bool {
	if !m.Installed() {
		return false
	}
	if m.UpstreamVersion == "" || m.UpstreamVersion == "undef" {
		return true
	}
	if m.InstalledVersion == "" || m.InstalledVersion == "undef" {
		return false
	}
	return CompareVersions(m.InstalledVersion, m.UpstreamVersion) >= 0
}

// Author is one entry from the author index.
type Author struct {
	ID       string
	FullName string
	Email    string
}

// Shell is the collaborator contract: everything the option dispatcher can
// ask the package manager to do.
type Shell interface {
	// Run performs one build action for one module. force re-runs the
	// action even when a previous run already succeeded or failed.
	// Unknown actions yield ErrUnsupported.
	Run(ctx context.Context, act Action, force bool, module string) error

	// Expand resolves one module name to its metadata record.
	Expand(ctx context.Context, name string) (*Module, error)

	// Modules enumerates every module known to the package index.
	Modules(ctx context.Context) ([]*Module, error)

	// Author looks up one author id in the author index.
	Author(ctx context.Context, id string) (*Author, error)

	// Changes fetches the change log of the module's distribution.
	Changes(ctx context.Context, mod *Module) (string, error)

	// Autobundle writes a bundle snapshot of all installed modules and
	// returns the file written.
	Autobundle(ctx context.Context) (string, error)

	// Recompile force-rebuilds every installed module with compiled parts.
	Recompile(ctx context.Context) error
}
