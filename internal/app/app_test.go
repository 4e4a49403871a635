package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopanpm/gopan/internal/cli"
	"github.com/gopanpm/gopan/internal/config"
	"github.com/gopanpm/gopan/internal/cpan"
)

// fakeShell is a scripted collaborator: canned modules and authors, plus
// a record of every Run call.
type fakeShell struct {
	modules map[string]*cpan.Module
	authors map[string]*cpan.Author
	changes map[string]string

	runCalls []string
	runErrs  map[string]error
}

func (f *fakeShell) Run(_ context.Context, act cpan.Action, force bool, module string) error {
	call := fmt.Sprintf("%s/%s/force=%v", act, module, force)
	f.runCalls = append(f.runCalls, call)
	return f.runErrs[module]
}

func (f *fakeShell) Expand(_ context.Context, name string) (*cpan.Module, error) {
	mod, ok := f.modules[name]
	if !ok {
		return nil, fmt.Errorf("module %s is not in the package index", name)
	}
	return mod, nil
}

func (f *fakeShell) Modules(context.Context) ([]*cpan.Module, error) {
	var mods []*cpan.Module
	for _, m := range f.modules {
		mods = append(mods, m)
	}
	return mods, nil
}

func (f *fakeShell) Author(_ context.Context, id string) (*cpan.Author, error) {
	author, ok := f.authors[id]
	if !ok {
		return nil, fmt.Errorf("author %s is not in the author index", id)
	}
	return author, nil
}

func (f *fakeShell) Changes(_ context.Context, mod *cpan.Module) (string, error) {
	text, ok := f.changes[mod.Name]
	if !ok {
		return "", errors.New("no change log")
	}
	return text, nil
}

func (f *fakeShell) Autobundle(context.Context) (string, error) {
	return "/tmp/Bundle/Snapshot_2026_08_31_00.pm", nil
}

func (f *fakeShell) Recompile(context.Context) error { return nil }

func newTestApp(shell cpan.Shell) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(out, logger, &config.Config{}, shell), out
}

func defaultFake() *fakeShell {
	return &fakeShell{
		modules: map[string]*cpan.Module{
			"Acme::Colour": {
				Name:             "Acme::Colour",
				Distribution:     "L/LB/LBROCARD/Acme-Colour-1.05.tar.gz",
				AuthorID:         "LBROCARD",
				UpstreamVersion:  "1.05",
				InstalledFile:    "/lib/Acme/Colour.pm",
				InstalledVersion: "1.00",
			},
			"CGI": {
				Name:            "CGI",
				Distribution:    "L/LE/LEEJO/CGI-4.68.tar.gz",
				AuthorID:        "LEEJO",
				UpstreamVersion: "4.680",
			},
			"Up::ToDate": {
				Name:             "Up::ToDate",
				Distribution:     "A/AB/ABELTJE/Up-ToDate-2.0.tar.gz",
				AuthorID:         "ABELTJE",
				UpstreamVersion:  "2.0",
				InstalledFile:    "/lib/Up/ToDate.pm",
				InstalledVersion: "2.0",
			},
		},
		authors: map[string]*cpan.Author{
			"LBROCARD": {ID: "LBROCARD", FullName: "Leon Brocard", Email: "leon@example.org"},
		},
		changes: map[string]string{
			"Acme::Colour": "1.05 paint everything blue\n",
		},
		runErrs: map[string]error{},
	}
}

func TestModuleAction_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	fake := defaultFake()
	fake.runErrs["Bad::Module"] = errors.New("make blew up")
	a, out := newTestApp(fake)

	err := a.ModuleAction(context.Background(), cpan.ActionInstall, false,
		[]string{"Acme::Colour", "Bad::Module", "CGI"})

	// The failure is reported, but every module was still attempted.
	require.Error(t, err)
	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok)
	assert.Equal(t, cli.ExitFailed, exitErr.Code)
	assert.Equal(t, []string{
		"install/Acme::Colour/force=false",
		"install/Bad::Module/force=false",
		"install/CGI/force=false",
	}, fake.runCalls)
	assert.Contains(t, out.String(), "install failed for Bad::Module")
}

func TestModuleAction_ForceIsPassedThrough(t *testing.T) {
	t.Parallel()

	fake := defaultFake()
	a, _ := newTestApp(fake)

	require.NoError(t, a.ModuleAction(context.Background(), cpan.ActionTest, true, []string{"CGI"}))
	require.Equal(t, []string{"test/CGI/force=true"}, fake.runCalls)
}

func TestModuleAction_UnsupportedActionIsFatal(t *testing.T) {
	t.Parallel()

	fake := defaultFake()
	fake.runErrs["Any::Module"] = fmt.Errorf("%w: frobnicate", cpan.ErrUnsupported)
	a, _ := newTestApp(fake)

	err := a.ModuleAction(context.Background(), cpan.ActionInstall, false,
		[]string{"Any::Module", "Never::Reached"})
	require.Error(t, err)
	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok)
	assert.Equal(t, cli.ExitUnsupported, exitErr.Code)
	// Fatal means fatal: the loop stops immediately.
	assert.Len(t, fake.runCalls, 1)
}

func TestShowOutOfDate(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(defaultFake())
	require.NoError(t, a.ShowOutOfDate(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Acme::Colour")
	assert.NotContains(t, text, "CGI", "modules that are not installed are not out of date")
	assert.NotContains(t, text, "Up::ToDate")
}

func TestShowAuthors(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(defaultFake())
	require.NoError(t, a.ShowAuthors(context.Background(), []string{"Acme::Colour", "No::Such"}))

	text := out.String()
	assert.Contains(t, text, "Acme::Colour")
	assert.Contains(t, text, "LBROCARD")
	assert.Contains(t, text, "leon@example.org")
	assert.Contains(t, text, "Leon Brocard")
	assert.NotContains(t, text, "No::Such", "unresolvable modules produce no output")
}

func TestShowDetails(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(defaultFake())
	require.NoError(t, a.ShowDetails(context.Background(), []string{"Acme::Colour"}))

	text := out.String()
	assert.Contains(t, text, "Module id = Acme::Colour")
	assert.Contains(t, text, "CPAN_VERSION 1.05")
	assert.Contains(t, text, "CPAN_FILE    L/LB/LBROCARD/Acme-Colour-1.05.tar.gz")
	assert.Contains(t, text, "INST_VERSION 1.00")
	assert.Contains(t, text, "UPTODATE     no")
}

func TestShowAuthorMods_MatchesCaseInsensitively(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(defaultFake())
	require.NoError(t, a.ShowAuthorMods(context.Background(), []string{"lbrocard", "LeeJo"}))

	text := out.String()
	assert.Contains(t, text, "Acme::Colour")
	assert.Contains(t, text, "CGI")
	assert.NotContains(t, text, "Up::ToDate")
}

func TestShowChanges_SkipsModulesThatAreNotInstalled(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(defaultFake())
	require.NoError(t, a.ShowChanges(context.Background(), []string{"CGI", "Acme::Colour"}))

	text := out.String()
	assert.Contains(t, text, "paint everything blue")
	assert.NotContains(t, text, "CGI-4.68", "the uninstalled module is skipped")
}

func TestShowChanges_DeadIndexIsFatal(t *testing.T) {
	t.Parallel()

	fake := &deadIndexShell{}
	a, _ := newTestApp(fake)

	err := a.ShowChanges(context.Background(), []string{"Acme::Colour"})
	require.Error(t, err)
	require.ErrorIs(t, err, cpan.ErrIndexUnavailable)
}

// deadIndexShell fails every index-backed call the way a Client with no
// reachable mirror does.
type deadIndexShell struct{ fakeShell }

func (d *deadIndexShell) Expand(context.Context, string) (*cpan.Module, error) {
	return nil, fmt.Errorf("package %w: no reachable mirror", cpan.ErrIndexUnavailable)
}

func TestVersionOperation(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(defaultFake())
	require.NoError(t, a.ShowVersion())
	assert.Contains(t, out.String(), Version)
	assert.Contains(t, out.String(), cpan.Version)
}

func TestAutobundleOperation(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(defaultFake())
	require.NoError(t, a.Autobundle(context.Background()))
	assert.Contains(t, out.String(), "Snapshot_2026_08_31_00.pm")
}

func TestRun_DispatchesByOperation(t *testing.T) {
	t.Parallel()

	fake := defaultFake()
	a, out := newTestApp(fake)

	err := a.Run(context.Background(), &cli.Invocation{
		Op:   cli.OpTest,
		Args: []string{"CGI"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"test/CGI/force=false"}, fake.runCalls)

	out.Reset()
	require.NoError(t, a.Run(context.Background(), &cli.Invocation{Op: cli.OpHelp}))
	assert.Contains(t, out.String(), "Usage")
}
